package domain

import "time"

// Cart limits.
const (
	MaxQuantityPerLine = 100
	MaxLinesPerCart    = 50
)

// UnavailableProductName labels cart and order lines whose product no longer exists.
const UnavailableProductName = "Product unavailable"

// CartLine is one product in a user's cart.
type CartLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart holds a user's lines. Version increases on every successful write and
// guards against lost updates.
type Cart struct {
	UserID    string     `json:"user_id"`
	Lines     []CartLine `json:"lines"`
	Version   int64      `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCart returns an empty, never-saved cart.
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Lines: []CartLine{}}
}

// Find returns the index of the line for productID, or -1.
func (c *Cart) Find(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Upsert sets the line for productID. An existing line takes quantity when
// one is given and keeps its own otherwise; a new line gets quantity or 1.
// It reports whether a new line was appended.
func (c *Cart) Upsert(productID string, quantity *int) bool {
	if i := c.Find(productID); i >= 0 {
		if quantity != nil {
			c.Lines[i].Quantity = *quantity
		}
		return false
	}

	q := 1
	if quantity != nil {
		q = *quantity
	}
	c.Lines = append(c.Lines, CartLine{ProductID: productID, Quantity: q})
	return true
}

// Remove deletes the lines for the given products and returns how many were removed.
func (c *Cart) Remove(productIDs ...string) int {
	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}

	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if _, ok := drop[l.ProductID]; !ok {
			kept = append(kept, l)
		}
	}
	removed := len(c.Lines) - len(kept)
	c.Lines = kept
	return removed
}

// ProductIDs lists the products referenced by the cart in line order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// CartLineView is a cart line with product display data resolved.
type CartLineView struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	Price     int64  `json:"price"`
	Currency  string `json:"currency"`
	Available bool   `json:"available"`
}

// ResolveCartLines joins lines with products. Lines whose product is missing
// are rendered as an unavailable placeholder priced at zero.
func ResolveCartLines(lines []CartLine, products map[string]*Product) []CartLineView {
	views := make([]CartLineView, 0, len(lines))
	for _, l := range lines {
		v := CartLineView{ProductID: l.ProductID, Quantity: l.Quantity}
		if p, ok := products[l.ProductID]; ok {
			v.Name = p.Name
			v.ImageURL = p.ImageURL
			v.Price = p.Price
			v.Currency = p.Currency
			v.Available = true
		} else {
			v.Name = UnavailableProductName
		}
		views = append(views, v)
	}
	return views
}
