package domain

import "time"

// DefaultCategory is assigned to products created without a category.
const DefaultCategory = "Cars"

// DefaultCurrency is used when a product or order omits its currency.
const DefaultCurrency = "USD"

// Product is a catalog entry. AverageRating and ReviewCount are derived from
// the product's ratings and are only ever written by the rating ledger.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"image_url"`
	Price         int64     `json:"price"`
	Currency      string    `json:"currency"`
	CountInStock  int       `json:"count_in_stock"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductSummary is the display data other views embed.
type ProductSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"image_url"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

// Summary returns the product's display data.
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Currency: p.Currency,
	}
}

// ProductsByID indexes products by ID.
func ProductsByID(products []Product) map[string]*Product {
	m := make(map[string]*Product, len(products))
	for i := range products {
		m[products[i].ID] = &products[i]
	}
	return m
}
