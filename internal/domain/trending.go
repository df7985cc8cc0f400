package domain

import (
	"cmp"
	"slices"
)

// ProductQuantity is the cumulative quantity ordered of one product.
type ProductQuantity struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"total_quantity"`
	OrderCount int    `json:"order_count"`
}

// TrendingProduct is a ranked product with its display data.
type TrendingProduct struct {
	ProductSummary
	TotalQuantity int `json:"total_quantity"`
	OrderCount    int `json:"order_count"`
}

// RankTrending keeps products ordered at least minQuantity times in total,
// sorts them by quantity descending (ties by product ID) and returns at most
// limit of them. A limit <= 0 means no cap.
func RankTrending(totals []ProductQuantity, minQuantity, limit int) []ProductQuantity {
	ranked := make([]ProductQuantity, 0, len(totals))
	for _, t := range totals {
		if t.Quantity >= minQuantity {
			ranked = append(ranked, t)
		}
	}

	slices.SortFunc(ranked, func(a, b ProductQuantity) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// JoinTrending attaches display data, dropping products that no longer exist.
func JoinTrending(ranked []ProductQuantity, products map[string]*Product) []TrendingProduct {
	out := make([]TrendingProduct, 0, len(ranked))
	for _, r := range ranked {
		p, ok := products[r.ProductID]
		if !ok {
			continue
		}
		out = append(out, TrendingProduct{
			ProductSummary: p.Summary(),
			TotalQuantity:  r.Quantity,
			OrderCount:     r.OrderCount,
		})
	}
	return out
}
