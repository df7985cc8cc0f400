package domain

import "time"

// Favorite is a product a user has marked. The pair is unique.
type Favorite struct {
	UserID    string         `json:"user_id"`
	ProductID string         `json:"product_id"`
	CreatedAt time.Time      `json:"created_at"`
	Product   ProductSummary `json:"product"`
}

// FavoriteToggle reports the state a toggle left behind.
type FavoriteToggle struct {
	ProductID string `json:"product_id"`
	Favorited bool   `json:"favorited"`
}
