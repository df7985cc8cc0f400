package domain

import "time"

// Score bounds.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one user's score for one product. A user rates a product at most once.
type Rating struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidScore reports whether score is within [MinScore, MaxScore].
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// UserRating is a rating joined with the rated product's display data.
type UserRating struct {
	Rating
	Product ProductSummary `json:"product"`
}

// RatingAggregate is the derived score summary stored on a product.
type RatingAggregate struct {
	Average float64 `json:"average_rating"`
	Count   int     `json:"review_count"`
}
