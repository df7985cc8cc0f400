package repository

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Brand    string
	Category string
	Search   string
	Page     int
	PerPage  int
}

// ProductRepository persists catalog entries.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	// GetByIDs returns the products that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	// Update writes descriptive fields only; rating aggregates are left untouched.
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

// RatingRepository owns ratings and the aggregates derived from them.
type RatingRepository interface {
	// Create inserts r and recomputes the product's aggregate atomically.
	// A second rating for the same user and product yields a conflict.
	Create(ctx context.Context, r *domain.Rating) (domain.RatingAggregate, error)
	// Update changes an existing rating and recomputes the aggregate atomically.
	Update(ctx context.Context, r *domain.Rating) (domain.RatingAggregate, error)
	ListByUser(ctx context.Context, userID string) ([]domain.UserRating, error)
	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Rating, int, error)
	TopRated(ctx context.Context, limit int) ([]domain.Product, error)
}

// FavoriteRepository stores the products each user has marked.
type FavoriteRepository interface {
	// Toggle removes the favorite if present and adds it otherwise, reporting
	// whether the product is a favorite afterwards.
	Toggle(ctx context.Context, userID, productID string) (bool, error)
	// ListByUser returns a page of favorites, newest first, with product display data.
	ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Favorite, int, error)
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	UserID           string
	IncludeCancelled bool
	Page             int
	PerPage          int
}

// OrderRepository persists orders, their items and status history.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
	// MarkNotificationSent flips the flag once. It reports false when the flag
	// was already set.
	MarkNotificationSent(ctx context.Context, id string) (bool, error)
	// UpdateStatus sets status, appends entry to the history and, for
	// cancellations, records reason.
	UpdateStatus(ctx context.Context, id, status, reason string, entry domain.StatusUpdate) error
	// ProductQuantities sums ordered quantity per product over orders that
	// are not cancelled.
	ProductQuantities(ctx context.Context) ([]domain.ProductQuantity, error)
}

// CartRepository stores per-user carts.
type CartRepository interface {
	// Get returns the user's cart, or an empty cart with version 0.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// SaveIfVersion writes cart only if the stored version still equals
	// expected, bumping cart.Version on success.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expected int64) (bool, error)
	Delete(ctx context.Context, userID string) error
}

// TrendingCache holds the last computed trending report.
type TrendingCache interface {
	Get(ctx context.Context) ([]domain.TrendingProduct, bool, error)
	Set(ctx context.Context, products []domain.TrendingProduct, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
