package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// FavoriteRepository implements repository.FavoriteRepository using PostgreSQL.
type FavoriteRepository struct {
	pool database.DBTX
}

// NewFavoriteRepository creates a new PostgreSQL-backed favorite repository.
func NewFavoriteRepository(pool database.DBTX) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// Toggle deletes the favorite when it exists and inserts it otherwise.
func (r *FavoriteRepository) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) (bool, error) {
		ct, err := tx.Exec(ctx,
			`DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`,
			userID, productID,
		)
		if err != nil {
			return false, fmt.Errorf("remove favorite: %w", err)
		}
		if ct.RowsAffected() > 0 {
			return false, nil
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO favorites (user_id, product_id)
			VALUES ($1, $2)
			ON CONFLICT (user_id, product_id) DO NOTHING`,
			userID, productID,
		); err != nil {
			if database.IsForeignKeyViolation(err) {
				return false, apperrors.NotFound("product", productID)
			}
			return false, fmt.Errorf("add favorite: %w", err)
		}
		return true, nil
	})
}

// ListByUser returns a page of the user's favorites, newest first.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Favorite, int, error) {
	limit, offset := pageBounds(page, perPage)

	query := `
		SELECT f.user_id, f.product_id, f.created_at,
		       p.name, p.brand, p.image_url, p.price, p.currency,
		       count(*) OVER() AS total_count
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.product_id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var (
		favorites  = make([]domain.Favorite, 0)
		totalCount int
	)
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(
			&f.UserID, &f.ProductID, &f.CreatedAt,
			&f.Product.Name, &f.Product.Brand, &f.Product.ImageURL, &f.Product.Price, &f.Product.Currency,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan favorite row: %w", err)
		}
		f.Product.ID = f.ProductID
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate favorite rows: %w", err)
	}
	return favorites, totalCount, nil
}
