package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// alreadyRated is the conflict message for a duplicate rating.
const alreadyRated = "already rated"

// RatingRepository implements repository.RatingRepository using PostgreSQL.
// Every write locks the product row, changes the ledger and recomputes the
// product's aggregate inside one transaction.
type RatingRepository struct {
	pool database.DBTX
}

// NewRatingRepository creates a new PostgreSQL-backed rating repository.
func NewRatingRepository(pool database.DBTX) *RatingRepository {
	return &RatingRepository{pool: pool}
}

func lockProduct(ctx context.Context, tx pgx.Tx, productID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", productID)
		}
		return fmt.Errorf("lock product: %w", err)
	}
	return nil
}

func recomputeAggregate(ctx context.Context, tx pgx.Tx, productID string) (domain.RatingAggregate, error) {
	query := `
		UPDATE products p
		SET average_rating = s.avg, review_count = s.cnt, updated_at = NOW()
		FROM (
			SELECT COALESCE(AVG(score), 0)::float8 AS avg, COUNT(*)::int AS cnt
			FROM product_ratings
			WHERE product_id = $1
		) s
		WHERE p.id = $1
		RETURNING p.average_rating, p.review_count`

	var agg domain.RatingAggregate
	if err := tx.QueryRow(ctx, query, productID).Scan(&agg.Average, &agg.Count); err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("recompute rating aggregate: %w", err)
	}
	return agg, nil
}

// Create inserts a first rating by r.UserID for r.ProductID.
func (r *RatingRepository) Create(ctx context.Context, rt *domain.Rating) (domain.RatingAggregate, error) {
	ctx, done := database.TraceQuery(ctx, "ratings.create", "INSERT INTO product_ratings")
	agg, err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) (domain.RatingAggregate, error) {
		if err := lockProduct(ctx, tx, rt.ProductID); err != nil {
			return domain.RatingAggregate{}, err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO product_ratings (id, user_id, product_id, score, comment, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rt.ID, rt.UserID, rt.ProductID, rt.Score, rt.Comment, rt.CreatedAt, rt.UpdatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return domain.RatingAggregate{}, apperrors.Conflict(alreadyRated)
			}
			return domain.RatingAggregate{}, fmt.Errorf("insert rating: %w", err)
		}

		return recomputeAggregate(ctx, tx, rt.ProductID)
	})
	done(err)
	return agg, err
}

// Update rewrites the score and comment of an existing rating. The ID and
// creation time of the stored rating are copied back into rt.
func (r *RatingRepository) Update(ctx context.Context, rt *domain.Rating) (domain.RatingAggregate, error) {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) (domain.RatingAggregate, error) {
		if err := lockProduct(ctx, tx, rt.ProductID); err != nil {
			return domain.RatingAggregate{}, err
		}

		err := tx.QueryRow(ctx, `
			UPDATE product_ratings
			SET score = $1, comment = $2, updated_at = $3
			WHERE user_id = $4 AND product_id = $5
			RETURNING id, created_at`,
			rt.Score, rt.Comment, rt.UpdatedAt, rt.UserID, rt.ProductID,
		).Scan(&rt.ID, &rt.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.RatingAggregate{}, apperrors.NotFound("rating", rt.ProductID)
			}
			return domain.RatingAggregate{}, fmt.Errorf("update rating: %w", err)
		}

		return recomputeAggregate(ctx, tx, rt.ProductID)
	})
}

// ListByUser returns the user's ratings, newest first, with product display data.
func (r *RatingRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserRating, error) {
	query := `
		SELECT r.id, r.user_id, r.product_id, r.score, r.comment, r.created_at, r.updated_at,
		       p.name, p.brand, p.image_url, p.price, p.currency
		FROM product_ratings r
		JOIN products p ON p.id = r.product_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.UserRating, 0)
	for rows.Next() {
		var ur domain.UserRating
		if err := rows.Scan(
			&ur.ID, &ur.UserID, &ur.ProductID, &ur.Score, &ur.Comment, &ur.CreatedAt, &ur.UpdatedAt,
			&ur.Product.Name, &ur.Product.Brand, &ur.Product.ImageURL, &ur.Product.Price, &ur.Product.Currency,
		); err != nil {
			return nil, fmt.Errorf("scan user rating: %w", err)
		}
		ur.Product.ID = ur.ProductID
		ratings = append(ratings, ur)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user ratings: %w", err)
	}
	return ratings, nil
}

// ListByProduct returns a page of a product's ratings, newest first.
func (r *RatingRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Rating, int, error) {
	limit, offset := pageBounds(page, perPage)

	query := `
		SELECT id, user_id, product_id, score, comment, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM product_ratings
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list product ratings: %w", err)
	}
	defer rows.Close()

	var (
		ratings    = make([]domain.Rating, 0)
		totalCount int
	)
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.ProductID, &rt.Score, &rt.Comment, &rt.CreatedAt, &rt.UpdatedAt, &totalCount); err != nil {
			return nil, 0, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rating rows: %w", err)
	}
	return ratings, totalCount, nil
}

// TopRated ranks rated products by average score, then by review count.
func (r *RatingRepository) TopRated(ctx context.Context, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE review_count > 0
		ORDER BY average_rating DESC, review_count DESC, id
		LIMIT $1`

	products, err := queryProducts(ctx, r.pool, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	return products, nil
}
