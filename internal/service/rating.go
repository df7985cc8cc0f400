package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Top-rated limits.
const (
	DefaultTopRatedLimit = 10
	MaxTopRatedLimit     = 50
)

const maxCommentLength = 2000

// RatingInput is the body of a rating submission or edit.
type RatingInput struct {
	Score   int    `json:"score" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// RatingResult is a stored rating with the product aggregate after the write.
type RatingResult struct {
	Rating    *domain.Rating         `json:"rating"`
	Aggregate domain.RatingAggregate `json:"aggregate"`
}

// RatingService implements the rating ledger.
type RatingService struct {
	repo          repository.RatingRepository
	products      repository.ProductRepository
	producer      *event.Producer
	logger        *slog.Logger
	topRatedLimit int
}

// NewRatingService creates a new rating service. topRatedLimit is the
// default size of TopRated when the caller gives none.
func NewRatingService(
	repo repository.RatingRepository,
	products repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
	topRatedLimit int,
) *RatingService {
	if topRatedLimit <= 0 || topRatedLimit > MaxTopRatedLimit {
		topRatedLimit = DefaultTopRatedLimit
	}
	return &RatingService{
		repo:          repo,
		products:      products,
		producer:      producer,
		logger:        logger,
		topRatedLimit: topRatedLimit,
	}
}

func validateRating(userID string, input RatingInput) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if !domain.ValidScore(input.Score) {
		return apperrors.InvalidInput(fmt.Sprintf("score must be between %d and %d", domain.MinScore, domain.MaxScore))
	}
	if utf8.RuneCountInString(input.Comment) > maxCommentLength {
		return apperrors.InvalidInput(fmt.Sprintf("comment must not exceed %d characters", maxCommentLength))
	}
	return nil
}

// Submit records the user's first rating of a product and returns the
// product's new aggregate. A second submission is a conflict.
func (s *RatingService) Submit(ctx context.Context, userID, productID string, input RatingInput) (*RatingResult, error) {
	if err := validateRating(userID, input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &domain.Rating{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Score:     input.Score,
		Comment:   strings.TrimSpace(input.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}

	agg, err := s.repo.Create(ctx, r)
	if err != nil {
		result := "error"
		if errors.Is(err, apperrors.ErrConflict) {
			result = "conflict"
		}
		ratingsTotal.WithLabelValues("submit", result).Inc()
		return nil, fmt.Errorf("submit rating: %w", err)
	}
	ratingsTotal.WithLabelValues("submit", "accepted").Inc()

	s.logger.InfoContext(ctx, "rating submitted",
		slog.String("product_id", productID),
		slog.String("user_id", userID),
		slog.Int("score", r.Score),
		slog.Float64("average_rating", agg.Average),
		slog.Int("review_count", agg.Count),
	)
	s.publish(ctx, r, agg)

	return &RatingResult{Rating: r, Aggregate: agg}, nil
}

// Update edits the user's existing rating of a product.
func (s *RatingService) Update(ctx context.Context, userID, productID string, input RatingInput) (*RatingResult, error) {
	if err := validateRating(userID, input); err != nil {
		return nil, err
	}

	r := &domain.Rating{
		UserID:    userID,
		ProductID: productID,
		Score:     input.Score,
		Comment:   strings.TrimSpace(input.Comment),
		UpdatedAt: time.Now().UTC(),
	}

	agg, err := s.repo.Update(ctx, r)
	if err != nil {
		ratingsTotal.WithLabelValues("update", "error").Inc()
		return nil, fmt.Errorf("update rating: %w", err)
	}
	ratingsTotal.WithLabelValues("update", "accepted").Inc()

	s.logger.InfoContext(ctx, "rating updated",
		slog.String("product_id", productID),
		slog.String("user_id", userID),
		slog.Int("score", r.Score),
	)
	s.publish(ctx, r, agg)

	return &RatingResult{Rating: r, Aggregate: agg}, nil
}

func (s *RatingService) publish(ctx context.Context, r *domain.Rating, agg domain.RatingAggregate) {
	if err := s.producer.PublishRatingSubmitted(ctx, r, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish rating.submitted event",
			slog.String("product_id", r.ProductID),
			slog.String("error", err.Error()),
		)
	}
}

// ListByUser returns the user's ratings with product display data.
func (s *RatingService) ListByUser(ctx context.Context, userID string) ([]domain.UserRating, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	ratings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user ratings: %w", err)
	}
	return ratings, nil
}

// ListForProduct returns a page of a product's ratings.
func (s *RatingService) ListForProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Rating, int, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, 0, fmt.Errorf("list product ratings: %w", err)
	}
	ratings, total, err := s.repo.ListByProduct(ctx, productID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list product ratings: %w", err)
	}
	return ratings, total, nil
}

// TopRated returns at most limit rated products, best first. A non-positive
// limit uses the configured default; larger limits are capped.
func (s *RatingService) TopRated(ctx context.Context, limit int) ([]domain.Product, error) {
	switch {
	case limit <= 0:
		limit = s.topRatedLimit
	case limit > MaxTopRatedLimit:
		limit = MaxTopRatedLimit
	}

	products, err := s.repo.TopRated(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top rated: %w", err)
	}
	return products, nil
}
