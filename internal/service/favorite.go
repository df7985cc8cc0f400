package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// FavoriteService manages the products a user has marked as favorites.
type FavoriteService struct {
	repo   repository.FavoriteRepository
	logger *slog.Logger
}

// NewFavoriteService creates a new favorite service.
func NewFavoriteService(repo repository.FavoriteRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{repo: repo, logger: logger}
}

// Toggle flips productID in the user's favorites.
func (s *FavoriteService) Toggle(ctx context.Context, userID, productID string) (*domain.FavoriteToggle, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}

	favorited, err := s.repo.Toggle(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}

	result := "removed"
	if favorited {
		result = "added"
	}
	favoriteTogglesTotal.WithLabelValues(result).Inc()

	s.logger.InfoContext(ctx, "favorite toggled",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.Bool("favorited", favorited),
	)
	return &domain.FavoriteToggle{ProductID: productID, Favorited: favorited}, nil
}

// List returns a page of the user's favorites with product display data.
func (s *FavoriteService) List(ctx context.Context, userID string, page, perPage int) ([]domain.Favorite, int, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("authentication required")
	}
	favorites, total, err := s.repo.ListByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	return favorites, total, nil
}
