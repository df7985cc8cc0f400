package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// maxCartWriteAttempts bounds the optimistic-lock retry loop.
const maxCartWriteAttempts = 3

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		logger:   logger,
	}
}

// List returns the user's lines with product display data. Lines whose
// product was deleted are returned as unavailable placeholders.
func (s *CartService) List(ctx context.Context, userID string) ([]domain.CartLineView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.resolve(ctx, cart)
}

// AddOrUpdate sets the line for productID. A nil quantity adds one unit to a
// new line and leaves an existing line unchanged.
func (s *CartService) AddOrUpdate(ctx context.Context, userID, productID string, quantity *int) ([]domain.CartLineView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if quantity != nil {
		if *quantity < 1 {
			return nil, apperrors.InvalidInput("quantity must be at least 1; use remove to delete a line")
		}
		if *quantity > domain.MaxQuantityPerLine {
			return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxQuantityPerLine))
		}
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	cart, err := s.mutate(ctx, userID, func(c *domain.Cart) (bool, error) {
		if c.Find(productID) < 0 && len(c.Lines) >= domain.MaxLinesPerCart {
			return false, apperrors.InvalidInput(fmt.Sprintf("cart must not exceed %d lines", domain.MaxLinesPerCart))
		}
		c.Upsert(productID, quantity)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "cart line set",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
	)
	return s.resolve(ctx, cart)
}

// Remove deletes the line for productID. Removing an absent line is a no-op.
func (s *CartService) Remove(ctx context.Context, userID, productID string) ([]domain.CartLineView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	cart, err := s.mutate(ctx, userID, func(c *domain.Cart) (bool, error) {
		return c.Remove(productID) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, cart)
}

// RemoveLines drops the given products from the cart after checkout.
func (s *CartService) RemoveLines(ctx context.Context, userID string, productIDs []string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	_, err := s.mutate(ctx, userID, func(c *domain.Cart) (bool, error) {
		return c.Remove(productIDs...) > 0, nil
	})
	return err
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	s.logger.InfoContext(ctx, "cart cleared", slog.String("user_id", userID))
	return nil
}

// mutate applies fn to a fresh copy of the cart and saves it if the stored
// version has not moved, retrying a bounded number of times.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(*domain.Cart) (bool, error)) (*domain.Cart, error) {
	for attempt := 1; attempt <= maxCartWriteAttempts; attempt++ {
		cart, err := s.repo.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}

		changed, err := fn(cart)
		if err != nil {
			return nil, err
		}
		if !changed {
			return cart, nil
		}

		expected := cart.Version
		cart.UpdatedAt = time.Now().UTC()
		saved, err := s.repo.SaveIfVersion(ctx, cart, expected)
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}
		if saved {
			return cart, nil
		}

		s.logger.DebugContext(ctx, "cart version moved, retrying",
			slog.String("user_id", userID),
			slog.Int("attempt", attempt),
		)
	}
	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) resolve(ctx context.Context, cart *domain.Cart) ([]domain.CartLineView, error) {
	products, err := lookupProducts(ctx, s.products, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	return domain.ResolveCartLines(cart.Lines, products), nil
}
