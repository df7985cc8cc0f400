package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name         string `json:"name" validate:"required,max=200"`
	Brand        string `json:"brand" validate:"max=100"`
	Category     string `json:"category" validate:"max=100"`
	Description  string `json:"description" validate:"max=5000"`
	ImageURL     string `json:"image_url" validate:"max=500"`
	Price        int64  `json:"price" validate:"gte=0"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
	CountInStock int    `json:"count_in_stock" validate:"gte=0"`
}

// UpdateProductInput holds the fields an admin may change. Nil fields are left as they are.
type UpdateProductInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Brand        *string `json:"brand" validate:"omitempty,max=100"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	ImageURL     *string `json:"image_url" validate:"omitempty,max=500"`
	Price        *int64  `json:"price" validate:"omitempty,gte=0"`
	Currency     *string `json:"currency" validate:"omitempty,len=3"`
	CountInStock *int    `json:"count_in_stock" validate:"omitempty,gte=0"`
}

// CatalogService implements catalog reads and admin writes.
type CatalogService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
	}
}

// ListProducts returns a filtered page of products.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// GetProduct retrieves a product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// CreateProduct adds a product with no ratings.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(input.Name),
		Brand:        input.Brand,
		Category:     input.Category,
		Description:  input.Description,
		ImageURL:     input.ImageURL,
		Price:        input.Price,
		Currency:     strings.ToUpper(input.Currency),
		CountInStock: input.CountInStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.Category == "" {
		p.Category = domain.DefaultCategory
	}
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("name", p.Name),
	)
	return p, nil
}

// UpdateProduct copies the given fields onto the product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Brand != nil {
		p.Brand = *input.Brand
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.ImageURL != nil {
		p.ImageURL = *input.ImageURL
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		p.Price = *input.Price
	}
	if input.Currency != nil {
		p.Currency = strings.ToUpper(*input.Currency)
	}
	if input.CountInStock != nil {
		p.CountInStock = *input.CountInStock
	}
	if p.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

// DeleteProduct removes a product. Orders that reference it keep their items.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// lookupProducts loads the existing products among ids, indexed by ID.
func lookupProducts(ctx context.Context, repo repository.ProductRepository, ids []string) (map[string]*domain.Product, error) {
	if len(ids) == 0 {
		return map[string]*domain.Product{}, nil
	}
	products, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return domain.ProductsByID(products), nil
}
