// Command seed populates the storefront catalog with generated products and
// a spread of customer ratings so the ranking endpoints have data to show.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	pgrepo "github.com/utafrali/storefront/internal/repository/postgres"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

func main() {
	products := flag.Int("products", 200, "number of products to create")
	raters := flag.Int("raters", 25, "number of distinct users that rate products")
	seed := flag.Uint64("seed", 0, "random seed, 0 for a random run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log, *products, *raters, *seed); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, productCount, raterCount int, seed uint64) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	faker := gofakeit.New(seed)
	productRepo := pgrepo.NewProductRepository(pool)
	ratingRepo := pgrepo.NewRatingRepository(pool)

	// --------------------------------------------------------------------------
	// Products
	// --------------------------------------------------------------------------

	ids := make([]string, 0, productCount)
	for range productCount {
		p := fakeProduct(faker)
		if err := productRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %q: %w", p.Name, err)
		}
		ids = append(ids, p.ID)
	}
	log.Info("products created", slog.Int("count", len(ids)))

	// --------------------------------------------------------------------------
	// Ratings
	// --------------------------------------------------------------------------

	created, skipped := 0, 0
	for u := range raterCount {
		userID := fmt.Sprintf("seed-user-%03d", u)
		for _, productID := range ids {
			if faker.Float64() > 0.3 {
				continue
			}
			now := time.Now().UTC()
			_, err := ratingRepo.Create(ctx, &domain.Rating{
				ID:        uuid.New().String(),
				UserID:    userID,
				ProductID: productID,
				Score:     faker.Number(domain.MinScore, domain.MaxScore),
				Comment:   faker.Sentence(8),
				CreatedAt: now,
				UpdatedAt: now,
			})
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperrors.ErrConflict):
				skipped++
			default:
				return fmt.Errorf("rate product %s: %w", productID, err)
			}
		}
	}
	log.Info("ratings created", slog.Int("count", created), slog.Int("already_rated", skipped))
	return nil
}

func fakeProduct(f *gofakeit.Faker) *domain.Product {
	car := f.Car()
	now := time.Now().UTC()
	return &domain.Product{
		ID:           uuid.New().String(),
		Name:         fmt.Sprintf("%s %s %d", car.Brand, car.Model, car.Year),
		Brand:        car.Brand,
		Category:     domain.DefaultCategory,
		Description:  f.Paragraph(1, 3, 12, " "),
		ImageURL:     fmt.Sprintf("/images/%s.jpg", f.UUID()),
		Price:        int64(f.Number(500_00, 90_000_00)),
		Currency:     domain.DefaultCurrency,
		CountInStock: f.Number(0, 25),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
