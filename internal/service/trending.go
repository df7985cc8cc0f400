package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// TrendingConfig tunes the trending report.
type TrendingConfig struct {
	MinQuantity     int
	Limit           int
	CacheTTL        time.Duration
	RefreshInterval time.Duration
}

// DefaultTrendingConfig returns the defaults used when nothing is configured.
func DefaultTrendingConfig() TrendingConfig {
	return TrendingConfig{
		MinQuantity:     2,
		Limit:           10,
		CacheTTL:        5 * time.Minute,
		RefreshInterval: time.Minute,
	}
}

// TrendingService ranks products by cumulative ordered quantity.
type TrendingService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	cache    repository.TrendingCache
	cfg      TrendingConfig
	logger   *slog.Logger
}

// NewTrendingService creates a new trending service. cache may be nil.
func NewTrendingService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	cache repository.TrendingCache,
	cfg TrendingConfig,
	logger *slog.Logger,
) *TrendingService {
	return &TrendingService{
		orders:   orders,
		products: products,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Trending returns the cached report, computing and caching it on a miss.
// Cache failures fall back to a fresh computation.
func (s *TrendingService) Trending(ctx context.Context) ([]domain.TrendingProduct, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "trending cache read failed", slog.String("error", err.Error()))
		} else if ok {
			return cached, nil
		}
	}
	return s.Refresh(ctx)
}

// Compute scans non-cancelled orders and builds the report.
func (s *TrendingService) Compute(ctx context.Context) ([]domain.TrendingProduct, error) {
	start := time.Now()
	defer func() { trendingRefreshDuration.Observe(time.Since(start).Seconds()) }()

	totals, err := s.orders.ProductQuantities(ctx)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}

	ranked := domain.RankTrending(totals, s.cfg.MinQuantity, s.cfg.Limit)
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ProductID
	}

	products, err := lookupProducts(ctx, s.products, ids)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	return domain.JoinTrending(ranked, products), nil
}

// Refresh recomputes the report and stores it in the cache.
func (s *TrendingService) Refresh(ctx context.Context) ([]domain.TrendingProduct, error) {
	report, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, report, s.cfg.CacheTTL); err != nil {
			s.logger.WarnContext(ctx, "trending cache write failed", slog.String("error", err.Error()))
		}
	}
	return report, nil
}

// Invalidate drops the cached report so the next read recomputes it.
func (s *TrendingService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate trending: %w", err)
	}
	return nil
}

// HandleOrderEvent invalidates the report when an order changes.
func (s *TrendingService) HandleOrderEvent(ctx context.Context, evt *pkgkafka.Event) error {
	s.logger.DebugContext(ctx, "order event received, invalidating trending",
		slog.String("event_type", evt.EventType),
		slog.String("order_id", evt.AggregateID),
	)
	return s.Invalidate(ctx)
}

// RunRefresher refreshes the report every RefreshInterval until ctx is done.
func (s *TrendingService) RunRefresher(ctx context.Context) {
	if s.cfg.RefreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "trending refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
