package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services groups the application services the router exposes.
type Services struct {
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Orders    *service.OrderService
	Ratings   *service.RatingService
	Trending  *service.TrendingService
	Favorites *service.FavoriteService
}

// RouterConfig carries the transport settings of the router.
type RouterConfig struct {
	JWTSecret string
	CORS      middleware.CORSConfig
	// RateLimiter throttles authenticated requests. Nil disables throttling.
	RateLimiter *middleware.RateLimiter
	PprofCIDRs  []string
	// RankingMaxAge is the Cache-Control max-age, in seconds, of the
	// top-rated and trending endpoints.
	RankingMaxAge int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing())

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	products := NewProductHandler(svc.Catalog, svc.Ratings, svc.Trending, logger)
	ratings := NewRatingHandler(svc.Ratings, logger)
	carts := NewCartHandler(svc.Cart, logger)
	orders := NewOrderHandler(svc.Orders, logger)
	favorites := NewFavoriteHandler(svc.Favorites, logger)

	authenticated := func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.JWTSecret, logger))
		r.Use(middleware.RequestLogger(logger))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware(logger))
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public catalog
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestLogger(logger))
			r.Get("/products", products.ListProducts)
			r.Get("/products/{id}", products.GetProduct)
			r.Get("/products/{id}/ratings", ratings.ListForProduct)

			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(cfg.RankingMaxAge))
				r.Get("/products/top-rated", products.TopRated)
				r.Get("/products/trending", products.Trending)
			})
		})

		// Customer endpoints
		r.Group(func(r chi.Router) {
			authenticated(r)

			r.Post("/products/{id}/ratings", ratings.Submit)
			r.Put("/products/{id}/ratings", ratings.Update)
			r.Get("/me/ratings", ratings.ListMine)
			r.Get("/me/favorites", favorites.List)
			r.Post("/me/favorites/toggle", favorites.Toggle)

			r.Get("/cart", carts.GetCart)
			r.Delete("/cart", carts.ClearCart)
			r.Post("/cart/items", carts.AddItem)
			r.Delete("/cart/items/{productId}", carts.RemoveItem)

			r.Post("/orders", orders.CreateOrder)
			r.Get("/orders", orders.ListOrders)
			r.Get("/orders/{id}", orders.GetOrder)
			r.Post("/orders/{id}/cancel", orders.CancelOrder)
		})

		// Admin endpoints
		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Use(middleware.RequireAdmin(logger))

			r.Post("/products", products.CreateProduct)
			r.Put("/products/{id}", products.UpdateProduct)
			r.Delete("/products/{id}", products.DeleteProduct)
			r.Post("/orders/{id}/confirm", orders.ConfirmOrder)
		})
	})

	return r
}
