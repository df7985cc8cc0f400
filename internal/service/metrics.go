package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_total",
		Help: "Order lifecycle transitions by resulting status.",
	}, []string{"status"})

	ratingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_ratings_total",
		Help: "Rating writes by operation and result.",
	}, []string{"operation", "result"})

	favoriteTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_favorite_toggles_total",
		Help: "Favorite toggles by resulting state.",
	}, []string{"result"})

	trendingRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_trending_refresh_duration_seconds",
		Help:    "Time spent computing the trending report.",
		Buckets: prometheus.DefBuckets,
	})
)
