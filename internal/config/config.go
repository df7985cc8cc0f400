package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/utafrali/storefront/pkg/database"
)

// Notification channels.
const (
	NotifyChannelLog   = "log"
	NotifyChannelHTTP  = "http"
	NotifyChannelKafka = "kafka"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int      `env:"HTTP_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS       float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst     int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`

	// Authentication
	JWTSecret string `env:"JWT_SECRET"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	PostgresMinConns int32         `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	SlowQuery        time.Duration `env:"POSTGRES_SLOW_QUERY" envDefault:"200ms"`

	// Redis
	RedisAddr    string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass    string `env:"REDIS_PASSWORD"`
	RedisDB      int    `env:"REDIS_DB" envDefault:"0"`
	CartTTLHours int    `env:"CART_TTL_HOURS" envDefault:"168"`

	// Kafka. An empty broker list disables events and the order-event consumer.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront-trending"`

	// Notifications
	NotifyChannel          string        `env:"NOTIFY_CHANNEL" envDefault:"log"`
	NotifyTimeout          time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	NotificationServiceURL string        `env:"NOTIFICATION_SERVICE_URL" envDefault:"http://localhost:8008"`

	// Rankings
	TrendingMinQuantity     int           `env:"TRENDING_MIN_QUANTITY" envDefault:"2"`
	TrendingLimit           int           `env:"TRENDING_LIMIT" envDefault:"10"`
	TrendingCacheTTL        time.Duration `env:"TRENDING_CACHE_TTL" envDefault:"5m"`
	TrendingRefreshInterval time.Duration `env:"TRENDING_REFRESH_INTERVAL" envDefault:"1m"`
	TopRatedLimit           int           `env:"TOP_RATED_LIMIT" envDefault:"10"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if !slices.Contains([]string{NotifyChannelLog, NotifyChannelHTTP, NotifyChannelKafka}, c.NotifyChannel) {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_CHANNEL: %q", c.NotifyChannel))
	}
	if c.NotifyChannel == NotifyChannelKafka && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("NOTIFY_CHANNEL=kafka requires KAFKA_BROKERS"))
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_TIMEOUT: %s", c.NotifyTimeout))
	}
	if c.CartTTLHours < 1 {
		errs = append(errs, fmt.Errorf("invalid CART_TTL_HOURS: %d", c.CartTTLHours))
	}
	if c.TrendingMinQuantity < 1 {
		errs = append(errs, fmt.Errorf("invalid TRENDING_MIN_QUANTITY: %d", c.TrendingMinQuantity))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v", c.OTELSampleRate))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Postgres returns the connection settings for the pool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        c.PostgresMinConns,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// CartTTL is how long an untouched cart survives.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}
