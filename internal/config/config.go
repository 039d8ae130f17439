package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/shoptrust/reviews/pkg/config"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"REVIEWS_HTTP_PORT" envDefault:"8011"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"shoptrust"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"shoptrust_secret"`
	PostgresDB   string `env:"REVIEWS_DB_NAME" envDefault:"reviews_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (trust summary cache)
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"TRUST_CACHE_TTL" envDefault:"15m"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Downstream services
	MerchantServiceURL string `env:"MERCHANT_SERVICE_URL" envDefault:"http://localhost:8002"`
	OrderServiceURL    string `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:8004"`

	// Background trust summary refresh
	SummaryRefreshInterval time.Duration `env:"SUMMARY_REFRESH_INTERVAL" envDefault:"1h"`
	SummaryStaleAfter      time.Duration `env:"SUMMARY_STALE_AFTER" envDefault:"24h"`
	SummaryStaleBatch      int           `env:"SUMMARY_STALE_BATCH" envDefault:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load reviews config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SummaryRefreshInterval <= 0 {
		return fmt.Errorf("SUMMARY_REFRESH_INTERVAL must be positive, got %s", c.SummaryRefreshInterval)
	}
	if c.SummaryStaleAfter <= 0 {
		return fmt.Errorf("SUMMARY_STALE_AFTER must be positive, got %s", c.SummaryStaleAfter)
	}
	if c.SummaryStaleBatch < 1 {
		return fmt.Errorf("SUMMARY_STALE_BATCH must be at least 1, got %d", c.SummaryStaleBatch)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("TRUST_CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
