package config

import (
	"fmt"

	pkgconfig "github.com/shopmicro/shopmicro/pkg/config"
)

// Config holds all configuration for the order service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"ORDER_HTTP_PORT" envDefault:"8082"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"shopmicro"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"shopmicro_secret"`
	PostgresDB   string `env:"ORDER_DB_NAME" envDefault:"order_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Product catalog dependency
	ProductServiceURL string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8081"`
	ResolveTimeoutSec int    `env:"ORDER_RESOLVE_TIMEOUT_SECONDS" envDefault:"15"`

	// Downstream HTTP client retry policy
	HTTPTimeoutSec    int     `env:"HTTP_CLIENT_TIMEOUT_SECONDS" envDefault:"10"`
	HTTPMaxRetries    int     `env:"HTTP_CLIENT_MAX_RETRIES" envDefault:"3"`
	HTTPRetryWaitMin  int     `env:"HTTP_CLIENT_RETRY_WAIT_MIN_MS" envDefault:"100"`
	HTTPRetryWaitMax  int     `env:"HTTP_CLIENT_RETRY_WAIT_MAX_MS" envDefault:"5000"`
	HTTPBackoffFactor float64 `env:"HTTP_CLIENT_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	HTTPJitter        float64 `env:"HTTP_CLIENT_JITTER" envDefault:"0.2"`

	// Circuit breaker
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBIntervalSec  int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeoutSec   int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load order config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.PostgresHost == "" {
		return nil, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.PostgresUser == "" {
		return nil, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.ProductServiceURL == "" {
		return nil, fmt.Errorf("PRODUCT_SERVICE_URL is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.HTTPMaxRetries < 0 {
		return nil, fmt.Errorf("HTTP_CLIENT_MAX_RETRIES must not be negative")
	}
	if cfg.CBFailureRatio <= 0 || cfg.CBFailureRatio > 1.0 {
		return nil, fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %f", cfg.CBFailureRatio)
	}
	if cfg.OTELSampleRate < 0 || cfg.OTELSampleRate > 1.0 {
		return nil, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", cfg.OTELSampleRate)
	}
	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
