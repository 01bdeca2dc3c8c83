package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/AlwanWZ/shophub/pkg/config"
	"github.com/AlwanWZ/shophub/pkg/database"
)

// Snapshot backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the shophub server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Snapshot persistence
	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"redis"`
	CartTTL         int    `env:"CART_TTL_HOURS" envDefault:"168"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"shophub"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"shophub"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"shophub"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`

	// Upstreams
	ProductsUpstreamURL string        `env:"PRODUCTS_UPSTREAM_URL" envDefault:"https://fakestoreapi.com/products"`
	StudentsUpstreamURL string        `env:"STUDENTS_UPSTREAM_URL" envDefault:"https://mmc-clinic.com/dipa/api/mhs.php"`
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`

	// Sessions
	StockCeiling   int           `env:"STOCK_CEILING" envDefault:"20"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Proxy rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load shophub config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SnapshotBackend {
	case BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown SNAPSHOT_BACKEND %q (want %s or %s)", c.SnapshotBackend, BackendRedis, BackendPostgres)
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("CART_TTL_HOURS must not be negative: %d", c.CartTTL)
	}
	if c.StockCeiling < 0 {
		return fmt.Errorf("STOCK_CEILING must not be negative: %d", c.StockCeiling)
	}
	if c.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be positive")
	}
	if c.ProductsUpstreamURL == "" {
		return errors.New("PRODUCTS_UPSTREAM_URL is required")
	}
	if c.StudentsUpstreamURL == "" {
		return errors.New("STUDENTS_UPSTREAM_URL is required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTelSampleRate)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid proxy rate limit: rps=%v burst=%d", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}

// CartTTLDuration returns the snapshot time-to-live.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Postgres returns the PostgreSQL connection settings.
func (c *Config) Postgres() *database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	pg.MaxConns = c.PostgresMaxConns
	return &pg
}
