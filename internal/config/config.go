package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/LogiScore/backend-sub000/pkg/config"
	"github.com/LogiScore/backend-sub000/pkg/database"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"REVIEW_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"logiscore"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"logiscore_secret"`
	PostgresDB   string `env:"REVIEW_DB_NAME" envDefault:"review_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis score cache. An empty host falls back to the in-memory cache.
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	ScoreCacheTTL time.Duration `env:"SCORE_CACHE_TTL" envDefault:"5m"`

	// Kafka. Empty broker list disables event publishing and consumers.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Background jobs
	DailyDigestInterval   time.Duration `env:"DAILY_DIGEST_INTERVAL" envDefault:"24h"`
	WeeklyDigestInterval  time.Duration `env:"WEEKLY_DIGEST_INTERVAL" envDefault:"168h"`
	ThresholdSweepEvery   time.Duration `env:"THRESHOLD_SWEEP_INTERVAL" envDefault:"1h"`
	MaintenanceEvery      time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"6h"`
	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"2160h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load review config: %w", err)
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
	if c.ScoreCacheTTL <= 0 {
		return fmt.Errorf("score cache TTL must be positive, got %s", c.ScoreCacheTTL)
	}
	if c.NotificationRetention <= 0 {
		return fmt.Errorf("notification retention must be positive, got %s", c.NotificationRetention)
	}
	return nil
}

// Redis returns the connection settings for the score cache.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// Postgres returns the pool configuration for the review database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}
