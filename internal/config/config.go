package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	BackendSQLite  = "sqlite"
	BackendPostGIS = "postgis"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR"`

	DBPath          string `env:"DB_PATH" envDefault:"data/cityguesser.db"`
	LocationBackend string `env:"LOCATION_BACKEND" envDefault:"sqlite"`
	DatabaseURL     string `env:"DATABASE_URL"`
	SeedDemo        bool   `env:"SEED_DEMO" envDefault:"true"`

	RedisURL         string        `env:"REDIS_URL"`
	BoundaryCacheTTL time.Duration `env:"BOUNDARY_CACHE_TTL" envDefault:"24h"`

	StoreTimeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`

	JWTSecret         string   `env:"JWT_SECRET"`
	AdminEmail        string   `env:"ADMIN_EMAIL"`
	AdminPasswordHash string   `env:"ADMIN_PASSWORD_HASH"`
	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:","`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.LocationBackend {
	case BackendSQLite:
	case BackendPostGIS:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCATION_BACKEND must be %q or %q, got %q", BackendSQLite, BackendPostGIS, c.LocationBackend))
	}

	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if c.SessionIdleTTL <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TTL must be positive"))
	}
	if c.BoundaryCacheTTL <= 0 {
		errs = append(errs, errors.New("BOUNDARY_CACHE_TTL must be positive"))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 bytes"))
	}

	if c.AdminEmail != "" {
		if c.AdminPasswordHash == "" {
			errs = append(errs, errors.New("ADMIN_PASSWORD_HASH is required when ADMIN_EMAIL is set"))
		} else if _, err := bcrypt.Cost([]byte(c.AdminPasswordHash)); err != nil {
			errs = append(errs, fmt.Errorf("ADMIN_PASSWORD_HASH is not a bcrypt hash: %w", err))
		}
	}

	return errors.Join(errs...)
}
