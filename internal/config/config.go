package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the service configuration, read from the environment.
type Config struct {
	Port     string `validate:"required,numeric"`
	DBDriver string `validate:"oneof=pgx sqlite"`
	// DatabaseURL is a Postgres URL for pgx or a file path / DSN for sqlite.
	DatabaseURL string `validate:"required"`
	SeedPath    string

	DirectionsProvider string `validate:"oneof=ors google none"`
	ORSAPIKey          string `validate:"required_if=DirectionsProvider ors"`
	ORSProfile         string
	GoogleMapsAPIKey   string `validate:"required_if=DirectionsProvider google"`
	// MaxStopovers is the provider's cap on intermediate stops per request.
	MaxStopovers      int           `validate:"gt=0"`
	DirectionsTimeout time.Duration `validate:"gt=0"`

	PathCacheSize   int           `validate:"gt=0"`
	PathFallbackTTL time.Duration `validate:"gte=0"`
	RedisURL        string        `validate:"omitempty,url"`

	SnapThresholdDegrees float64 `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
}

// LoadDotEnv loads a .env file when present. It reports whether one was found.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load builds a Config from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               Get("PORT", "8080"),
		DBDriver:           Get("DB_DRIVER", "pgx"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SeedPath:           Get("SEED_PATH", "data/seeds/routes.yaml"),
		DirectionsProvider: Get("DIRECTIONS_PROVIDER", "ors"),
		ORSAPIKey:          strings.TrimSpace(os.Getenv("ORS_API_KEY")),
		ORSProfile:         Get("ORS_PROFILE", "driving-car"),
		GoogleMapsAPIKey:   strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
		LogLevel:           Get("LOG_LEVEL", "info"),
		LogFormat:          Get("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.MaxStopovers, err = getInt("DIRECTIONS_MAX_STOPOVERS", 23); err != nil {
		return nil, err
	}
	if cfg.DirectionsTimeout, err = getDuration("DIRECTIONS_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PathCacheSize, err = getInt("PATH_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.PathFallbackTTL, err = getDuration("PATH_FALLBACK_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SnapThresholdDegrees, err = getFloat("SNAP_THRESHOLD_DEGREES", 0.002); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// Get returns the value of the environment variable key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("load config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("load config: %s=%q is not a number: %w", key, v, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("load config: %s=%q is not a duration: %w", key, v, err)
	}
	return d, nil
}
