// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully resolved server configuration.
type Config struct {
	Port string

	// DatabaseURL enables the PostgreSQL snapshot store; empty means
	// in-memory.
	DatabaseURL string

	// RedisURL enables the market data read-through cache; empty means
	// no caching.
	RedisURL string

	// MarketSource selects the data source: "yahoo" or "none".
	MarketSource string

	// SourceTimeout bounds each upstream request.
	SourceTimeout time.Duration

	// RefreshInterval drives the background chain refresher; zero
	// disables it.
	RefreshInterval time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	return Config{
		Port:            envOr("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MarketSource:    envOr("MARKET_SOURCE", "yahoo"),
		SourceTimeout:   durationOr("SOURCE_TIMEOUT", 10*time.Second),
		RefreshInterval: durationOr("REFRESH_INTERVAL", 30*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", raw)
		return fallback
	}
	return d
}
