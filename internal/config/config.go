// Package config loads and validates application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// SessionKey is the 32-byte PASETO v4.local key as 64 hex characters. Required.
	SessionKey string

	// SessionTTL is the lifetime of tokens minted with auth.Verifier.Issue.
	// Defaults to 720h.
	SessionTTL time.Duration

	// RedisURL selects the shared Redis bucket store when set
	// (e.g. redis://localhost:6379/0). Empty keeps buckets in process memory.
	RedisURL string

	// RateLimit is the number of guarded requests per client per window. Defaults to 100.
	RateLimit int

	// RateLimitWindow is the fixed window length. Defaults to 24h.
	RateLimitWindow time.Duration

	// RateLimitCleanupInterval is how often expired buckets are purged.
	// Defaults to 10m; 0 disables the janitor.
	RateLimitCleanupInterval time.Duration

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// SummaryURL is the AI summary endpoint. Empty disables POST /summaries (503).
	SummaryURL string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// values that could not be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:    os.Getenv("REDIS_URL"),
		SummaryURL:  os.Getenv("SUMMARY_URL"),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionKey = os.Getenv("SESSION_KEY")
	switch {
	case cfg.SessionKey == "":
		missing = append(missing, "SESSION_KEY")
	case !isHexKey(cfg.SessionKey):
		invalid = append(invalid, "SESSION_KEY (want 64 hex characters)")
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 720*time.Hour); err != nil {
		invalid = append(invalid, err.Error())
	}
	if cfg.RateLimit, err = getInt("RATE_LIMIT", 100); err != nil {
		invalid = append(invalid, err.Error())
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", 24*time.Hour); err != nil {
		invalid = append(invalid, err.Error())
	}
	if cfg.RateLimitCleanupInterval, err = getDuration("RATE_LIMIT_CLEANUP_INTERVAL", 10*time.Minute); err != nil {
		invalid = append(invalid, err.Error())
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		invalid = append(invalid, err.Error())
	}
	cfg.MaxBodyBytes = int64(maxBody)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, "; "))
	}
	if cfg.RateLimit < 1 || cfg.RateLimitWindow <= 0 {
		return Config{}, fmt.Errorf("invalid environment variables: RATE_LIMIT and RATE_LIMIT_WINDOW must be positive")
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback, fmt.Errorf("%s=%q (want a non-negative integer)", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback, fmt.Errorf("%s=%q (want a duration such as 10m)", key, v)
	}
	return d, nil
}

func isHexKey(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
