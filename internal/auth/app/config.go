package app

import (
	"encoding/base64"
	"os"
	"strconv"
	"time"

	"github.com/quickbite/platform/pkg/jwtx"
)

type Config struct {
	Issuer    string // Issuer claim stamped into access tokens
	JWTSecret []byte // Required: base64-encoded HS256 secret, 32+ bytes decoded

	AccessTTL       time.Duration // Access token lifetime (default: 15m)
	RefreshTTL      time.Duration // Refresh token lifetime (default: 30 days)
	BlacklistMaxTTL time.Duration // Cap on blacklist entry lifetime (default: 24h)

	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	PepperFile   string // Path to pepper file for password hashing (default: ./pepper)

	RedisAddr     string // Optional: host:port; empty selects in-memory caches
	RedisPassword string
	RedisDB       int

	AdminEmail    string // Optional: bootstrap admin account email
	AdminPassword string // Optional: bootstrap admin password; generated when empty

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("AUTH_ISSUER", "quickbite-auth"),
		AccessTTL:            getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:           getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		BlacklistMaxTTL:      getEnvDurationOrDefault("AUTH_BLACKLIST_MAX_TTL", 24*time.Hour),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		RedisAddr:            os.Getenv("AUTH_REDIS_ADDR"),
		RedisPassword:        os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("AUTH_REDIS_DB", 0),
		AdminEmail:           os.Getenv("AUTH_ADMIN_EMAIL"),
		AdminPassword:        os.Getenv("AUTH_ADMIN_PASSWORD"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if raw := os.Getenv("AUTH_JWT_SECRET"); raw != "" {
		if secret, err := base64.StdEncoding.DecodeString(raw); err == nil {
			cfg.JWTSecret = secret
		}
		// A secret that fails to decode stays nil and fails fast in New.
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
