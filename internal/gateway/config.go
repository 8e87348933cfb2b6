package gateway

import (
	"encoding/base64"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer    string // Issuer expected in access tokens
	JWTSecret []byte // Required: same HS256 secret the auth service signs with

	RedisAddr     string // Optional: shared denylist; empty means no blacklist check
	RedisPassword string
	RedisDB       int

	UserServiceURL       string // Backend for /api/auth and /api/users
	OrderServiceURL      string // Backend for /api/orders and /api/cart
	RestaurantServiceURL string // Backend for /api/restaurants and /api/menu

	Env                 string
	LogLevel            string
	LogFormat           string
	Port                int
	ShutdownGracePeriod time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("AUTH_ISSUER", "quickbite-auth"),
		RedisAddr:            os.Getenv("GATEWAY_REDIS_ADDR"),
		RedisPassword:        os.Getenv("GATEWAY_REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("GATEWAY_REDIS_DB", 0),
		UserServiceURL:       getEnvOrDefault("GATEWAY_USER_SERVICE_URL", "http://localhost:8080"),
		OrderServiceURL:      getEnvOrDefault("GATEWAY_ORDER_SERVICE_URL", "http://localhost:8081"),
		RestaurantServiceURL: getEnvOrDefault("GATEWAY_RESTAURANT_SERVICE_URL", "http://localhost:8082"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8000),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if raw := os.Getenv("AUTH_JWT_SECRET"); raw != "" {
		if secret, err := base64.StdEncoding.DecodeString(raw); err == nil {
			cfg.JWTSecret = secret
		}
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
