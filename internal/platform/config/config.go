package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type HTTPConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	LogLevel    string
	Env         string
	HTTP        HTTPConfig
	DatabaseURL string
	NATSURL     string
	RedisURL    string
	JWTSecret   string
}

// Production reports whether the service runs with production semantics
// (fail-fast on missing backends instead of in-memory fallbacks).
func (c AppConfig) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads service configuration from the environment. A local .env file
// is applied first when present so development setups need no exported vars.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	cfg := AppConfig{
		ServiceName: getenv("SERVICE_NAME"),
		LogLevel:    getenv("LOG_LEVEL"),
		Env:         getenv("APP_ENV"),
		HTTP: HTTPConfig{
			Addr: getenv("HTTP_ADDR"),
		},
		DatabaseURL: getenv("DATABASE_URL"),
		NATSURL:     getenv("NATS_URL"),
		RedisURL:    getenv("REDIS_URL"),
		JWTSecret:   getenv("JWT_SECRET"),
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
