package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const minSecretLen = 16

type Config struct {
	Env  string
	Port int

	CORSOrigin string

	DBURL string

	AccessSecret  string
	RefreshSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RefreshCookieName string

	BcryptCost int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string
}

func Load() (Config, error) {
	cfg := Config{
		Env:               getEnv("APP_ENV", "dev"),
		Port:              getEnvInt("PORT", 5000),
		CORSOrigin:        getEnv("CORS_ORIGIN", "http://localhost:3000"),
		DBURL:             getEnv("DATABASE_URL", ""),
		AccessSecret:      os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:     os.Getenv("JWT_REFRESH_SECRET"),
		RefreshCookieName: getEnv("REFRESH_TOKEN_COOKIE_NAME", "refreshToken"),
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DBURL == "" {
		cfg.DBURL = buildDBURL()
	}

	if len(cfg.AccessSecret) < minSecretLen {
		return Config{}, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters", minSecretLen)
	}

	if len(cfg.RefreshSecret) < minSecretLen {
		return Config{}, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters", minSecretLen)
	}

	var err error

	cfg.AccessTokenTTL, err = ParseExpiry(getEnv("ACCESS_TOKEN_EXPIRES_IN", "15m"))

	if err != nil {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_EXPIRES_IN: %w", err)
	}

	cfg.RefreshTokenTTL, err = ParseExpiry(getEnv("REFRESH_TOKEN_EXPIRES_IN", "7d"))

	if err != nil {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_EXPIRES_IN: %w", err)
	}

	return cfg, nil
}

// ParseExpiry reads durations like "15m" or "7d". The "d" suffix is not part of
// time.ParseDuration, so it is handled here as 24h units.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))

		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid duration %q: use patterns like 15m, 7d", s)
		}

		return time.Duration(days) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)

	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %q: use patterns like 15m, 7d", s)
	}

	return d, nil
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskhub")
	pass := getEnv("DB_PASSWORD", "taskhub")
	name := getEnv("DB_NAME", "taskhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}

	return fallback
}
