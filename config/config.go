package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	OIDCIssuer       string
	OIDCClientID     string
	GuestTokenSecret string
	GuestTokenTTL    time.Duration
	CORSOrigins      []string
	// SkipNavCheck disables the startup check that every category has a
	// navigation kind.
	SkipNavCheck bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		OIDCIssuer:       getEnv("OIDC_ISSUER", "https://accounts.google.com"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		GuestTokenSecret: os.Getenv("GUEST_TOKEN_SECRET"),
		GuestTokenTTL:    14 * 24 * time.Hour,
		CORSOrigins:      strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "shop"),
			getEnv("DB_PORT", "5432"),
		)
	}
	if ttl := os.Getenv("GUEST_TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("GUEST_TOKEN_TTL: %w", err)
		}
		cfg.GuestTokenTTL = d
	}
	if v := os.Getenv("SKIP_NAV_CHECK"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SKIP_NAV_CHECK: %w", err)
		}
		cfg.SkipNavCheck = skip
	}
	if cfg.GuestTokenSecret == "" {
		return nil, fmt.Errorf("GUEST_TOKEN_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
