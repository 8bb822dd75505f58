package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Token store backends selectable through TOKEN_STORE.
const (
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	// CryptrKey derives the key that encrypts pending login codes.
	CryptrKey   string
	FrontendURL string

	EmailHost    string
	EmailPort    int
	EmailUser    string
	EmailPass    string
	EmailReplyTo string

	GoogleClientID string

	TokenStore string
	RedisURL   string

	StrictVerifiedGate bool
	CookieSecure       bool
	Debug              bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:        "8080", // default port
		FrontendURL: "http://localhost:3000",
		EmailPort:   587,
		TokenStore:  TokenStorePostgres,
	}

	var err error
	if cfg.DatabaseURL, err = required("DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.JWTSecret, err = required("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.CryptrKey, err = required("CRYPTR_KEY"); err != nil {
		return nil, err
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}
	if u := os.Getenv("FRONTEND_URL"); u != "" {
		cfg.FrontendURL = u
	}

	cfg.EmailHost = os.Getenv("EMAIL_HOST")
	cfg.EmailUser = os.Getenv("EMAIL_USER")
	cfg.EmailPass = os.Getenv("EMAIL_PASS")
	cfg.EmailReplyTo = os.Getenv("EMAIL_REPLY_TO")
	if p := os.Getenv("EMAIL_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("EMAIL_PORT must be a positive integer, got %q", p)
		}
		cfg.EmailPort = n
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")

	if s := strings.ToLower(os.Getenv("TOKEN_STORE")); s != "" {
		cfg.TokenStore = s
	}
	cfg.RedisURL = os.Getenv("REDIS_URL")
	switch cfg.TokenStore {
	case TokenStorePostgres:
	case TokenStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL environment variable is required when TOKEN_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("TOKEN_STORE must be %q or %q, got %q", TokenStorePostgres, TokenStoreRedis, cfg.TokenStore)
	}

	if cfg.StrictVerifiedGate, err = boolEnv("STRICT_VERIFIED_GATE", true); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", true); err != nil {
		return nil, err
	}
	if cfg.Debug, err = boolEnv("DEBUG", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

func required(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s environment variable is required", key)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
