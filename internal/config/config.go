// Package config loads the service configuration from the environment
// into an explicit struct that is injected where needed. There is no
// package-level mutable state.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config carries everything the service needs at startup.
type Config struct {
	Port     string
	LogLevel string

	// AppURL is the public base URL of this service; the OAuth
	// redirect_uri is derived from it.
	AppURL string `validate:"required,url"`

	// PostInstallRedirectURL receives the merchant after a successful
	// callback, with ?shop= appended.
	PostInstallRedirectURL string `validate:"required,url"`

	ShopifyAPIKey    string `validate:"required"`
	ShopifyAPISecret string `validate:"required"`

	// Scopes requested during authorization, comma-separated on the wire.
	Scopes []string `validate:"min=1"`

	DatabaseDriver string `validate:"oneof=sqlite3 postgres"`
	DatabaseDSN    string `validate:"required"`

	// RedisAddr enables the Redis state store when non-empty.
	RedisAddr string

	// ProviderTimeout bounds the outbound token-exchange call.
	ProviderTimeout time.Duration
}

// Load reads the environment and validates the result once.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getenv("PORT", "8080"),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		AppURL:                 getenv("APP_URL", "http://localhost:8080"),
		PostInstallRedirectURL: getenv("POST_INSTALL_REDIRECT_URL", "http://localhost:8080/dashboard"),
		ShopifyAPIKey:          os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:       os.Getenv("SHOPIFY_API_SECRET"),
		Scopes:                 splitScopes(getenv("SHOPIFY_SCOPES", "read_products,read_customers,read_orders")),
		DatabaseDriver:         getenv("DATABASE_DRIVER", "sqlite3"),
		DatabaseDSN:            getenv("DATABASE_DSN", "shopify_auth.db"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		ProviderTimeout:        15 * time.Second,
	}

	if raw := os.Getenv("PROVIDER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_TIMEOUT %q: %w", raw, err)
		}
		cfg.ProviderTimeout = d
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RedirectURI is the callback endpoint registered with the provider.
func (c *Config) RedirectURI() string {
	return strings.TrimSuffix(c.AppURL, "/") + "/auth/callback"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitScopes(raw string) []string {
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, p)
		}
	}
	return scopes
}
