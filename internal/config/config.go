package config

import (
	"os"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr           string
	DatabaseURL    string
	JWTSecret      string
	ProductsAPIURL string
	CatalogTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() Config {
	addr := os.Getenv("CART_API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	timeout := 3 * time.Second
	if raw := os.Getenv("CATALOG_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			timeout = d
		}
	}

	return Config{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		ProductsAPIURL: os.Getenv("PRODUCTS_API_URL"),
		CatalogTimeout: timeout,
	}
}
