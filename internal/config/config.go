package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Song generation provider
	SongGenAPIKey     string
	SongGenAPIBaseURL string

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Payment webhook
	CheckoutWebhookSecret string

	// Generation
	GenerationMaxAttempts int
	RateLimitDelay        time.Duration
	ReconcileStaleAfter   time.Duration
	ReconcileInterval     time.Duration

	// Database
	DatabaseURL string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	cfg := &Config{
		SongGenAPIKey:     getEnv("SONGGEN_API_KEY", ""),
		SongGenAPIBaseURL: getEnv("SONGGEN_API_BASE_URL", "https://api.songgen.ai/v1/"),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "song-variants"),

		CheckoutWebhookSecret: getEnv("CHECKOUT_WEBHOOK_SECRET", ""),

		GenerationMaxAttempts: getEnvInt("GENERATION_MAX_ATTEMPTS", 4),
		RateLimitDelay:        getEnvDuration("RATE_LIMIT_DELAY", 60*time.Second),
		ReconcileStaleAfter:   getEnvDuration("RECONCILE_STALE_AFTER", 10*time.Minute),
		ReconcileInterval:     getEnvDuration("RECONCILE_INTERVAL", 5*time.Minute),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SongGenAPIKey == "" {
		return fmt.Errorf("SONGGEN_API_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if c.GenerationMaxAttempts < 1 {
		return fmt.Errorf("GENERATION_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
