// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/remindctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	ProtocolsTable     = "protocols"
	PreferencesTable   = "notification_preferences"
	NotificationsTable = "scheduled_notifications"
	SubscriptionsTable = "push_subscriptions"
	CronHealthTable    = "cron_health_checks"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cron triggers
	CronSecret string

	// Web push (VAPID)
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Email (SMTP)
	SMTPHost   string
	SMTPPort   int
	SMTPSender string
	SMTPPass   string

	// Scheduling
	SweepWorkers int

	// Maintenance tickers — zero disables a loop
	ReplenishInterval time.Duration
	DispatchInterval  time.Duration
	CleanupInterval   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CronSecret: envOr("CRON_SECRET", ""),

		VAPIDPublicKey:  envOr("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: envOr("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    envOr("VAPID_SUBJECT", "mailto:admin@resetbiology.com"),

		SMTPHost:   envOr("SMTP_HOST", ""),
		SMTPPort:   envInt("SMTP_PORT", 587),
		SMTPSender: envOr("SMTP_SENDER", ""),
		SMTPPass:   envOr("SMTP_PASSWORD", ""),

		SweepWorkers: envInt("SWEEP_WORKERS", 4),

		ReplenishInterval: time.Duration(envInt("REPLENISH_INTERVAL_MINUTES", 24*60)) * time.Minute,
		DispatchInterval:  time.Duration(envInt("DISPATCH_INTERVAL_SECONDS", 60)) * time.Second,
		CleanupInterval:   time.Duration(envInt("CLEANUP_INTERVAL_MINUTES", 30)) * time.Minute,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
