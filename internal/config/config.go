package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	LogLevel    string
	Environment string

	// Storage: a DATABASE_URL selects the Postgres backend; otherwise the
	// JSON-file store at StorePath is used
	DatabaseURL           string
	StorePath             string
	EnableJSONPersistence string

	// Negotiation offers
	OfferTTL string

	// Discount resolution cache
	DiscountCacheTTL             string
	DiscountCacheCleanupInterval string

	// Event journal
	MaxEventsInJournal string
	EventsFilePath     string

	// Rate limiting
	RateLimitEnabled                string
	RateLimitType                   string
	RateLimitRequestsPerMinute      string
	RateLimitWindowMinutes          string
	RateLimitAdminRequestsPerMinute string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() *Config {
	// Load .env file if it exists
	// This will not override existing environment variables
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	config := &Config{
		Port:                            getEnvWithDefault("PORT", "8080"),
		LogLevel:                        getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:                     getEnvWithDefault("ENVIRONMENT", "development"),
		DatabaseURL:                     os.Getenv("DATABASE_URL"),
		StorePath:                       getEnvWithDefault("STORE_PATH", "data/marketplace.json"),
		EnableJSONPersistence:           getEnvWithDefault("ENABLE_JSON_PERSISTENCE", "true"),
		OfferTTL:                        getEnvWithDefault("OFFER_TTL", "30m"),
		DiscountCacheTTL:                getEnvWithDefault("DISCOUNT_CACHE_TTL", "30s"),
		DiscountCacheCleanupInterval:    getEnvWithDefault("DISCOUNT_CACHE_CLEANUP_INTERVAL", "30s"),
		MaxEventsInJournal:              getEnvWithDefault("MAX_EVENTS_IN_JOURNAL", "10000"),
		EventsFilePath:                  getEnvWithDefault("EVENTS_FILE_PATH", "./data/events.json"),
		RateLimitEnabled:                getEnvWithDefault("RATE_LIMIT_ENABLED", "true"),
		RateLimitType:                   getEnvWithDefault("RATE_LIMIT_TYPE", "ip"),
		RateLimitRequestsPerMinute:      getEnvWithDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", "100"),
		RateLimitWindowMinutes:          getEnvWithDefault("RATE_LIMIT_WINDOW_MINUTES", "1"),
		RateLimitAdminRequestsPerMinute: getEnvWithDefault("RATE_LIMIT_ADMIN_REQUESTS_PER_MINUTE", "50"),
	}

	// Configure slog based on log level
	SetupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"storeBackend", storeBackendName(config),
		"offerTTL", config.OfferTTL,
		"discountCacheTTL", config.DiscountCacheTTL,
		"discountCacheCleanupInterval", config.DiscountCacheCleanupInterval,
		"maxEventsInJournal", config.MaxEventsInJournal,
		"eventsFilePath", config.EventsFilePath)

	return config
}

// SetupLogging configures the global slog handler based on log level
func SetupLogging(logLevel string) {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Use TextHandler for better readability instead of JSON
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func storeBackendName(c *Config) string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "file"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
