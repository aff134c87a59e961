package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/config"
	"booking-marketplace-api/internal/discount"
	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/handlers"
	"booking-marketplace-api/internal/middleware"
	"booking-marketplace-api/internal/offer"
	"booking-marketplace-api/internal/store"
	"booking-marketplace-api/internal/telemetry"

	"github.com/gorilla/mux"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Booking Marketplace API", "version", "1.0.0")

	// Initialize OpenTelemetry telemetry system
	ctx := context.Background()
	otelTelemetry := &telemetry.Telemetry{}
	otelTelemetry.InitMetrics("booking-marketplace-api", &ctx)
	slog.Info("OpenTelemetry telemetry initialized")

	apiTelemetry := telemetry.NewMarketplaceTelemetry()
	if err := apiTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize API telemetry", "error", err)
		return
	}

	// Resolve the offer signing secret. Missing secrets are fatal in
	// production; development gets a placeholder with a warning.
	secret, err := offer.ResolveSecret(cfg.Environment)
	if err != nil {
		slog.Error("Failed to resolve offer signing secret", "error", err)
		os.Exit(1)
	}
	signer := offer.NewSigner(secret)
	verifier := offer.NewVerifier(secret)

	if cfg.IsProduction() && os.Getenv("ADMIN_API_KEYS") == "" {
		slog.Warn("ADMIN_API_KEYS not set, admin routes fall back to admin-prefixed API keys")
	}

	// Select the storage backend
	var st store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to Postgres", "error", err)
			os.Exit(1)
		}
		slog.Info("Postgres store initialized")
	} else {
		persist := cfg.EnableJSONPersistence == "true"
		st, err = store.NewFileStore(cfg.StorePath, persist)
		if err != nil {
			slog.Error("Failed to initialize file store", "path", cfg.StorePath, "error", err)
			os.Exit(1)
		}
		slog.Info("File store initialized", "path", cfg.StorePath, "persistence", persist)
	}
	defer st.Close()

	offerTTL := parseDurationWithDefault(cfg.OfferTTL, 30*time.Minute, "OFFER_TTL")
	cacheTTL := parseDurationWithDefault(cfg.DiscountCacheTTL, 30*time.Second, "DISCOUNT_CACHE_TTL")
	cacheCleanup := parseDurationWithDefault(cfg.DiscountCacheCleanupInterval, 30*time.Second, "DISCOUNT_CACHE_CLEANUP_INTERVAL")

	resolver := discount.NewResolver(st, cacheTTL, cacheCleanup)
	defer resolver.Stop()

	aggregator := availability.NewAggregator(st)

	// Initialize event journal
	maxEvents, _ := strconv.Atoi(cfg.MaxEventsInJournal)
	if maxEvents <= 0 {
		maxEvents = 10000
	}

	journal, err := events.NewJournal(events.JournalConfig{
		FilePath:  cfg.EventsFilePath,
		MaxEvents: maxEvents,
		Logger:    slog.Default(),
	})
	if err != nil {
		slog.Error("Failed to initialize event journal", "error", err)
		os.Exit(1)
	}
	slog.Info("Event journal initialized")

	// Initialize handlers
	negotiationHandler := handlers.NewNegotiationHandler(resolver, signer, offerTTL, journal, apiTelemetry)
	availabilityHandler := handlers.NewAvailabilityHandler(aggregator, apiTelemetry)
	paymentsHandler := handlers.NewPaymentsHandler(verifier, st, journal, apiTelemetry)
	bookingsHandler := handlers.NewBookingsHandler(verifier, aggregator, journal, apiTelemetry)
	adminHandler := handlers.NewAdminHandler(st, resolver, journal)
	eventsHandler := handlers.NewEventsHandler(journal)
	healthHandler := handlers.NewHealthHandler()
	slog.Debug("HTTP handlers initialized")

	r := mux.NewRouter()

	// Apply telemetry middleware to all routes first
	telemetryMiddleware := telemetry.NewTelemetryMiddleware(apiTelemetry)
	r.Use(telemetryMiddleware.Middleware)

	// Setup rate limiting middleware
	rateLimitConfig := middleware.ParseRateLimitConfig(cfg)
	var rateLimiter *middleware.RateLimiter
	if rateLimitConfig.Enabled {
		rateLimiter = middleware.NewRateLimiter(rateLimitConfig)
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
		slog.Info("Rate limiting middleware enabled")
	} else {
		slog.Info("Rate limiting middleware disabled")
	}
	rateLimitStatusHandler := handlers.NewRateLimitStatusHandler(rateLimiter)

	// Apply auth middleware to v1 API routes
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.AuthMiddleware)

	// Marketplace API routes (v1)
	v1.HandleFunc("/negotiations", negotiationHandler.Negotiate).Methods("POST")
	v1.HandleFunc("/availability/check", availabilityHandler.CheckAvailability).Methods("POST")
	v1.HandleFunc("/payments/initialize", paymentsHandler.InitializePayment).Methods("POST")
	v1.HandleFunc("/bookings/confirm", bookingsHandler.ConfirmBooking).Methods("POST")

	// Admin API routes (v1) - require admin authentication
	adminV1 := r.PathPrefix("/v1/admin").Subrouter()
	adminV1.Use(middleware.AdminAuthMiddleware)
	adminV1.HandleFunc("/discounts/set", adminHandler.SetDiscounts).Methods("PUT") // Not Use PATCH because it's not a partial update
	adminV1.HandleFunc("/availability/set", adminHandler.SetAvailability).Methods("PUT")
	adminV1.HandleFunc("/events", eventsHandler.GetEvents).Methods("GET")

	// Rate limiting status endpoints (admin only)
	adminV1.HandleFunc("/rate-limit/status", rateLimitStatusHandler.GetRateLimitStatus).Methods("GET")
	adminV1.HandleFunc("/rate-limit/reset", rateLimitStatusHandler.ResetRateLimits).Methods("POST")

	// Health check endpoint (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	slog.Info("Starting HTTP server",
		"port", cfg.Port,
		"environment", cfg.Environment)

	if cfg.IsDevelopment() {
		slog.Debug("Available endpoints",
			"v1_endpoints", []string{
				"POST /v1/negotiations",
				"POST /v1/availability/check (single & bulk)",
				"POST /v1/payments/initialize",
				"POST /v1/bookings/confirm",
			},
			"admin_endpoints", []string{
				"PUT /v1/admin/discounts/set",
				"PUT /v1/admin/availability/set",
				"GET /v1/admin/events (event streaming)",
				"GET /v1/admin/rate-limit/status",
				"POST /v1/admin/rate-limit/reset",
			},
			"events_params", []string{
				"?offset=<number> (required: starting offset)",
				"?limit=<number> (optional: max events, default 100)",
				"?wait=<seconds> (optional: long polling, default 0)",
			},
			"system_endpoints", []string{
				"GET /health",
			})
	}

	// Create HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server ready to accept connections", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown event journal first so pending events are flushed
	if err := journal.Close(); err != nil {
		slog.Error("Error closing event journal", "error", err)
	}

	// Shutdown telemetry
	otelTelemetry.Close()
	slog.Info("Telemetry shutdown completed")

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// parseDurationWithDefault parses a duration string from configuration,
// logging and falling back when it is unparseable
func parseDurationWithDefault(value string, fallback time.Duration, name string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration in configuration, using default",
			"setting", name,
			"value", value,
			"default", fallback)
		return fallback
	}
	return d
}
