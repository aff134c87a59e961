package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MarketplaceTelemetry provides telemetry for the booking marketplace API
type MarketplaceTelemetry struct {
	meter metric.Meter

	// Request counters
	requestCounter metric.Int64Counter

	// Error counters
	errorCounter metric.Int64Counter

	// Duration histograms
	durationHistogram metric.Float64Histogram

	// Domain-specific metrics
	offersIssuedCounter       metric.Int64Counter
	offerVerifyFailureCounter metric.Int64Counter
	availabilityCheckCounter  metric.Int64Counter
	paymentInitCounter        metric.Int64Counter
	bookingConfirmCounter     metric.Int64Counter
}

// RequestMetrics contains the telemetry data for one HTTP request
type RequestMetrics struct {
	Method       string
	Endpoint     string
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
}

// NewMarketplaceTelemetry creates a new instance of MarketplaceTelemetry
func NewMarketplaceTelemetry() *MarketplaceTelemetry {
	return &MarketplaceTelemetry{}
}

// InitializeTelemetry sets up all the telemetry instruments for the API
func (t *MarketplaceTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing marketplace API telemetry")

	// Get the global meter provider
	t.meter = otel.Meter("booking-marketplace-api")

	var err error

	t.requestCounter, err = t.meter.Int64Counter(
		"marketplace_api_requests_total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"marketplace_api_errors_total",
		metric.WithDescription("Total number of API errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error counter: %w", err)
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"marketplace_api_request_duration_seconds",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.offersIssuedCounter, err = t.meter.Int64Counter(
		"marketplace_offers_issued_total",
		metric.WithDescription("Total number of negotiation offers issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create offers issued counter: %w", err)
	}

	t.offerVerifyFailureCounter, err = t.meter.Int64Counter(
		"marketplace_offer_verification_failures_total",
		metric.WithDescription("Total number of rejected negotiation tokens, by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create offer verification failure counter: %w", err)
	}

	t.availabilityCheckCounter, err = t.meter.Int64Counter(
		"marketplace_availability_checks_total",
		metric.WithDescription("Total number of availability checks"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create availability check counter: %w", err)
	}

	t.paymentInitCounter, err = t.meter.Int64Counter(
		"marketplace_payments_initialized_total",
		metric.WithDescription("Total number of payment intents created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payment init counter: %w", err)
	}

	t.bookingConfirmCounter, err = t.meter.Int64Counter(
		"marketplace_bookings_confirmed_total",
		metric.WithDescription("Total number of bookings confirmed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create booking confirm counter: %w", err)
	}

	slog.Info("Marketplace API telemetry initialized successfully")
	return nil
}

// RegisterRequestReceived records a successful API request
func (t *MarketplaceTelemetry) RegisterRequestReceived(ctx context.Context, metrics RequestMetrics) {
	if t.requestCounter == nil {
		slog.Warn("Request counter not initialized")
		return
	}

	// Low-cardinality attributes only to prevent metric explosion
	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
	}

	t.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Debug("Recorded successful API request",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"duration_ms", metrics.Duration.Milliseconds(),
	)
}

// RegisterRequestError records a failed API request
func (t *MarketplaceTelemetry) RegisterRequestError(ctx context.Context, metrics RequestMetrics) {
	if t.errorCounter == nil {
		slog.Warn("Error counter not initialized")
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
		attribute.String("error_type", categorizeError(metrics.ErrorMessage)),
	}

	t.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Warn("Recorded API request error",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"error", metrics.ErrorMessage,
	)
}

// RegisterRequestDuration records the duration of an API request
func (t *MarketplaceTelemetry) RegisterRequestDuration(ctx context.Context, metrics RequestMetrics) {
	if t.durationHistogram == nil {
		slog.Warn("Duration histogram not initialized")
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
	}

	t.durationHistogram.Record(ctx, metrics.Duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOfferIssued counts one issued negotiation offer
func (t *MarketplaceTelemetry) RecordOfferIssued(ctx context.Context) {
	if t.offersIssuedCounter != nil {
		t.offersIssuedCounter.Add(ctx, 1)
	}
}

// RecordOfferVerifyFailure counts one rejected token. Reasons come from the
// fixed verification taxonomy, so cardinality stays bounded.
func (t *MarketplaceTelemetry) RecordOfferVerifyFailure(ctx context.Context, reason string) {
	if t.offerVerifyFailureCounter != nil {
		t.offerVerifyFailureCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordAvailabilityCheck counts availability checks, bulk checks once per hotel
func (t *MarketplaceTelemetry) RecordAvailabilityCheck(ctx context.Context, hotels int) {
	if t.availabilityCheckCounter != nil {
		t.availabilityCheckCounter.Add(ctx, int64(hotels))
	}
}

// RecordPaymentInitialized counts one created payment intent
func (t *MarketplaceTelemetry) RecordPaymentInitialized(ctx context.Context, negotiated bool) {
	if t.paymentInitCounter != nil {
		t.paymentInitCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("negotiated", negotiated)))
	}
}

// RecordBookingConfirmed counts one confirmed booking
func (t *MarketplaceTelemetry) RecordBookingConfirmed(ctx context.Context) {
	if t.bookingConfirmCounter != nil {
		t.bookingConfirmCounter.Add(ctx, 1)
	}
}

// categorizeError groups similar errors to prevent high cardinality
func categorizeError(errorMessage string) string {
	if errorMessage == "" {
		return "unknown"
	}

	switch {
	case strings.Contains(errorMessage, "not found"):
		return "not_found"
	case strings.Contains(errorMessage, "invalid"):
		return "invalid_request"
	case strings.Contains(errorMessage, "unauthorized"):
		return "unauthorized"
	case strings.Contains(errorMessage, "forbidden"):
		return "forbidden"
	case strings.Contains(errorMessage, "timeout"):
		return "timeout"
	case strings.Contains(errorMessage, "internal"):
		return "internal_error"
	case strings.Contains(errorMessage, "bad request"):
		return "bad_request"
	case strings.Contains(errorMessage, "conflict"):
		return "conflict"
	default:
		return "other"
	}
}
