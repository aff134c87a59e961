package store

import (
	"context"
	"time"

	"booking-marketplace-api/internal/models"
)

// Store is the persistence surface the marketplace core depends on: discount
// config reads, per-night availability rows, payment intents, and the admin
// writes that mutate the first two. Backends are interchangeable; handlers
// and resolvers only see this interface.
type Store interface {
	// Discount config (read side)
	DefaultRate(ctx context.Context) (float64, error)
	Override(ctx context.Context, propertyID string) (float64, bool, error)

	// Availability records in [from, to), one row per (hotelId, date)
	FindRecords(ctx context.Context, hotelIDs []string, from, to time.Time) ([]models.AvailabilityRecord, error)

	// Admin writes
	SetDefaultRate(ctx context.Context, rate float64) error
	SetDiscountOverride(ctx context.Context, propertyID string, rate float64) error
	UpsertAvailability(ctx context.Context, record models.AvailabilityRecord) error

	// Payment intents, persisted by reference for the gateway callback
	SavePaymentIntent(ctx context.Context, intent models.PaymentIntent) error

	Close()
}
