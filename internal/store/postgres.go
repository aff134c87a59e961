package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/models"
)

// PostgresStore backs the marketplace on a relational store. The
// availability table carries a uniqueness constraint on (hotel_id, date);
// the aggregator treats that as a precondition.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and verifies the connection
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	slog.Info("Connected to Postgres store")
	return &PostgresStore{db: pool}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.db.Close()
}

// DefaultRate reads the global default discount rate. A missing config row
// is an error; the resolver degrades to its fixed default.
func (s *PostgresStore) DefaultRate(ctx context.Context) (float64, error) {
	var rate float64
	err := s.db.QueryRow(ctx,
		"SELECT default_rate FROM discount_config LIMIT 1").Scan(&rate)
	if err != nil {
		return 0, fmt.Errorf("error reading default discount rate: %w", err)
	}
	return rate, nil
}

// Override reads a per-property discount override; absence is not an error
func (s *PostgresStore) Override(ctx context.Context, propertyID string) (float64, bool, error) {
	var rate float64
	err := s.db.QueryRow(ctx,
		"SELECT rate FROM discount_overrides WHERE property_id = $1",
		propertyID).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error reading discount override: %w", err)
	}
	return rate, true, nil
}

// FindRecords fetches availability rows for all hotels in one query, dates
// in [from, to)
func (s *PostgresStore) FindRecords(ctx context.Context, hotelIDs []string, from, to time.Time) ([]models.AvailabilityRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT hotel_id, to_char(date, 'YYYY-MM-DD'), rooms_available
		   FROM availability
		  WHERE hotel_id = ANY($1) AND date >= $2 AND date < $3`,
		hotelIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying availability records: %w", err)
	}
	defer rows.Close()

	var records []models.AvailabilityRecord
	for rows.Next() {
		var rec models.AvailabilityRecord
		if err := rows.Scan(&rec.HotelID, &rec.Date, &rec.RoomsAvailable); err != nil {
			return nil, fmt.Errorf("error scanning availability record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading availability records: %w", err)
	}

	return records, nil
}

// SetDefaultRate replaces the global default discount rate. The config
// table holds a single row keyed by id 1.
func (s *PostgresStore) SetDefaultRate(ctx context.Context, rate float64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO discount_config (id, default_rate) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET default_rate = EXCLUDED.default_rate`,
		rate)
	if err != nil {
		return fmt.Errorf("error setting default discount rate: %w", err)
	}
	return nil
}

// SetDiscountOverride upserts a per-property discount rate
func (s *PostgresStore) SetDiscountOverride(ctx context.Context, propertyID string, rate float64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO discount_overrides (property_id, rate) VALUES ($1, $2)
		 ON CONFLICT (property_id) DO UPDATE SET rate = EXCLUDED.rate`,
		propertyID, rate)
	if err != nil {
		return fmt.Errorf("error setting discount override: %w", err)
	}
	return nil
}

// UpsertAvailability writes one per-night inventory row, relying on the
// (hotel_id, date) uniqueness constraint
func (s *PostgresStore) UpsertAvailability(ctx context.Context, record models.AvailabilityRecord) error {
	date, err := availability.ParseDate(record.Date)
	if err != nil {
		return fmt.Errorf("invalid availability date %q: %w", record.Date, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO availability (hotel_id, date, rooms_available) VALUES ($1, $2, $3)
		 ON CONFLICT (hotel_id, date) DO UPDATE SET rooms_available = EXCLUDED.rooms_available`,
		record.HotelID, date, record.RoomsAvailable)
	if err != nil {
		return fmt.Errorf("error upserting availability record: %w", err)
	}
	return nil
}

// SavePaymentIntent persists a payment intent by reference
func (s *PostgresStore) SavePaymentIntent(ctx context.Context, intent models.PaymentIntent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO payment_intents
		   (reference, property_id, email, amount, check_in, check_out, negotiated, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		intent.Reference, intent.PropertyID, intent.Email, intent.Amount,
		intent.CheckIn, intent.CheckOut, intent.Negotiated, intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving payment intent: %w", err)
	}
	return nil
}
