package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/discount"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *store.FileStore {
	t.Helper()

	s, err := store.NewFileStore("", false)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func mustParse(t *testing.T, date string) time.Time {
	t.Helper()

	d, err := availability.ParseDate(date)
	require.NoError(t, err)
	return d
}

// TestFileStore_DiscountConfig tests default-rate and override reads and
// writes
func TestFileStore_DiscountConfig(t *testing.T) {
	// Arrange
	s := newMemoryStore(t)
	ctx := context.Background()

	// Assert: a fresh store serves the fixed default
	rate, err := s.DefaultRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, discount.FixedDefaultRate, rate)

	_, found, err := s.Override(ctx, "hotel-lagos-001")
	require.NoError(t, err)
	assert.False(t, found, "No override should exist yet")

	// Act: write an override and a new default
	require.NoError(t, s.SetDiscountOverride(ctx, "hotel-lagos-001", 0.25))
	require.NoError(t, s.SetDefaultRate(ctx, 0.1))

	// Assert
	rate, found, err = s.Override(ctx, "hotel-lagos-001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.25, rate)

	rate, err = s.DefaultRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.1, rate)
}

// TestFileStore_AvailabilityWindow tests that FindRecords honors the
// half-open [from, to) window and hotel filter
func TestFileStore_AvailabilityWindow(t *testing.T) {
	// Arrange
	s := newMemoryStore(t)
	ctx := context.Background()

	rows := []models.AvailabilityRecord{
		{HotelID: "hotel-a", Date: "2025-06-30", RoomsAvailable: 1},
		{HotelID: "hotel-a", Date: "2025-07-01", RoomsAvailable: 2},
		{HotelID: "hotel-a", Date: "2025-07-02", RoomsAvailable: 3},
		{HotelID: "hotel-a", Date: "2025-07-03", RoomsAvailable: 4},
		{HotelID: "hotel-b", Date: "2025-07-01", RoomsAvailable: 9},
	}
	for _, row := range rows {
		require.NoError(t, s.UpsertAvailability(ctx, row))
	}

	// Act: read hotel-a in [2025-07-01, 2025-07-03)
	records, err := s.FindRecords(ctx, []string{"hotel-a"},
		mustParse(t, "2025-07-01"), mustParse(t, "2025-07-03"))

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 2, "Only the two in-window hotel-a rows should match")
	dates := []string{records[0].Date, records[1].Date}
	assert.ElementsMatch(t, []string{"2025-07-01", "2025-07-02"}, dates)

	stats := s.LockStats()
	assert.Equal(t, 2, stats["total_hotel_locks"], "Writes for two hotels should create two locks")
}

// TestFileStore_UpsertOverwrites tests that a second write for the same
// (hotelId, date) replaces the first
func TestFileStore_UpsertOverwrites(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAvailability(ctx, models.AvailabilityRecord{HotelID: "hotel-a", Date: "2025-07-01", RoomsAvailable: 5}))
	require.NoError(t, s.UpsertAvailability(ctx, models.AvailabilityRecord{HotelID: "hotel-a", Date: "2025-07-01", RoomsAvailable: 2}))

	records, err := s.FindRecords(ctx, []string{"hotel-a"},
		mustParse(t, "2025-07-01"), mustParse(t, "2025-07-02"))

	require.NoError(t, err)
	require.Len(t, records, 1, "Upserts must not create duplicate rows")
	assert.Equal(t, 2, records[0].RoomsAvailable)
}

// TestFileStore_UpsertRejectsBadDate tests date validation at the store edge
func TestFileStore_UpsertRejectsBadDate(t *testing.T) {
	s := newMemoryStore(t)

	err := s.UpsertAvailability(context.Background(),
		models.AvailabilityRecord{HotelID: "hotel-a", Date: "01-07-2025", RoomsAvailable: 5})

	assert.Error(t, err)
}

// TestFileStore_PersistsAcrossReload tests the on-disk round trip
func TestFileStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.json")
	ctx := context.Background()

	s, err := store.NewFileStore(path, true)
	require.NoError(t, err)

	require.NoError(t, s.SetDiscountOverride(ctx, "hotel-lagos-001", 0.3))
	require.NoError(t, s.UpsertAvailability(ctx, models.AvailabilityRecord{HotelID: "hotel-a", Date: "2025-07-01", RoomsAvailable: 7}))
	require.NoError(t, s.SavePaymentIntent(ctx, models.PaymentIntent{Reference: "PAY-1", PropertyID: "hotel-a", Amount: 90000}))
	s.Close()

	reloaded, err := store.NewFileStore(path, true)
	require.NoError(t, err)
	defer reloaded.Close()

	rate, found, err := reloaded.Override(ctx, "hotel-lagos-001")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.3, rate)

	records, err := reloaded.FindRecords(ctx, []string{"hotel-a"},
		mustParse(t, "2025-07-01"), mustParse(t, "2025-07-02"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].RoomsAvailable)
}
