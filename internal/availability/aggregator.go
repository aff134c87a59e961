package availability

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"booking-marketplace-api/internal/models"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// maxStayNights bounds the day-by-day loop to realistic stay lengths
const maxStayNights = 60

// unknownRooms is the per-night sentinel for a missing inventory record
const unknownRooms = -1

// Store is the external availability collaborator. FindRecords returns all
// records for the given hotels whose date falls in [from, to).
type Store interface {
	FindRecords(ctx context.Context, hotelIDs []string, from, to time.Time) ([]models.AvailabilityRecord, error)
}

// ValidationError is a typed precondition failure: bad dates or a bad room
// count. These represent caller errors and are never retried.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ParseDate parses a YYYY-MM-DD calendar date, normalized to UTC midnight so
// night boundaries cannot drift between client and server
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// Aggregator answers yes/no availability questions over a date range,
// conservative about missing data: a night without a record is never
// interpreted as available.
type Aggregator struct {
	store Store
}

// NewAggregator creates an aggregator backed by the given store
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Check verifies availability for a single hotel
func (a *Aggregator) Check(ctx context.Context, hotelID, checkIn, checkOut string, roomsRequested int) (models.AvailabilityResult, error) {
	results, err := a.CheckMany(ctx, []string{hotelID}, checkIn, checkOut, roomsRequested)
	if err != nil {
		return models.AvailabilityResult{}, err
	}
	return results[0], nil
}

// CheckMany verifies availability for many hotels from one batched store
// read. Results are ordered to match hotelIDs, so callers can zip them back
// to their own labels. Per-hotel aggregation fans out concurrently; branches
// share no mutable state.
func (a *Aggregator) CheckMany(ctx context.Context, hotelIDs []string, checkIn, checkOut string, roomsRequested int) ([]models.AvailabilityResult, error) {
	if roomsRequested == 0 {
		roomsRequested = 1
	}
	if roomsRequested < 1 {
		return nil, &ValidationError{
			Code:    models.ErrCodeInvalidRoomCount,
			Message: "roomsRequested must be at least 1",
		}
	}

	start, err := ParseDate(checkIn)
	if err != nil {
		return nil, &ValidationError{
			Code:    models.ErrCodeInvalidDateRange,
			Message: "checkIn must be a valid YYYY-MM-DD date",
		}
	}
	end, err := ParseDate(checkOut)
	if err != nil {
		return nil, &ValidationError{
			Code:    models.ErrCodeInvalidDateRange,
			Message: "checkOut must be a valid YYYY-MM-DD date",
		}
	}
	if !start.Before(end) {
		return nil, &ValidationError{
			Code:    models.ErrCodeInvalidDateRange,
			Message: "checkIn must be before checkOut",
		}
	}

	nightsRequired := int(end.Sub(start).Hours() / 24)
	if nightsRequired > maxStayNights {
		return nil, &ValidationError{
			Code:    models.ErrCodeInvalidDateRange,
			Message: "stay length exceeds the supported maximum",
		}
	}

	// One batched read for all hotels; the checkout night itself is excluded
	records, err := a.store.FindRecords(ctx, hotelIDs, start, end)
	if err != nil {
		// Storage failure is an infrastructure fault, surfaced distinctly
		// from a night with no data
		slog.Error("Failed to read availability records",
			"hotel_count", len(hotelIDs),
			"check_in", checkIn,
			"check_out", checkOut,
			"error", err)
		return nil, err
	}

	byHotel := indexRecords(records)

	results := make([]models.AvailabilityResult, len(hotelIDs))
	g, _ := errgroup.WithContext(ctx)
	for i, hotelID := range hotelIDs {
		g.Go(func() error {
			results[i] = aggregateHotel(hotelID, byHotel[hotelID], start, nightsRequired, roomsRequested, checkIn, checkOut)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// indexRecords indexes availability rows by hotel id and calendar day. The
// store guarantees at most one record per (hotelId, date).
func indexRecords(records []models.AvailabilityRecord) map[string]map[string]int {
	byHotel := make(map[string]map[string]int)
	for _, rec := range records {
		days, exists := byHotel[rec.HotelID]
		if !exists {
			days = make(map[string]int)
			byHotel[rec.HotelID] = days
		}
		days[rec.Date] = rec.RoomsAvailable
	}
	return byHotel
}

// aggregateHotel walks the consecutive nights of the stay for one hotel.
// isAvailable is the conjunction of canAccommodate across all nights and is
// forced false the moment any night lacks data.
func aggregateHotel(hotelID string, days map[string]int, start time.Time, nightsRequired, roomsRequested int, checkIn, checkOut string) models.AvailabilityResult {
	result := models.AvailabilityResult{
		HotelID:         hotelID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		RoomsRequested:  roomsRequested,
		NightsRequired:  nightsRequired,
		PerNight:        make([]models.NightAvailability, 0, nightsRequired),
		IsAvailable:     true,
		HasCompleteData: true,
	}

	minRooms := -1
	for night := 0; night < nightsRequired; night++ {
		date := start.AddDate(0, 0, night).Format(DateLayout)

		rooms, hasData := days[date]
		if !hasData {
			result.HasCompleteData = false
			result.IsAvailable = false
			result.PerNight = append(result.PerNight, models.NightAvailability{
				Date:           date,
				RoomsAvailable: unknownRooms,
				CanAccommodate: false,
			})
			continue
		}

		canAccommodate := rooms >= roomsRequested
		if !canAccommodate {
			result.IsAvailable = false
		}
		if minRooms < 0 || rooms < minRooms {
			minRooms = rooms
		}
		result.PerNight = append(result.PerNight, models.NightAvailability{
			Date:           date,
			RoomsAvailable: rooms,
			CanAccommodate: canAccommodate,
		})
	}

	// Report 0 rather than a sentinel when no night had data at all
	if minRooms >= 0 {
		result.MinRoomsAvailable = minRooms
	}

	return result
}
