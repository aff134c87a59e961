package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/discount"
	"booking-marketplace-api/internal/models"
)

// fileData is the on-disk shape of the development store
type fileData struct {
	DefaultDiscountRate float64                   `json:"defaultDiscountRate"`
	DiscountOverrides   map[string]float64        `json:"discountOverrides"`
	Availability        map[string]map[string]int `json:"availability"` // hotelId -> date -> rooms
	PaymentIntents      []models.PaymentIntent    `json:"paymentIntents"`
}

// FileStore is a JSON-file-backed store for development and tests. Reads and
// writes of one hotel's availability go through a per-hotel lock; the global
// mutex covers discount config, payment intents, and file saves.
type FileStore struct {
	data        *fileData
	globalMutex sync.RWMutex
	hotelLocks  *HotelLockManager
	filePath    string
	persist     bool
}

// NewFileStore loads (or initializes) a JSON-file-backed store. With persist
// false the store is purely in-memory, which is what tests want.
func NewFileStore(filePath string, persist bool) (*FileStore, error) {
	s := &FileStore{
		data: &fileData{
			DefaultDiscountRate: discount.FixedDefaultRate,
			DiscountOverrides:   make(map[string]float64),
			Availability:        make(map[string]map[string]int),
		},
		hotelLocks: NewHotelLockManager(),
		filePath:   filePath,
		persist:    persist,
	}

	if err := s.loadFromFile(); err != nil {
		return nil, err
	}

	slog.Info("File store initialized",
		"path", filePath,
		"persist", persist,
		"overrides", len(s.data.DiscountOverrides),
		"hotels", len(s.data.Availability))

	return s, nil
}

// loadFromFile reads existing data; a missing file just starts fresh
func (s *FileStore) loadFromFile() error {
	if s.filePath == "" {
		return nil
	}

	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading store file: %w", err)
	}

	loaded := &fileData{}
	if err := json.Unmarshal(raw, loaded); err != nil {
		return fmt.Errorf("error parsing store file: %w", err)
	}

	if loaded.DiscountOverrides == nil {
		loaded.DiscountOverrides = make(map[string]float64)
	}
	if loaded.Availability == nil {
		loaded.Availability = make(map[string]map[string]int)
	}
	s.data = loaded

	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() {}

// DefaultRate returns the configured global default discount rate
func (s *FileStore) DefaultRate(ctx context.Context) (float64, error) {
	s.globalMutex.RLock()
	defer s.globalMutex.RUnlock()
	return s.data.DefaultDiscountRate, nil
}

// Override returns a per-property discount rate when one is configured
func (s *FileStore) Override(ctx context.Context, propertyID string) (float64, bool, error) {
	s.globalMutex.RLock()
	defer s.globalMutex.RUnlock()
	rate, found := s.data.DiscountOverrides[propertyID]
	return rate, found, nil
}

// FindRecords collects availability rows for the given hotels with dates in
// [from, to)
func (s *FileStore) FindRecords(ctx context.Context, hotelIDs []string, from, to time.Time) ([]models.AvailabilityRecord, error) {
	var records []models.AvailabilityRecord

	for _, hotelID := range hotelIDs {
		s.hotelLocks.WithHotelReadLock(hotelID, func() {
			s.globalMutex.RLock()
			days := s.data.Availability[hotelID]
			s.globalMutex.RUnlock()

			for dateStr, rooms := range days {
				date, err := availability.ParseDate(dateStr)
				if err != nil {
					slog.Warn("Skipping availability row with invalid date",
						"hotel_id", hotelID,
						"date", dateStr)
					continue
				}
				if date.Before(from) || !date.Before(to) {
					continue
				}
				records = append(records, models.AvailabilityRecord{
					HotelID:        hotelID,
					Date:           dateStr,
					RoomsAvailable: rooms,
				})
			}
		})
	}

	return records, nil
}

// SetDiscountOverride stores a per-property discount rate
func (s *FileStore) SetDiscountOverride(ctx context.Context, propertyID string, rate float64) error {
	s.globalMutex.Lock()
	s.data.DiscountOverrides[propertyID] = rate
	s.globalMutex.Unlock()

	return s.saveToFile()
}

// SetDefaultRate replaces the global default discount rate
func (s *FileStore) SetDefaultRate(ctx context.Context, rate float64) error {
	s.globalMutex.Lock()
	s.data.DefaultDiscountRate = rate
	s.globalMutex.Unlock()

	return s.saveToFile()
}

// UpsertAvailability writes one per-night inventory row. The per-hotel map
// keyed by date gives at most one record per (hotelId, date).
func (s *FileStore) UpsertAvailability(ctx context.Context, record models.AvailabilityRecord) error {
	if _, err := availability.ParseDate(record.Date); err != nil {
		return fmt.Errorf("invalid availability date %q: %w", record.Date, err)
	}

	s.hotelLocks.WithHotelWriteLock(record.HotelID, func() {
		s.globalMutex.Lock()
		days, exists := s.data.Availability[record.HotelID]
		if !exists {
			days = make(map[string]int)
			s.data.Availability[record.HotelID] = days
		}
		days[record.Date] = record.RoomsAvailable
		s.globalMutex.Unlock()
	})

	return s.saveToFile()
}

// SavePaymentIntent appends a payment intent
func (s *FileStore) SavePaymentIntent(ctx context.Context, intent models.PaymentIntent) error {
	s.globalMutex.Lock()
	s.data.PaymentIntents = append(s.data.PaymentIntents, intent)
	s.globalMutex.Unlock()

	return s.saveToFile()
}

// LockStats exposes lock manager statistics for the admin surface
func (s *FileStore) LockStats() map[string]interface{} {
	return s.hotelLocks.Stats()
}

// saveToFile persists the current data, atomically via a temp file
func (s *FileStore) saveToFile() error {
	if !s.persist || s.filePath == "" {
		return nil
	}

	s.globalMutex.RLock()
	raw, err := json.MarshalIndent(s.data, "", "  ")
	s.globalMutex.RUnlock()
	if err != nil {
		return fmt.Errorf("error marshaling store data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("error creating store directory: %w", err)
	}

	tempFilePath := s.filePath + ".tmp"
	if err := os.WriteFile(tempFilePath, raw, 0644); err != nil {
		return fmt.Errorf("error writing temp store file: %w", err)
	}

	if err := os.Rename(tempFilePath, s.filePath); err != nil {
		os.Remove(tempFilePath)
		return fmt.Errorf("error replacing store file: %w", err)
	}

	return nil
}
