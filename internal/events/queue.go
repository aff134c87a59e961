package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"booking-marketplace-api/internal/models"
)

// Journal is the file-persisted, offset-addressed record of domain events:
// offers issued, payments initialized, bookings confirmed, admin writes.
type Journal struct {
	mu           sync.RWMutex
	events       []models.Event
	nextOffset   int64
	filePath     string
	maxEvents    int
	logger       *slog.Logger
	writeChan    chan models.Event
	stopChan     chan struct{}
	waiters      map[int64][]chan struct{}
	waitersMutex sync.Mutex
}

// JournalConfig holds configuration for the event journal
type JournalConfig struct {
	FilePath  string
	MaxEvents int
	Logger    *slog.Logger
}

// NewJournal creates a new event journal, restoring persisted events
func NewJournal(config JournalConfig) (*Journal, error) {
	j := &Journal{
		events:    make([]models.Event, 0),
		filePath:  config.FilePath,
		maxEvents: config.MaxEvents,
		logger:    config.Logger,
		writeChan: make(chan models.Event, 1000), // Buffer for async writes
		stopChan:  make(chan struct{}),
		waiters:   make(map[int64][]chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create events directory: %w", err)
	}

	if err := j.loadFromFile(); err != nil {
		j.logger.Warn("Failed to load events from file, starting fresh", "error", err)
		j.nextOffset = 0
	}

	go j.asyncWriter()

	j.logger.Info("Event journal initialized",
		"file_path", config.FilePath,
		"max_events", config.MaxEvents,
		"loaded_events", len(j.events),
		"next_offset", j.nextOffset,
	)

	return j, nil
}

// Publish appends a new domain event to the journal
func (j *Journal) Publish(eventType, propertyID, reference string, amount int64) {
	event := models.Event{
		Offset:     j.getNextOffset(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		EventType:  eventType,
		PropertyID: propertyID,
		Reference:  reference,
		Amount:     amount,
	}

	// Hand off to the async writer (non-blocking)
	select {
	case j.writeChan <- event:
		j.logger.Debug("Event queued for writing",
			"offset", event.Offset,
			"event_type", event.EventType,
			"property_id", event.PropertyID,
		)
	default:
		j.logger.Error("Event write channel full, dropping event",
			"offset", event.Offset,
			"event_type", event.EventType,
			"property_id", event.PropertyID,
		)
	}
}

// GetEvents retrieves events starting from the given offset
func (j *Journal) GetEvents(fromOffset int64, limit int) ([]models.Event, int64, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var result []models.Event
	hasMore := false

	startIdx := -1
	for i, event := range j.events {
		if event.Offset >= fromOffset {
			startIdx = i
			break
		}
	}

	if startIdx == -1 {
		return result, j.nextOffset, false
	}

	endIdx := startIdx + limit
	if endIdx > len(j.events) {
		endIdx = len(j.events)
	} else {
		hasMore = true
	}

	result = make([]models.Event, endIdx-startIdx)
	copy(result, j.events[startIdx:endIdx])

	nextOffset := j.nextOffset
	if len(result) > 0 {
		nextOffset = result[len(result)-1].Offset + 1
	}

	return result, nextOffset, hasMore
}

// WaitForEvents waits for new events to arrive or timeout, for long polling
func (j *Journal) WaitForEvents(fromOffset int64, timeout time.Duration) <-chan struct{} {
	j.waitersMutex.Lock()
	defer j.waitersMutex.Unlock()

	j.mu.RLock()
	hasEvents := false
	for _, event := range j.events {
		if event.Offset >= fromOffset {
			hasEvents = true
			break
		}
	}
	j.mu.RUnlock()

	notifyChan := make(chan struct{}, 1)

	if hasEvents {
		close(notifyChan)
		return notifyChan
	}

	j.waiters[fromOffset] = append(j.waiters[fromOffset], notifyChan)

	go func() {
		time.Sleep(timeout)
		select {
		case <-notifyChan:
			// Already notified
		default:
			close(notifyChan)
		}
	}()

	return notifyChan
}

// CurrentOffset returns the next offset to be assigned
func (j *Journal) CurrentOffset() int64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.nextOffset
}

// Close shuts down the journal, flushing a final save
func (j *Journal) Close() error {
	j.logger.Info("Shutting down event journal")

	close(j.stopChan)

	// Give the async writer a moment to drain
	time.Sleep(100 * time.Millisecond)

	return j.saveToFile()
}

// getNextOffset returns the next available offset (thread-safe)
func (j *Journal) getNextOffset() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	offset := j.nextOffset
	j.nextOffset++
	return offset
}

// asyncWriter moves published events into memory and notifies waiters
func (j *Journal) asyncWriter() {
	for {
		select {
		case event := <-j.writeChan:
			j.addEventToMemory(event)
			j.notifyWaiters(event.Offset)

		case <-j.stopChan:
			j.logger.Info("Event journal async writer stopping")
			return
		}
	}
}

// addEventToMemory appends an event and rotates the in-memory window
func (j *Journal) addEventToMemory(event models.Event) {
	j.mu.Lock()

	j.events = append(j.events, event)

	if len(j.events) > j.maxEvents {
		// Drop the oldest quarter so rotation isn't per-event
		keepCount := j.maxEvents * 3 / 4
		removed := len(j.events) - keepCount
		j.events = j.events[removed:]

		j.logger.Info("Event journal rotated",
			"removed_events", removed,
			"remaining_events", len(j.events),
		)
	}
	j.mu.Unlock()

	if err := j.saveToFile(); err != nil {
		j.logger.Error("Failed to save events to file", "error", err)
	} else {
		j.logger.Debug("Event saved to file", "offset", event.Offset)
	}
}

// notifyWaiters wakes waiters waiting at or before the given offset
func (j *Journal) notifyWaiters(offset int64) {
	j.waitersMutex.Lock()
	defer j.waitersMutex.Unlock()

	for waitOffset, waiters := range j.waiters {
		if waitOffset <= offset {
			for _, waiter := range waiters {
				select {
				case <-waiter:
					// Already closed
				default:
					close(waiter)
				}
			}
			delete(j.waiters, waitOffset)
		}
	}
}

// loadFromFile loads events from the persistent file
func (j *Journal) loadFromFile() error {
	data, err := os.ReadFile(j.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, start fresh
		}
		return fmt.Errorf("failed to read events file: %w", err)
	}

	var fileData struct {
		Events     []models.Event `json:"events"`
		NextOffset int64          `json:"nextOffset"`
	}

	if err := json.Unmarshal(data, &fileData); err != nil {
		return fmt.Errorf("failed to unmarshal events: %w", err)
	}

	j.events = fileData.Events
	j.nextOffset = fileData.NextOffset

	return nil
}

// saveToFile saves events to the persistent file
func (j *Journal) saveToFile() error {
	j.mu.RLock()
	fileData := struct {
		Events     []models.Event `json:"events"`
		NextOffset int64          `json:"nextOffset"`
	}{
		Events:     j.events,
		NextOffset: j.nextOffset,
	}

	data, err := json.MarshalIndent(fileData, "", "  ")
	j.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	// Write to a temporary file first, then rename (atomic operation)
	tempFile := j.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp events file: %w", err)
	}

	if err := os.Rename(tempFile, j.filePath); err != nil {
		return fmt.Errorf("failed to rename temp events file: %w", err)
	}

	return nil
}
