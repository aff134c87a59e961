package events_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *events.Journal {
	t.Helper()

	journal, err := events.NewJournal(events.JournalConfig{
		FilePath:  filepath.Join(t.TempDir(), "events.json"),
		MaxEvents: 100,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	return journal
}

// waitForEvents polls until the journal has absorbed the expected number of
// events, since publishing hands off to an async writer
func waitForEvents(t *testing.T, journal *events.Journal, offset int64, want int) []models.Event {
	t.Helper()

	var got []models.Event
	require.Eventually(t, func() bool {
		got, _, _ = journal.GetEvents(offset, 1000)
		return len(got) >= want
	}, 2*time.Second, 10*time.Millisecond, "Journal should absorb %d events", want)

	return got
}

// TestJournal_PublishAndGet tests the basic publish/read cycle
func TestJournal_PublishAndGet(t *testing.T) {
	// Arrange
	journal := newTestJournal(t)

	// Act
	journal.Publish(models.EventTypeOfferIssued, "hotel-lagos-001", "", 80000)
	journal.Publish(models.EventTypePaymentInitialized, "hotel-lagos-001", "PAY-123", 172000)

	// Assert
	got := waitForEvents(t, journal, 0, 2)
	assert.Equal(t, models.EventTypeOfferIssued, got[0].EventType)
	assert.Equal(t, int64(0), got[0].Offset)
	assert.Equal(t, models.EventTypePaymentInitialized, got[1].EventType)
	assert.Equal(t, "PAY-123", got[1].Reference)
	assert.Equal(t, int64(1), got[1].Offset)
}

// TestJournal_OffsetPaging tests reading from a non-zero offset with a limit
func TestJournal_OffsetPaging(t *testing.T) {
	journal := newTestJournal(t)

	for i := 0; i < 5; i++ {
		journal.Publish(models.EventTypeOfferIssued, "hotel-lagos-001", "", int64(i))
	}
	waitForEvents(t, journal, 0, 5)

	got, nextOffset, hasMore := journal.GetEvents(2, 2)

	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Offset)
	assert.Equal(t, int64(4), nextOffset)
	assert.True(t, hasMore, "Two of three remaining events were returned")
}

// TestJournal_EmptyReadReportsNextOffset tests reading past the end
func TestJournal_EmptyReadReportsNextOffset(t *testing.T) {
	journal := newTestJournal(t)

	got, nextOffset, hasMore := journal.GetEvents(0, 10)

	assert.Empty(t, got)
	assert.Equal(t, int64(0), nextOffset)
	assert.False(t, hasMore)
}

// TestJournal_WaitForEvents tests long-poll wakeup on publish
func TestJournal_WaitForEvents(t *testing.T) {
	journal := newTestJournal(t)

	waitChan := journal.WaitForEvents(0, 5*time.Second)

	journal.Publish(models.EventTypeBookingConfirmed, "hotel-lagos-001", "BKG-1", 90000)

	select {
	case <-waitChan:
		// Woken by the publish
	case <-time.After(2 * time.Second):
		t.Fatal("Waiter was not notified after a publish")
	}
}

// TestJournal_PersistsAcrossRestart tests that events survive a close/reopen
func TestJournal_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.json")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	journal, err := events.NewJournal(events.JournalConfig{FilePath: path, MaxEvents: 100, Logger: logger})
	require.NoError(t, err)

	journal.Publish(models.EventTypeOfferIssued, "hotel-lagos-001", "", 80000)
	waitForEvents(t, journal, 0, 1)
	require.NoError(t, journal.Close())

	reopened, err := events.NewJournal(events.JournalConfig{FilePath: path, MaxEvents: 100, Logger: logger})
	require.NoError(t, err)
	defer reopened.Close()

	got, _, _ := reopened.GetEvents(0, 10)
	require.Len(t, got, 1)
	assert.Equal(t, models.EventTypeOfferIssued, got[0].EventType)
	assert.Equal(t, int64(1), reopened.CurrentOffset(), "Offsets continue after restart")
}
