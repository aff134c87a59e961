package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/models"
)

// EventsHandler handles journal streaming requests
type EventsHandler struct {
	journal *events.Journal
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(journal *events.Journal) *EventsHandler {
	return &EventsHandler{journal: journal}
}

// GetEvents handles GET /v1/admin/events - Poll the domain event journal,
// with optional long polling via the wait parameter
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "offset parameter is required", nil)
		return
	}

	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "invalid offset parameter", nil)
		return
	}

	limitStr := r.URL.Query().Get("limit")
	limit := 100 // default
	if limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 1000 {
			limit = parsedLimit
		}
	}

	waitStr := r.URL.Query().Get("wait")
	waitSeconds := 0 // default
	if waitStr != "" {
		if parsedWait, err := strconv.Atoi(waitStr); err == nil && parsedWait >= 0 && parsedWait <= 60 {
			waitSeconds = parsedWait
		}
	}

	slog.Debug("Events request received",
		"offset", offset,
		"limit", limit,
		"wait", waitSeconds,
		"remote_addr", r.RemoteAddr)

	// Try to get events immediately
	journalEvents, nextOffset, hasMore := h.journal.GetEvents(offset, limit)

	// If no events and wait > 0, use long polling
	if len(journalEvents) == 0 && waitSeconds > 0 {
		waitChan := h.journal.WaitForEvents(offset, time.Duration(waitSeconds)*time.Second)

		select {
		case <-waitChan:
			// New events might be available, try again
			journalEvents, nextOffset, hasMore = h.journal.GetEvents(offset, limit)
		case <-r.Context().Done():
			// Client disconnected
			slog.Debug("Client disconnected during long polling", "offset", offset)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, models.EventsResponse{
		Events:     journalEvents,
		NextOffset: nextOffset,
		HasMore:    hasMore,
		Count:      len(journalEvents),
	})
}
