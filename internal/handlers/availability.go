package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/telemetry"
)

// AvailabilityHandler handles availability check requests
type AvailabilityHandler struct {
	aggregator *availability.Aggregator
	telemetry  *telemetry.MarketplaceTelemetry
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(aggregator *availability.Aggregator, tel *telemetry.MarketplaceTelemetry) *AvailabilityHandler {
	return &AvailabilityHandler{
		aggregator: aggregator,
		telemetry:  tel,
	}
}

// CheckAvailability handles POST /v1/availability/check - Single or bulk check
func (h *AvailabilityHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.AvailabilityCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in availability request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	// Determine if this is a single check or bulk check
	if len(req.HotelIDs) > 0 {
		slog.Info("Processing bulk availability check",
			"hotel_count", len(req.HotelIDs),
			"check_in", req.CheckIn,
			"check_out", req.CheckOut,
			"remote_addr", r.RemoteAddr)

		results, err := h.aggregator.CheckMany(r.Context(), req.HotelIDs, req.CheckIn, req.CheckOut, req.RoomsRequested)
		if err != nil {
			h.writeCheckError(w, err)
			return
		}

		available := 0
		for _, result := range results {
			if result.IsAvailable {
				available++
			}
		}

		h.telemetry.RecordAvailabilityCheck(r.Context(), len(req.HotelIDs))
		writeJSONResponse(w, http.StatusOK, models.AvailabilityCheckResponse{
			Results: results,
			Summary: &models.AvailabilitySummary{
				Total:     len(results),
				Available: available,
			},
		})
		return
	}

	if req.HotelID == "" {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Either hotelId or hotelIds is required",
			[]models.ErrorDetail{{Field: "hotelId", Issue: "must not be empty"}})
		return
	}

	slog.Info("Processing availability check",
		"hotel_id", req.HotelID,
		"check_in", req.CheckIn,
		"check_out", req.CheckOut,
		"rooms_requested", req.RoomsRequested,
		"remote_addr", r.RemoteAddr)

	result, err := h.aggregator.Check(r.Context(), req.HotelID, req.CheckIn, req.CheckOut, req.RoomsRequested)
	if err != nil {
		h.writeCheckError(w, err)
		return
	}

	h.telemetry.RecordAvailabilityCheck(r.Context(), 1)
	writeJSONResponse(w, http.StatusOK, result)
}

// writeCheckError maps aggregator failures onto HTTP statuses. Validation
// problems are the caller's fault; anything else is a storage fault the
// caller may retry.
func (h *AvailabilityHandler) writeCheckError(w http.ResponseWriter, err error) {
	var verr *availability.ValidationError
	if errors.As(err, &verr) {
		writeErrorResponse(w, http.StatusBadRequest, verr.Code, verr.Message, nil)
		return
	}

	slog.Error("Availability check failed against storage", "error", err)
	writeErrorResponse(w, http.StatusServiceUnavailable, "storage_error", "Availability data is temporarily unavailable", nil)
}
