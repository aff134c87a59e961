package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/offer"
	"booking-marketplace-api/internal/pricing"
	"booking-marketplace-api/internal/telemetry"

	"github.com/google/uuid"
)

// BookingsHandler handles booking confirmation requests
type BookingsHandler struct {
	verifier   *offer.Verifier
	aggregator *availability.Aggregator
	journal    *events.Journal
	telemetry  *telemetry.MarketplaceTelemetry
}

// NewBookingsHandler creates a new bookings handler
func NewBookingsHandler(verifier *offer.Verifier, aggregator *availability.Aggregator, journal *events.Journal, tel *telemetry.MarketplaceTelemetry) *BookingsHandler {
	return &BookingsHandler{
		verifier:   verifier,
		aggregator: aggregator,
		journal:    journal,
		telemetry:  tel,
	}
}

// ConfirmBooking handles POST /v1/bookings/confirm - Confirm a stay. The
// requested range is re-checked against availability before anything is
// committed; a night with missing data blocks the booking the same way a
// sold-out night does.
func (h *BookingsHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req models.BookingConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in booking request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	var details []models.ErrorDetail
	if req.PropertyID == "" {
		details = append(details, models.ErrorDetail{Field: "propertyId", Issue: "must not be empty"})
	}
	if req.GuestName == "" {
		details = append(details, models.ErrorDetail{Field: "guestName", Issue: "must not be empty"})
	}
	if req.Email == "" {
		details = append(details, models.ErrorDetail{Field: "email", Issue: "must not be empty"})
	}
	if len(details) > 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid booking request", details)
		return
	}

	result, err := h.aggregator.Check(r.Context(), req.PropertyID, req.CheckIn, req.CheckOut, req.Rooms)
	if err != nil {
		var verr *availability.ValidationError
		if errors.As(err, &verr) {
			writeErrorResponse(w, http.StatusBadRequest, verr.Code, verr.Message, nil)
			return
		}
		slog.Error("Booking availability check failed against storage",
			"property_id", req.PropertyID,
			"error", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, "storage_error", "Availability data is temporarily unavailable", nil)
		return
	}

	if !result.IsAvailable {
		slog.Info("Booking refused, range not available",
			"property_id", req.PropertyID,
			"check_in", req.CheckIn,
			"check_out", req.CheckOut,
			"has_complete_data", result.HasCompleteData,
			"min_rooms_available", result.MinRoomsAvailable)
		writeErrorResponse(w, http.StatusConflict, "property_unavailable",
			"The requested dates are not available", nil)
		return
	}

	var quote pricing.Quote
	negotiated := false

	if req.Token != "" {
		verified, err := h.verifier.Verify(req.Token)
		if err != nil {
			var verr *offer.VerifyError
			if errors.As(err, &verr) {
				slog.Warn("Booking token rejected",
					"property_id", req.PropertyID,
					"reason", verr.Code,
					"remote_addr", r.RemoteAddr)
				h.telemetry.RecordOfferVerifyFailure(r.Context(), verr.Code)
				writeErrorResponse(w, verifyErrorStatus(verr.Code), verr.Code, verr.Message, nil)
				return
			}
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to verify token", nil)
			return
		}

		if verified.PropertyID != req.PropertyID {
			h.telemetry.RecordOfferVerifyFailure(r.Context(), models.ErrCodeMismatchedProperty)
			writeErrorResponse(w, http.StatusConflict, models.ErrCodeMismatchedProperty,
				"Token was issued for a different property", nil)
			return
		}

		quote = pricing.ComputeChargeable(verified, result.NightsRequired)
		negotiated = true
	} else {
		if req.Amount <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid booking request",
				[]models.ErrorDetail{{Field: "amount", Issue: "must be a positive amount when no negotiationToken is supplied"}})
			return
		}
		quote = pricing.ComputeNightly(req.Amount, result.NightsRequired)
	}

	reference := "BKG-" + uuid.NewString()

	slog.Info("Booking confirmed",
		"reference", reference,
		"property_id", req.PropertyID,
		"check_in", req.CheckIn,
		"check_out", req.CheckOut,
		"nights", quote.Nights,
		"total", quote.Total,
		"negotiated", negotiated)

	h.journal.Publish(models.EventTypeBookingConfirmed, req.PropertyID, reference, quote.Total)
	h.telemetry.RecordBookingConfirmed(r.Context())

	writeJSONResponse(w, http.StatusOK, models.BookingConfirmResponse{
		Reference:  reference,
		PropertyID: req.PropertyID,
		Nights:     quote.Nights,
		Subtotal:   quote.Subtotal,
		Tax:        quote.Tax,
		Total:      quote.Total,
		Negotiated: negotiated,
		Status:     "confirmed",
	})
}
