package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/offer"
	"booking-marketplace-api/internal/pricing"
	"booking-marketplace-api/internal/store"
	"booking-marketplace-api/internal/telemetry"

	"github.com/google/uuid"
)

// PaymentsHandler handles payment initialization requests
type PaymentsHandler struct {
	verifier  *offer.Verifier
	store     store.Store
	journal   *events.Journal
	telemetry *telemetry.MarketplaceTelemetry
}

// NewPaymentsHandler creates a new payments handler
func NewPaymentsHandler(verifier *offer.Verifier, st store.Store, journal *events.Journal, tel *telemetry.MarketplaceTelemetry) *PaymentsHandler {
	return &PaymentsHandler{
		verifier:  verifier,
		store:     st,
		journal:   journal,
		telemetry: tel,
	}
}

// verifyErrorStatus maps a token failure code onto an HTTP status
func verifyErrorStatus(code string) int {
	switch code {
	case models.ErrCodeMissingToken:
		return http.StatusBadRequest
	case models.ErrCodeExpired:
		return http.StatusGone
	default:
		return http.StatusUnauthorized
	}
}

// stayNights parses an optional checkIn/checkOut pair. Both empty means a
// one-night charge; a half-supplied or unparseable pair is a client error.
func stayNights(checkIn, checkOut string) (int, error) {
	if checkIn == "" && checkOut == "" {
		return 1, nil
	}

	start, err := availability.ParseDate(checkIn)
	if err != nil {
		return 0, errors.New("checkIn must be a valid YYYY-MM-DD date")
	}
	end, err := availability.ParseDate(checkOut)
	if err != nil {
		return 0, errors.New("checkOut must be a valid YYYY-MM-DD date")
	}
	if !start.Before(end) {
		return 0, errors.New("checkIn must be before checkOut")
	}

	return pricing.NightsBetween(start, end), nil
}

// InitializePayment handles POST /v1/payments/initialize - Create a payment
// intent. When a negotiation token is supplied, the server recomputes the
// chargeable amount from the verified offer and ignores the client's amount.
func (h *PaymentsHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentInitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in payment request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	var details []models.ErrorDetail
	if req.PropertyID == "" {
		details = append(details, models.ErrorDetail{Field: "propertyId", Issue: "must not be empty"})
	}
	if req.Email == "" {
		details = append(details, models.ErrorDetail{Field: "email", Issue: "must not be empty"})
	}
	if len(details) > 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid payment request", details)
		return
	}

	nights, err := stayNights(req.CheckIn, req.CheckOut)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, models.ErrCodeInvalidDateRange, err.Error(), nil)
		return
	}

	var quote pricing.Quote
	negotiated := false

	if req.Token != "" {
		verified, err := h.verifier.Verify(req.Token)
		if err != nil {
			var verr *offer.VerifyError
			if errors.As(err, &verr) {
				slog.Warn("Payment token rejected",
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
			slog.Warn("Payment token property mismatch",
				"token_property_id", verified.PropertyID,
				"request_property_id", req.PropertyID,
				"remote_addr", r.RemoteAddr)
			h.telemetry.RecordOfferVerifyFailure(r.Context(), models.ErrCodeMismatchedProperty)
			writeErrorResponse(w, http.StatusConflict, models.ErrCodeMismatchedProperty,
				"Token was issued for a different property", nil)
			return
		}

		quote = pricing.ComputeChargeable(verified, nights)
		negotiated = true
	} else {
		// No negotiated offer: the client's amount is taken as the
		// nightly rate and priced with the same VAT rules
		if req.Amount <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid payment request",
				[]models.ErrorDetail{{Field: "amount", Issue: "must be a positive amount when no negotiationToken is supplied"}})
			return
		}
		quote = pricing.ComputeNightly(req.Amount, nights)
	}

	reference := "PAY-" + uuid.NewString()
	intent := models.PaymentIntent{
		Reference:  reference,
		PropertyID: req.PropertyID,
		Email:      req.Email,
		Amount:     quote.Total,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Negotiated: negotiated,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.store.SavePaymentIntent(r.Context(), intent); err != nil {
		slog.Error("Failed to persist payment intent",
			"reference", reference,
			"property_id", req.PropertyID,
			"error", err)
		writeErrorResponse(w, http.StatusServiceUnavailable, "storage_error", "Failed to create payment intent", nil)
		return
	}

	slog.Info("Payment intent created",
		"reference", reference,
		"property_id", req.PropertyID,
		"total", quote.Total,
		"nights", quote.Nights,
		"negotiated", negotiated)

	h.journal.Publish(models.EventTypePaymentInitialized, req.PropertyID, reference, quote.Total)
	h.telemetry.RecordPaymentInitialized(r.Context(), negotiated)

	writeJSONResponse(w, http.StatusOK, models.PaymentInitResponse{
		Reference:  reference,
		PropertyID: req.PropertyID,
		Nights:     quote.Nights,
		Subtotal:   quote.Subtotal,
		Tax:        quote.Tax,
		Total:      quote.Total,
		Negotiated: negotiated,
	})
}
