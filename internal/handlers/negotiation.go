package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"booking-marketplace-api/internal/discount"
	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/offer"
	"booking-marketplace-api/internal/telemetry"
)

// NegotiationHandler handles negotiation-offer requests
type NegotiationHandler struct {
	resolver  *discount.Resolver
	signer    *offer.Signer
	offerTTL  time.Duration
	journal   *events.Journal
	telemetry *telemetry.MarketplaceTelemetry
	now       func() time.Time
}

// NewNegotiationHandler creates a new negotiation handler
func NewNegotiationHandler(resolver *discount.Resolver, signer *offer.Signer, offerTTL time.Duration, journal *events.Journal, tel *telemetry.MarketplaceTelemetry) *NegotiationHandler {
	return &NegotiationHandler{
		resolver:  resolver,
		signer:    signer,
		offerTTL:  offerTTL,
		journal:   journal,
		telemetry: tel,
		now:       time.Now,
	}
}

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// Negotiate handles POST /v1/negotiations - Issue a signed negotiation offer
func (h *NegotiationHandler) Negotiate(w http.ResponseWriter, r *http.Request) {
	var req models.NegotiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in negotiate request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	var details []models.ErrorDetail
	if req.PropertyID == "" {
		details = append(details, models.ErrorDetail{Field: "propertyId", Issue: "must not be empty"})
	}
	if req.BaseTotal <= 0 {
		details = append(details, models.ErrorDetail{Field: "baseTotal", Issue: "must be a positive amount"})
	}
	if len(details) > 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid negotiation request", details)
		return
	}

	rate := h.resolver.Resolve(r.Context(), req.PropertyID)
	discounted := req.BaseTotal - applyRate(req.BaseTotal, rate)
	expiresAt := h.now().Add(h.offerTTL).UnixMilli()

	signed := offer.NegotiationOffer{
		PropertyID:      req.PropertyID,
		BaseTotal:       req.BaseTotal,
		DiscountedTotal: discounted,
		DiscountRate:    rate,
		ExpiresAt:       expiresAt,
	}

	token, err := h.signer.Sign(signed)
	if err != nil {
		slog.Error("Failed to sign negotiation offer", "property_id", req.PropertyID, "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "signing_error", "Failed to issue offer", nil)
		return
	}

	slog.Info("Negotiation offer issued",
		"property_id", req.PropertyID,
		"base_total", req.BaseTotal,
		"discounted_total", discounted,
		"discount_rate", rate,
		"expires_at", expiresAt)

	h.journal.Publish(models.EventTypeOfferIssued, req.PropertyID, "", discounted)
	h.telemetry.RecordOfferIssued(r.Context())

	writeJSONResponse(w, http.StatusOK, models.NegotiateResponse{
		PropertyID:      req.PropertyID,
		BaseTotal:       req.BaseTotal,
		DiscountedTotal: discounted,
		DiscountRate:    rate,
		ExpiresAt:       expiresAt,
		Token:           token,
	})
}

// applyRate computes the discount amount in whole Naira, rounded half up
func applyRate(amount int64, rate float64) int64 {
	return int64(float64(amount)*rate + 0.5)
}
