package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/discount"
	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/store"
)

// AdminHandler handles admin configuration writes
type AdminHandler struct {
	store    store.Store
	resolver *discount.Resolver
	journal  *events.Journal
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(st store.Store, resolver *discount.Resolver, journal *events.Journal) *AdminHandler {
	return &AdminHandler{
		store:    st,
		resolver: resolver,
		journal:  journal,
	}
}

// SetDiscounts handles PUT /v1/admin/discounts/set - Replace the default
// rate and/or per-property overrides. Items are applied independently;
// a bad rate fails its own item without aborting the batch.
func (h *AdminHandler) SetDiscounts(w http.ResponseWriter, r *http.Request) {
	var req models.AdminDiscountSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in discount set request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	if req.DefaultRate == nil && len(req.Overrides) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request",
			"Request must set defaultRate, overrides, or both", nil)
		return
	}

	var results []models.AdminSetResult

	if req.DefaultRate != nil {
		result := models.AdminSetResult{Key: "defaultRate"}
		if *req.DefaultRate < 0 || *req.DefaultRate > 1 {
			result.Error = "rate must be between 0 and 1"
		} else if err := h.store.SetDefaultRate(r.Context(), *req.DefaultRate); err != nil {
			slog.Error("Failed to persist default discount rate", "rate", *req.DefaultRate, "error", err)
			result.Error = "failed to persist rate"
		} else {
			result.Applied = true
			slog.Info("Default discount rate updated", "rate", *req.DefaultRate)
		}
		results = append(results, result)
	}

	for _, override := range req.Overrides {
		result := models.AdminSetResult{Key: override.PropertyID}
		switch {
		case override.PropertyID == "":
			result.Key = "(empty)"
			result.Error = "propertyId must not be empty"
		case override.Rate < 0 || override.Rate > 1:
			result.Error = "rate must be between 0 and 1"
		default:
			if err := h.store.SetDiscountOverride(r.Context(), override.PropertyID, override.Rate); err != nil {
				slog.Error("Failed to persist discount override",
					"property_id", override.PropertyID,
					"rate", override.Rate,
					"error", err)
				result.Error = "failed to persist rate"
			} else {
				result.Applied = true
				h.journal.Publish(models.EventTypeDiscountOverrideSet, override.PropertyID, "", 0)
			}
		}
		results = append(results, result)
	}

	// Cached rates may now be stale
	h.resolver.Invalidate()

	writeJSONResponse(w, http.StatusOK, buildSetResponse(results))
}

// SetAvailability handles PUT /v1/admin/availability/set - Upsert per-night
// room counts, one row per (hotelId, date)
func (h *AdminHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.AdminAvailabilitySetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in availability set request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	if len(req.Records) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "records must not be empty", nil)
		return
	}

	slog.Info("Processing availability set",
		"record_count", len(req.Records),
		"remote_addr", r.RemoteAddr)

	results := make([]models.AdminSetResult, 0, len(req.Records))
	for _, record := range req.Records {
		result := models.AdminSetResult{Key: fmt.Sprintf("%s/%s", record.HotelID, record.Date)}
		if err := validateRecord(record); err != nil {
			result.Error = err.Error()
		} else if err := h.store.UpsertAvailability(r.Context(), record); err != nil {
			slog.Error("Failed to persist availability record",
				"hotel_id", record.HotelID,
				"date", record.Date,
				"error", err)
			result.Error = "failed to persist record"
		} else {
			result.Applied = true
			h.journal.Publish(models.EventTypeAvailabilitySet, record.HotelID, record.Date, int64(record.RoomsAvailable))
		}
		results = append(results, result)
	}

	writeJSONResponse(w, http.StatusOK, buildSetResponse(results))
}

func validateRecord(record models.AvailabilityRecord) error {
	if record.HotelID == "" {
		return fmt.Errorf("hotelId must not be empty")
	}
	if _, err := availability.ParseDate(record.Date); err != nil {
		return fmt.Errorf("date must be a valid YYYY-MM-DD date")
	}
	if record.RoomsAvailable < 0 {
		return fmt.Errorf("roomsAvailable must not be negative")
	}
	return nil
}

func buildSetResponse(results []models.AdminSetResult) models.AdminSetResponse {
	summary := models.AdminSetSummary{Total: len(results)}
	for _, result := range results {
		if result.Applied {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return models.AdminSetResponse{Results: results, Summary: summary}
}
