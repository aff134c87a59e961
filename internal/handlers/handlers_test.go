package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"booking-marketplace-api/internal/availability"
	"booking-marketplace-api/internal/discount"
	"booking-marketplace-api/internal/events"
	"booking-marketplace-api/internal/handlers"
	"booking-marketplace-api/internal/models"
	"booking-marketplace-api/internal/offer"
	"booking-marketplace-api/internal/store"
	"booking-marketplace-api/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("handler-test-secret")

// testEnv wires the full handler stack over an in-memory store
type testEnv struct {
	store        *store.FileStore
	resolver     *discount.Resolver
	journal      *events.Journal
	signer       *offer.Signer
	negotiation  *handlers.NegotiationHandler
	availability *handlers.AvailabilityHandler
	payments     *handlers.PaymentsHandler
	bookings     *handlers.BookingsHandler
	admin        *handlers.AdminHandler
	events       *handlers.EventsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewFileStore("", false)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	resolver := discount.NewResolver(st, time.Minute, time.Minute)
	t.Cleanup(resolver.Stop)

	journal, err := events.NewJournal(events.JournalConfig{
		FilePath:  filepath.Join(t.TempDir(), "events.json"),
		MaxEvents: 1000,
		Logger:    slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	})
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	signer := offer.NewSigner(testSecret)
	verifier := offer.NewVerifier(testSecret)
	aggregator := availability.NewAggregator(st)
	tel := telemetry.NewMarketplaceTelemetry()

	return &testEnv{
		store:        st,
		resolver:     resolver,
		journal:      journal,
		signer:       signer,
		negotiation:  handlers.NewNegotiationHandler(resolver, signer, 30*time.Minute, journal, tel),
		availability: handlers.NewAvailabilityHandler(aggregator, tel),
		payments:     handlers.NewPaymentsHandler(verifier, st, journal, tel),
		bookings:     handlers.NewBookingsHandler(verifier, aggregator, journal, tel),
		admin:        handlers.NewAdminHandler(st, resolver, journal),
		events:       handlers.NewEventsHandler(journal),
	}
}

// perform runs one handler invocation with an optional JSON body
func perform(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)

	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out), "Response body should be valid JSON")
}

func seedAvailability(t *testing.T, env *testEnv, hotelID string, dates []string, rooms int) {
	t.Helper()
	for _, date := range dates {
		require.NoError(t, env.store.UpsertAvailability(context.Background(), models.AvailabilityRecord{
			HotelID:        hotelID,
			Date:           date,
			RoomsAvailable: rooms,
		}))
	}
}

// TestNegotiateThenPay_EndToEnd tests the full negotiated flow: a 100,000
// base with a 20% override becomes an 80,000 nightly rate, and a two-night
// payment charges 160,000 plus 12,000 VAT.
func TestNegotiateThenPay_EndToEnd(t *testing.T) {
	// Arrange
	env := newTestEnv(t)
	require.NoError(t, env.store.SetDiscountOverride(context.Background(), "hotel-lagos-001", 0.2))

	// Act: negotiate
	rec := perform(t, env.negotiation.Negotiate, http.MethodPost, "/v1/negotiations",
		models.NegotiateRequest{PropertyID: "hotel-lagos-001", BaseTotal: 100000})

	// Assert the offer
	require.Equal(t, http.StatusOK, rec.Code)
	var negotiated models.NegotiateResponse
	decodeJSON(t, rec, &negotiated)
	assert.Equal(t, int64(80000), negotiated.DiscountedTotal)
	assert.Equal(t, 0.2, negotiated.DiscountRate)
	assert.NotEmpty(t, negotiated.Token)

	// Act: pay for two nights with the issued token
	rec = perform(t, env.payments.InitializePayment, http.MethodPost, "/v1/payments/initialize",
		models.PaymentInitRequest{
			PropertyID: "hotel-lagos-001",
			Email:      "guest@example.com",
			Amount:     1, // lowballed client amount, must be ignored
			CheckIn:    "2025-07-01",
			CheckOut:   "2025-07-03",
			Token:      negotiated.Token,
		})

	// Assert the server-computed charge
	require.Equal(t, http.StatusOK, rec.Code)
	var payment models.PaymentInitResponse
	decodeJSON(t, rec, &payment)
	assert.Equal(t, 2, payment.Nights)
	assert.Equal(t, int64(160000), payment.Subtotal)
	assert.Equal(t, int64(12000), payment.Tax)
	assert.Equal(t, int64(172000), payment.Total)
	assert.True(t, payment.Negotiated)
	assert.NotEmpty(t, payment.Reference)
}

// TestNegotiate_Validation tests rejected negotiation requests
func TestNegotiate_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.negotiation.Negotiate, http.MethodPost, "/v1/negotiations",
		models.NegotiateRequest{PropertyID: "", BaseTotal: -5})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp models.ErrorResponse
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, "bad_request", errResp.Code)
	assert.Len(t, errResp.Details, 2, "Both field problems should be reported")
}

// TestNegotiate_DefaultRateApplies tests negotiation without an override
func TestNegotiate_DefaultRateApplies(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SetDefaultRate(context.Background(), 0.1))

	rec := perform(t, env.negotiation.Negotiate, http.MethodPost, "/v1/negotiations",
		models.NegotiateRequest{PropertyID: "hotel-abuja-002", BaseTotal: 50000})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.NegotiateResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, int64(45000), resp.DiscountedTotal)
}

// TestPayments_TokenFailures tests the verification taxonomy over HTTP
func TestPayments_TokenFailures(t *testing.T) {
	env := newTestEnv(t)

	expiredToken, err := env.signer.Sign(offer.NegotiationOffer{
		PropertyID:      "hotel-lagos-001",
		DiscountedTotal: 80000,
		ExpiresAt:       time.Now().Add(-time.Minute).UnixMilli(),
	})
	require.NoError(t, err)

	validToken, err := env.signer.Sign(offer.NegotiationOffer{
		PropertyID:      "hotel-lagos-001",
		DiscountedTotal: 80000,
		ExpiresAt:       time.Now().Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		propertyID string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"malformed token", "hotel-lagos-001", "garbage", http.StatusUnauthorized, models.ErrCodeMalformedToken},
		{"tampered token", "hotel-lagos-001", validToken + "x", http.StatusUnauthorized, models.ErrCodeBadSignature},
		{"expired token", "hotel-lagos-001", expiredToken, http.StatusGone, models.ErrCodeExpired},
		{"mismatched property", "hotel-ph-003", validToken, http.StatusConflict, models.ErrCodeMismatchedProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := perform(t, env.payments.InitializePayment, http.MethodPost, "/v1/payments/initialize",
				models.PaymentInitRequest{
					PropertyID: tt.propertyID,
					Email:      "guest@example.com",
					Token:      tt.token,
				})

			require.Equal(t, tt.wantStatus, rec.Code)
			var errResp models.ErrorResponse
			decodeJSON(t, rec, &errResp)
			assert.Equal(t, tt.wantCode, errResp.Code)
		})
	}
}

// TestPayments_WithoutToken tests the non-negotiated path where the client
// amount is the nightly rate
func TestPayments_WithoutToken(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.payments.InitializePayment, http.MethodPost, "/v1/payments/initialize",
		models.PaymentInitRequest{
			PropertyID: "hotel-lagos-001",
			Email:      "guest@example.com",
			Amount:     90000,
			CheckIn:    "2025-07-01",
			CheckOut:   "2025-07-04",
		})

	require.Equal(t, http.StatusOK, rec.Code)
	var payment models.PaymentInitResponse
	decodeJSON(t, rec, &payment)
	assert.Equal(t, 3, payment.Nights)
	assert.Equal(t, int64(270000), payment.Subtotal)
	assert.Equal(t, int64(20250), payment.Tax)
	assert.Equal(t, int64(290250), payment.Total)
	assert.False(t, payment.Negotiated)
}

// TestPayments_WithoutTokenRequiresAmount tests the non-negotiated guard
func TestPayments_WithoutTokenRequiresAmount(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.payments.InitializePayment, http.MethodPost, "/v1/payments/initialize",
		models.PaymentInitRequest{PropertyID: "hotel-lagos-001", Email: "guest@example.com"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestAvailability_SingleHotel tests the single-hotel check response
func TestAvailability_SingleHotel(t *testing.T) {
	env := newTestEnv(t)
	seedAvailability(t, env, "hotel-a", []string{"2025-07-01", "2025-07-02"}, 3)

	rec := perform(t, env.availability.CheckAvailability, http.MethodPost, "/v1/availability/check",
		models.AvailabilityCheckRequest{HotelID: "hotel-a", CheckIn: "2025-07-01", CheckOut: "2025-07-03"})

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.AvailabilityResult
	decodeJSON(t, rec, &result)
	assert.True(t, result.IsAvailable)
	assert.Equal(t, 2, result.NightsRequired)
	assert.Len(t, result.PerNight, 2)
}

// TestAvailability_BulkExactlyOneAvailable tests the bulk shape: three
// hotels checked, exactly one bookable
func TestAvailability_BulkExactlyOneAvailable(t *testing.T) {
	// Arrange: A has rooms every night, B is sold out one night, C has no
	// data for the second night
	env := newTestEnv(t)
	seedAvailability(t, env, "hotel-a", []string{"2025-07-01", "2025-07-02"}, 2)
	seedAvailability(t, env, "hotel-b", []string{"2025-07-01"}, 2)
	seedAvailability(t, env, "hotel-b", []string{"2025-07-02"}, 0)
	seedAvailability(t, env, "hotel-c", []string{"2025-07-01"}, 2)

	// Act
	rec := perform(t, env.availability.CheckAvailability, http.MethodPost, "/v1/availability/check",
		models.AvailabilityCheckRequest{
			HotelIDs: []string{"hotel-a", "hotel-b", "hotel-c"},
			CheckIn:  "2025-07-01",
			CheckOut: "2025-07-03",
		})

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AvailabilityCheckResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "hotel-a", resp.Results[0].HotelID)
	assert.True(t, resp.Results[0].IsAvailable)
	assert.False(t, resp.Results[1].IsAvailable)
	assert.False(t, resp.Results[2].IsAvailable)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Available)
}

// TestAvailability_InvalidRange tests validation mapping to HTTP 400
func TestAvailability_InvalidRange(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.availability.CheckAvailability, http.MethodPost, "/v1/availability/check",
		models.AvailabilityCheckRequest{HotelID: "hotel-a", CheckIn: "2025-07-05", CheckOut: "2025-07-01"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp models.ErrorResponse
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, models.ErrCodeInvalidDateRange, errResp.Code)
}

// TestBookings_ConfirmedWithToken tests a negotiated booking against seeded
// availability
func TestBookings_ConfirmedWithToken(t *testing.T) {
	env := newTestEnv(t)
	seedAvailability(t, env, "hotel-lagos-001", []string{"2025-07-01", "2025-07-02"}, 4)

	token, err := env.signer.Sign(offer.NegotiationOffer{
		PropertyID:      "hotel-lagos-001",
		BaseTotal:       100000,
		DiscountedTotal: 80000,
		DiscountRate:    0.2,
		ExpiresAt:       time.Now().Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	rec := perform(t, env.bookings.ConfirmBooking, http.MethodPost, "/v1/bookings/confirm",
		models.BookingConfirmRequest{
			PropertyID: "hotel-lagos-001",
			GuestName:  "Ada Obi",
			Email:      "ada@example.com",
			CheckIn:    "2025-07-01",
			CheckOut:   "2025-07-03",
			Token:      token,
		})

	require.Equal(t, http.StatusOK, rec.Code)
	var booking models.BookingConfirmResponse
	decodeJSON(t, rec, &booking)
	assert.Equal(t, "confirmed", booking.Status)
	assert.Equal(t, int64(172000), booking.Total)
	assert.True(t, booking.Negotiated)
	assert.NotEmpty(t, booking.Reference)
}

// TestBookings_RefusedWhenUnavailable tests that a data gap blocks the
// booking
func TestBookings_RefusedWhenUnavailable(t *testing.T) {
	env := newTestEnv(t)
	// Only the first of two nights has data
	seedAvailability(t, env, "hotel-lagos-001", []string{"2025-07-01"}, 4)

	rec := perform(t, env.bookings.ConfirmBooking, http.MethodPost, "/v1/bookings/confirm",
		models.BookingConfirmRequest{
			PropertyID: "hotel-lagos-001",
			GuestName:  "Ada Obi",
			Email:      "ada@example.com",
			CheckIn:    "2025-07-01",
			CheckOut:   "2025-07-03",
			Amount:     90000,
		})

	require.Equal(t, http.StatusConflict, rec.Code)
	var errResp models.ErrorResponse
	decodeJSON(t, rec, &errResp)
	assert.Equal(t, "property_unavailable", errResp.Code)
}

// TestAdmin_SetDiscounts tests the batch discount write with mixed outcomes
func TestAdmin_SetDiscounts(t *testing.T) {
	env := newTestEnv(t)

	defaultRate := 0.1
	rec := perform(t, env.admin.SetDiscounts, http.MethodPut, "/v1/admin/discounts/set",
		models.AdminDiscountSetRequest{
			DefaultRate: &defaultRate,
			Overrides: []models.DiscountOverride{
				{PropertyID: "hotel-lagos-001", Rate: 0.25},
				{PropertyID: "hotel-abuja-002", Rate: 1.7},
				{PropertyID: "", Rate: 0.1},
			},
		})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AdminSetResponse
	decodeJSON(t, rec, &resp)
	require.Len(t, resp.Results, 4, "The default plus three overrides should each report")
	assert.Equal(t, 2, resp.Summary.Succeeded, "Only the default and the valid override apply")
	assert.Equal(t, 2, resp.Summary.Failed)

	// The valid writes are visible through the resolver immediately
	assert.Equal(t, 0.25, env.resolver.Resolve(context.Background(), "hotel-lagos-001"))
	assert.Equal(t, 0.1, env.resolver.Resolve(context.Background(), "hotel-unknown"))
}

// TestAdmin_SetDiscounts_EmptyRequest tests the no-op guard
func TestAdmin_SetDiscounts_EmptyRequest(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.admin.SetDiscounts, http.MethodPut, "/v1/admin/discounts/set",
		models.AdminDiscountSetRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestAdmin_SetAvailability tests the batch availability write
func TestAdmin_SetAvailability(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.admin.SetAvailability, http.MethodPut, "/v1/admin/availability/set",
		models.AdminAvailabilitySetRequest{
			Records: []models.AvailabilityRecord{
				{HotelID: "hotel-a", Date: "2025-07-01", RoomsAvailable: 5},
				{HotelID: "hotel-a", Date: "2025-07-02", RoomsAvailable: -1},
				{HotelID: "", Date: "2025-07-01", RoomsAvailable: 5},
			},
		})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AdminSetResponse
	decodeJSON(t, rec, &resp)
	assert.Equal(t, 1, resp.Summary.Succeeded)
	assert.Equal(t, 2, resp.Summary.Failed)

	// The applied row is immediately readable
	rec = perform(t, env.availability.CheckAvailability, http.MethodPost, "/v1/availability/check",
		models.AvailabilityCheckRequest{HotelID: "hotel-a", CheckIn: "2025-07-01", CheckOut: "2025-07-02"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.AvailabilityResult
	decodeJSON(t, rec, &result)
	assert.True(t, result.IsAvailable)
}

// TestEvents_Endpoint tests the journal read endpoint end to end
func TestEvents_Endpoint(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SetDiscountOverride(context.Background(), "hotel-lagos-001", 0.2))

	rec := perform(t, env.negotiation.Negotiate, http.MethodPost, "/v1/negotiations",
		models.NegotiateRequest{PropertyID: "hotel-lagos-001", BaseTotal: 100000})
	require.Equal(t, http.StatusOK, rec.Code)

	// The journal writer is async, so poll until the event lands
	require.Eventually(t, func() bool {
		got, _, _ := env.journal.GetEvents(0, 10)
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec = perform(t, env.events.GetEvents, http.MethodGet, "/v1/admin/events?offset=0", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.EventsResponse
	decodeJSON(t, rec, &resp)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, models.EventTypeOfferIssued, resp.Events[0].EventType)
	assert.Equal(t, "hotel-lagos-001", resp.Events[0].PropertyID)
	assert.Equal(t, int64(1), resp.NextOffset)
}

// TestEvents_RequiresOffset tests the offset parameter guard
func TestEvents_RequiresOffset(t *testing.T) {
	env := newTestEnv(t)

	rec := perform(t, env.events.GetEvents, http.MethodGet, "/v1/admin/events", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
