package models

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Error codes for negotiation and availability failures. These are returned
// verbatim in the error envelope so clients can branch deterministically.
const (
	ErrCodeMissingToken       = "missing-token"
	ErrCodeMalformedToken     = "malformed-token"
	ErrCodeBadSignature       = "bad-signature"
	ErrCodeInvalidPayload     = "invalid-payload"
	ErrCodeExpired            = "expired"
	ErrCodeMismatchedProperty = "mismatched-property"
	ErrCodeInvalidDateRange   = "invalid-date-range"
	ErrCodeInvalidRoomCount   = "invalid-room-count"
)

// NegotiateRequest is the body for POST /v1/negotiations
type NegotiateRequest struct {
	PropertyID string `json:"propertyId"`
	BaseTotal  int64  `json:"baseTotal"`
}

// NegotiateResponse carries the signed offer back to the client
type NegotiateResponse struct {
	PropertyID      string  `json:"propertyId"`
	BaseTotal       int64   `json:"baseTotal"`
	DiscountedTotal int64   `json:"discountedTotal"`
	DiscountRate    float64 `json:"discountRate"`
	ExpiresAt       int64   `json:"expiresAt"`
	Token           string  `json:"token"`
}

// AvailabilityRecord is one row of per-night inventory for a hotel.
// The backing store enforces at most one record per (hotelId, date).
type AvailabilityRecord struct {
	HotelID        string `json:"hotelId"`
	Date           string `json:"date"` // YYYY-MM-DD
	RoomsAvailable int    `json:"roomsAvailable"`
}

// NightAvailability is the per-night slice of an availability result.
// RoomsAvailable is -1 when no record exists for that night.
type NightAvailability struct {
	Date           string `json:"date"`
	RoomsAvailable int    `json:"roomsAvailable"`
	CanAccommodate bool   `json:"canAccommodate"`
}

// AvailabilityResult is the derived answer for one hotel and date range.
// IsAvailable is true only when every night has data and enough rooms;
// a night with missing data forces both IsAvailable and HasCompleteData false.
type AvailabilityResult struct {
	HotelID           string              `json:"hotelId"`
	CheckIn           string              `json:"checkIn"`
	CheckOut          string              `json:"checkOut"`
	RoomsRequested    int                 `json:"roomsRequested"`
	NightsRequired    int                 `json:"nightsRequired"`
	PerNight          []NightAvailability `json:"perNight"`
	IsAvailable       bool                `json:"isAvailable"`
	HasCompleteData   bool                `json:"hasCompleteData"`
	MinRoomsAvailable int                 `json:"minRoomsAvailable"`
}

// AvailabilityCheckRequest is the body for POST /v1/availability/check.
// Either HotelID (single) or HotelIDs (bulk) is set, mirroring the
// single-or-batch shape used elsewhere in the API.
type AvailabilityCheckRequest struct {
	HotelID        string   `json:"hotelId,omitempty"`
	HotelIDs       []string `json:"hotelIds,omitempty"`
	CheckIn        string   `json:"checkIn"`
	CheckOut       string   `json:"checkOut"`
	RoomsRequested int      `json:"roomsRequested,omitempty"`
}

// AvailabilityCheckResponse wraps one result per requested hotel, in the
// order the hotels were requested.
type AvailabilityCheckResponse struct {
	Results []AvailabilityResult `json:"results"`
	Summary *AvailabilitySummary `json:"summary,omitempty"`
}

// AvailabilitySummary provides aggregate counts for bulk checks
type AvailabilitySummary struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

// PaymentInitRequest is the body for POST /v1/payments/initialize.
// Amount is advisory only; a verified negotiation token always wins.
type PaymentInitRequest struct {
	PropertyID string `json:"propertyId"`
	Email      string `json:"email"`
	Amount     int64  `json:"amount,omitempty"`
	CheckIn    string `json:"checkIn,omitempty"`
	CheckOut   string `json:"checkOut,omitempty"`
	Token      string `json:"negotiationToken,omitempty"`
}

// PaymentInitResponse returns the server-computed charge and the intent
// reference handed to the payment gateway.
type PaymentInitResponse struct {
	Reference  string `json:"reference"`
	PropertyID string `json:"propertyId"`
	Nights     int    `json:"nights"`
	Subtotal   int64  `json:"subtotal"`
	Tax        int64  `json:"tax"`
	Total      int64  `json:"total"`
	Negotiated bool   `json:"negotiated"`
}

// PaymentIntent is what gets persisted for the gateway callback to match
type PaymentIntent struct {
	Reference  string `json:"reference"`
	PropertyID string `json:"propertyId"`
	Email      string `json:"email"`
	Amount     int64  `json:"amount"`
	CheckIn    string `json:"checkIn,omitempty"`
	CheckOut   string `json:"checkOut,omitempty"`
	Negotiated bool   `json:"negotiated"`
	CreatedAt  string `json:"createdAt"`
}

// BookingConfirmRequest is the body for POST /v1/bookings/confirm
type BookingConfirmRequest struct {
	PropertyID string `json:"propertyId"`
	GuestName  string `json:"guestName"`
	Email      string `json:"email"`
	CheckIn    string `json:"checkIn"`
	CheckOut   string `json:"checkOut"`
	Rooms      int    `json:"rooms,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Token      string `json:"negotiationToken,omitempty"`
}

// BookingConfirmResponse reports the booking reference and the totals the
// server actually committed to.
type BookingConfirmResponse struct {
	Reference  string `json:"reference"`
	PropertyID string `json:"propertyId"`
	Nights     int    `json:"nights"`
	Subtotal   int64  `json:"subtotal"`
	Tax        int64  `json:"tax"`
	Total      int64  `json:"total"`
	Negotiated bool   `json:"negotiated"`
	Status     string `json:"status"`
}

// DiscountOverride sets one per-property discount rate
type DiscountOverride struct {
	PropertyID string  `json:"propertyId"`
	Rate       float64 `json:"rate"`
}

// AdminDiscountSetRequest is the body for PUT /v1/admin/discounts/set.
// DefaultRate, when present, replaces the global default.
type AdminDiscountSetRequest struct {
	DefaultRate *float64           `json:"defaultRate,omitempty"`
	Overrides   []DiscountOverride `json:"overrides,omitempty"`
}

// AdminAvailabilitySetRequest is the body for PUT /v1/admin/availability/set
type AdminAvailabilitySetRequest struct {
	Records []AvailabilityRecord `json:"records"`
}

// AdminSetSummary provides summary statistics for admin batch writes
type AdminSetSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// AdminSetResponse reports per-item outcomes for admin batch writes
type AdminSetResponse struct {
	Results []AdminSetResult `json:"results"`
	Summary AdminSetSummary  `json:"summary"`
}

type AdminSetResult struct {
	Key     string `json:"key"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// Event represents a domain event in the marketplace journal
type Event struct {
	Offset     int64  `json:"offset"`
	Timestamp  string `json:"timestamp"`
	EventType  string `json:"eventType"`
	PropertyID string `json:"propertyId"`
	Reference  string `json:"reference,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
}

// EventsResponse represents the response for the admin events endpoint
type EventsResponse struct {
	Events     []Event `json:"events"`
	NextOffset int64   `json:"nextOffset"`
	HasMore    bool    `json:"hasMore"`
	Count      int     `json:"count"`
}

// EventType constants
const (
	EventTypeOfferIssued         = "offer_issued"
	EventTypePaymentInitialized  = "payment_initialized"
	EventTypeBookingConfirmed    = "booking_confirmed"
	EventTypeDiscountOverrideSet = "discount_override_set"
	EventTypeAvailabilitySet     = "availability_set"
)
