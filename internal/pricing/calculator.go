package pricing

import (
	"math"
	"time"

	"booking-marketplace-api/internal/offer"
)

// vatRate is Nigeria's 7.5% VAT. It applies to multi-night stays only; a
// single-night stay is charged the bare nightly rate.
const vatRate = 0.075

// Quote is a server-computed chargeable amount, in whole Naira
type Quote struct {
	Nights   int   `json:"nights"`
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// NightsBetween returns the stay length in whole nights, never less than 1.
// Inputs are expected at UTC midnight; the rounding tolerates DST-style
// drift if a caller hands in un-normalized instants.
func NightsBetween(checkIn, checkOut time.Time) int {
	nights := int(math.Round(checkOut.Sub(checkIn).Hours() / 24))
	if nights < 1 {
		return 1
	}
	return nights
}

// ComputeChargeable derives the amount to charge from a verified offer and a
// stay length. The offer's discountedTotal is a nightly rate; any
// client-proposed total is ignored by callers in favor of this result.
func ComputeChargeable(o offer.NegotiationOffer, nights int) Quote {
	if nights < 1 {
		nights = 1
	}

	subtotal := o.DiscountedTotal * int64(nights)

	var tax int64
	if nights > 1 {
		tax = int64(math.Round(float64(subtotal) * vatRate))
	}

	return Quote{
		Nights:   nights,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// ComputeNightly prices a stay directly from a nightly rate, for bookings
// that arrive without a negotiation token.
func ComputeNightly(nightlyRate int64, nights int) Quote {
	return ComputeChargeable(offer.NegotiationOffer{DiscountedTotal: nightlyRate}, nights)
}
