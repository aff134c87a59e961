package pricing_test

import (
	"testing"
	"time"

	"booking-marketplace-api/internal/offer"
	"booking-marketplace-api/internal/pricing"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// TestNightsBetween tests stay-length derivation
func TestNightsBetween(t *testing.T) {
	assert.Equal(t, 1, pricing.NightsBetween(day(2025, 6, 1), day(2025, 6, 2)), "One calendar day apart is one night")
	assert.Equal(t, 3, pricing.NightsBetween(day(2025, 6, 1), day(2025, 6, 4)), "Three calendar days apart is three nights")
	assert.Equal(t, 1, pricing.NightsBetween(day(2025, 6, 1), day(2025, 6, 1)), "Degenerate ranges floor at one night")
	assert.Equal(t, 1, pricing.NightsBetween(day(2025, 6, 4), day(2025, 6, 1)), "Inverted ranges floor at one night")
}

// TestComputeChargeable_SingleNight tests that one-night stays carry no VAT
func TestComputeChargeable_SingleNight(t *testing.T) {
	// Arrange: a nightly rate of 90,000 Naira
	o := offer.NegotiationOffer{DiscountedTotal: 90000}

	// Act
	quote := pricing.ComputeChargeable(o, 1)

	// Assert
	assert.Equal(t, 1, quote.Nights)
	assert.Equal(t, int64(90000), quote.Subtotal)
	assert.Equal(t, int64(0), quote.Tax, "Single-night stays are not taxed")
	assert.Equal(t, int64(90000), quote.Total)
}

// TestComputeChargeable_MultiNight tests VAT on a three-night stay
func TestComputeChargeable_MultiNight(t *testing.T) {
	// Arrange: three nights at 90,000 Naira
	o := offer.NegotiationOffer{DiscountedTotal: 90000}

	// Act
	quote := pricing.ComputeChargeable(o, 3)

	// Assert: 270,000 subtotal, 7.5% VAT of 20,250
	assert.Equal(t, 3, quote.Nights)
	assert.Equal(t, int64(270000), quote.Subtotal)
	assert.Equal(t, int64(20250), quote.Tax)
	assert.Equal(t, int64(290250), quote.Total)
}

// TestComputeChargeable_NegotiatedTwoNights tests the discounted two-night
// combination
func TestComputeChargeable_NegotiatedTwoNights(t *testing.T) {
	// Arrange: a 100,000 base discounted 20% to an 80,000 nightly rate
	o := offer.NegotiationOffer{
		PropertyID:      "hotel-abuja-002",
		BaseTotal:       100000,
		DiscountedTotal: 80000,
		DiscountRate:    0.2,
	}

	// Act
	quote := pricing.ComputeChargeable(o, 2)

	// Assert: 160,000 subtotal, 12,000 VAT, 172,000 total
	assert.Equal(t, int64(160000), quote.Subtotal)
	assert.Equal(t, int64(12000), quote.Tax)
	assert.Equal(t, int64(172000), quote.Total)
}

// TestComputeChargeable_ZeroNightsClamped tests the nights floor
func TestComputeChargeable_ZeroNightsClamped(t *testing.T) {
	o := offer.NegotiationOffer{DiscountedTotal: 50000}

	quote := pricing.ComputeChargeable(o, 0)

	assert.Equal(t, 1, quote.Nights)
	assert.Equal(t, int64(50000), quote.Total)
}

// TestComputeChargeable_TaxRounding tests half-up rounding of the VAT amount
func TestComputeChargeable_TaxRounding(t *testing.T) {
	// 33,333 * 2 = 66,666; 7.5% = 4,999.95 which rounds to 5,000
	o := offer.NegotiationOffer{DiscountedTotal: 33333}

	quote := pricing.ComputeChargeable(o, 2)

	assert.Equal(t, int64(66666), quote.Subtotal)
	assert.Equal(t, int64(5000), quote.Tax)
	assert.Equal(t, int64(71666), quote.Total)
}

// TestComputeNightly tests direct nightly-rate pricing
func TestComputeNightly(t *testing.T) {
	quote := pricing.ComputeNightly(90000, 3)

	assert.Equal(t, int64(270000), quote.Subtotal)
	assert.Equal(t, int64(20250), quote.Tax)
	assert.Equal(t, int64(290250), quote.Total)
}
