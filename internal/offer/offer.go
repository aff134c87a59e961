package offer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// NegotiationOffer is the signed claim that a specific discounted price
// applies to a specific property. It is never stored server-side; its
// authenticity derives entirely from the signature. DiscountedTotal is
// interpreted as a nightly rate at charge time.
type NegotiationOffer struct {
	PropertyID      string  `json:"propertyId"`
	BaseTotal       int64   `json:"baseTotal"`
	DiscountedTotal int64   `json:"discountedTotal"`
	DiscountRate    float64 `json:"discountRate"`
	ExpiresAt       int64   `json:"expiresAt"` // epoch millis
}

// encodedHeader is the fixed first segment of every token: {"alg":"HS256","typ":"JWT"}
var encodedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Signer issues negotiation offer tokens
type Signer struct {
	secret []byte
}

// NewSigner creates a signer using the server-held secret
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign serializes the offer and produces the three-segment token
// header.payload.signature, all segments base64url without padding.
// Business invariants (non-empty property id, discountedTotal <= baseTotal,
// future expiry) are the caller's responsibility; they are re-checked only
// on the verify path.
func (s *Signer) Sign(o NegotiationOffer) (string, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("error marshaling offer payload: %w", err)
	}

	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + computeSignature(s.secret, signingInput), nil
}

// computeSignature returns the base64url-encoded HMAC-SHA256 digest over
// the signing input
func computeSignature(secret []byte, signingInput string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
