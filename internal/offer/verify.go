package offer

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"booking-marketplace-api/internal/models"
)

// VerifyError is a typed verification failure. Code is one of the
// models.ErrCode* token codes, so handlers can map it to a user-facing
// message without string matching.
type VerifyError struct {
	Code    string
	Message string
}

func (e *VerifyError) Error() string {
	return e.Message
}

// Verifier validates negotiation offer tokens. Verification is pure and
// stateless, safe under arbitrary concurrency.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a verifier using the server-held secret
func NewVerifier(secret []byte) *Verifier {
	return NewVerifierWithClock(secret, time.Now)
}

// NewVerifierWithClock creates a verifier driven by the provided clock
func NewVerifierWithClock(secret []byte, now func() time.Time) *Verifier {
	return &Verifier{secret: secret, now: now}
}

// payloadClaims uses pointers for the required claims so an absent field
// is distinguishable from a zero value
type payloadClaims struct {
	PropertyID      *string  `json:"propertyId"`
	BaseTotal       int64    `json:"baseTotal"`
	DiscountedTotal *int64   `json:"discountedTotal"`
	DiscountRate    float64  `json:"discountRate"`
	ExpiresAt       *float64 `json:"expiresAt"`
}

// Verify checks a token and returns its payload. Checks short-circuit in a
// fixed order: presence, shape, signature, payload, expiry. The signature is
// verified before the payload is decoded, so a caller cannot probe
// payload-shape errors without a validly signed token.
func (v *Verifier) Verify(token string) (NegotiationOffer, error) {
	if token == "" {
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeMissingToken,
			Message: "negotiation token is required",
		}
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeMalformedToken,
			Message: "token must have three dot-separated segments",
		}
	}

	// Constant-time comparison of the encoded signatures. An undecodable
	// signature segment fails here the same way a wrong one does.
	expected := computeSignature(v.secret, parts[0]+"."+parts[1])
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		slog.Warn("Offer token signature mismatch")
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeBadSignature,
			Message: "token signature is invalid",
		}
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeInvalidPayload,
			Message: "token payload is not valid base64url",
		}
	}

	var claims payloadClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeInvalidPayload,
			Message: "token payload is not valid JSON",
		}
	}
	if claims.PropertyID == nil || *claims.PropertyID == "" ||
		claims.DiscountedTotal == nil || claims.ExpiresAt == nil {
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeInvalidPayload,
			Message: "token payload is missing required claims",
		}
	}

	expiresAt := int64(*claims.ExpiresAt)
	if v.now().UnixMilli() > expiresAt {
		return NegotiationOffer{}, &VerifyError{
			Code:    models.ErrCodeExpired,
			Message: "negotiation offer has expired",
		}
	}

	return NegotiationOffer{
		PropertyID:      *claims.PropertyID,
		BaseTotal:       claims.BaseTotal,
		DiscountedTotal: *claims.DiscountedTotal,
		DiscountRate:    claims.DiscountRate,
		ExpiresAt:       expiresAt,
	}, nil
}
