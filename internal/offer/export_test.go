package offer

import "encoding/base64"

// SignRaw signs an arbitrary payload string, letting tests produce validly
// signed tokens whose payloads would never come out of Sign.
func SignRaw(secret []byte, payload string) string {
	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString([]byte(payload))
	return signingInput + "." + computeSignature(secret, signingInput)
}
