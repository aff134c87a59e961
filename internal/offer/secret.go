package offer

import (
	"fmt"
	"log/slog"
	"os"
)

// developmentSecret is only ever used outside production, and only after a
// logged warning.
const developmentSecret = "dev-only-negotiation-secret"

// ResolveSecret resolves the token signing secret from the environment.
// OFFER_SIGNING_SECRET wins; APP_SECRET is the shared fallback. With neither
// set, a production deployment must refuse to operate rather than sign with
// a guessable default, so this returns an error there; development gets a
// fixed placeholder and a warning.
func ResolveSecret(environment string) ([]byte, error) {
	if secret := os.Getenv("OFFER_SIGNING_SECRET"); secret != "" {
		return []byte(secret), nil
	}

	if secret := os.Getenv("APP_SECRET"); secret != "" {
		slog.Warn("OFFER_SIGNING_SECRET not set, falling back to APP_SECRET")
		return []byte(secret), nil
	}

	if environment == "production" {
		return nil, fmt.Errorf("no signing secret configured: set OFFER_SIGNING_SECRET or APP_SECRET")
	}

	slog.Warn("No signing secret configured, using development placeholder",
		"environment", environment)
	return []byte(developmentSecret), nil
}
