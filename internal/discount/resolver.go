package discount

import (
	"context"
	"log/slog"
	"math"
	"time"

	"booking-marketplace-api/internal/cache"
)

// FixedDefaultRate is the rate of last resort when the backing config is
// unreadable or malformed.
const FixedDefaultRate = 0.15

// Store is the external discount-config collaborator. The backing store
// (file or DB) is irrelevant here.
type Store interface {
	DefaultRate(ctx context.Context) (float64, error)
	Override(ctx context.Context, propertyID string) (float64, bool, error)
}

// Resolver resolves a discount rate in [0,1] for a property, preferring a
// per-property override over the global default. Results are served through
// a short-TTL read-through cache to bound staleness without invalidation
// signalling.
type Resolver struct {
	store Store
	cache *cache.TTLCache
}

// NewResolver creates a resolver with its own result cache
func NewResolver(store Store, ttl, cleanupInterval time.Duration) *Resolver {
	return NewResolverWithClock(store, ttl, cleanupInterval, time.Now)
}

// NewResolverWithClock creates a resolver whose cache runs on the provided
// clock
func NewResolverWithClock(store Store, ttl, cleanupInterval time.Duration, now func() time.Time) *Resolver {
	return &Resolver{
		store: store,
		cache: cache.NewTTLCacheWithClock(ttl, cleanupInterval, now),
	}
}

// Resolve returns the discount rate for a property. It never errors: an
// empty id resolves to 0 and any storage failure degrades to the fixed
// default. The returned rate is always in [0,1].
func (r *Resolver) Resolve(ctx context.Context, propertyID string) float64 {
	if propertyID == "" {
		return 0
	}

	if cached, ok := r.cache.Get(propertyID); ok {
		if rate, ok := cached.(float64); ok {
			return rate
		}
	}

	rate := r.lookup(ctx, propertyID)
	r.cache.Set(propertyID, rate)
	return rate
}

// lookup reads through to the store. Overrides win when valid; otherwise the
// clamped default applies.
func (r *Resolver) lookup(ctx context.Context, propertyID string) float64 {
	override, found, err := r.store.Override(ctx, propertyID)
	if err != nil {
		slog.Warn("Failed to read discount override, using default rate",
			"property_id", propertyID,
			"error", err)
	} else if found && validRate(override) {
		return override
	}

	defaultRate, err := r.store.DefaultRate(ctx)
	if err != nil {
		slog.Warn("Failed to read default discount rate, using fixed default",
			"property_id", propertyID,
			"error", err)
		return FixedDefaultRate
	}
	if !validRate(defaultRate) {
		slog.Warn("Default discount rate out of range, using fixed default",
			"configured", defaultRate)
		return clampRate(defaultRate)
	}
	return defaultRate
}

// Invalidate drops all cached rates so subsequent resolves re-read the
// store. Admin writes call this to make changes visible before TTL expiry.
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}

// Stop releases the cache's janitor goroutine
func (r *Resolver) Stop() {
	r.cache.Stop()
}

// CacheStats exposes cache statistics for the admin surface
func (r *Resolver) CacheStats() map[string]interface{} {
	return r.cache.GetStats()
}

func validRate(rate float64) bool {
	return !math.IsNaN(rate) && !math.IsInf(rate, 0) && rate >= 0 && rate <= 1
}

// clampRate forces a malformed configured default back into [0,1], falling
// back to the fixed default when it is not a finite number at all
func clampRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return FixedDefaultRate
	}
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
