package pricing

import "time"

// RulesCache fronts RuleStore.ListActive so a simulate-per-keystroke UI
// does not hit the database on every preview. Implementations may be
// in-memory, Redis, or anything else.
type RulesCache interface {
	// Get retrieves cached rules, returns nil if cache miss or expired
	Get() []*Rule

	// Set stores rules in cache
	Set(rules []*Rule)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries
	// Set to 0 for no expiration (manual invalidation only)
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for rule caching:
// no TTL, invalidate on rule mutations only.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
