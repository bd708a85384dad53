package model

import "time"

// ApiCacheEntry is a cached value keyed by a canonical fingerprint of
// (endpoint, sorted params). The generic payload is JSON-serialisable for
// entries promoted to the persistent tier.
type ApiCacheEntry[T any] struct {
	Key       string    `json:"key"`
	Value     T         `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid as of now.
func (e ApiCacheEntry[T]) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
