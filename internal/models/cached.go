package models

import "time"

// Cached pairs a value with the time it was last refreshed, so staleness is
// a pure computation instead of hidden mutable state.
type Cached[T any] struct {
	Value         T
	LastRefreshed time.Time
}

// Refresh returns a new snapshot holding value as of now.
func Refresh[T any](value T, now time.Time) Cached[T] {
	return Cached[T]{Value: value, LastRefreshed: now}
}

// Stale reports whether the snapshot is older than ttl at the given time.
// A zero snapshot is always stale.
func (c Cached[T]) Stale(now time.Time, ttl time.Duration) bool {
	if c.LastRefreshed.IsZero() {
		return true
	}
	return now.Sub(c.LastRefreshed) > ttl
}
