// Package ratelimit implements the fixed-window request counters applied to
// externally-authenticated actions. The window is aligned to 60-second wall
// clock boundaries, which admits up to 2x burst across a boundary; callers
// compensate by stacking a per-key and a per-IP bucket on the same action.
package ratelimit

// Result is the outcome of a single counter check
type Result struct {
	Allowed   bool
	Remaining int
	// ResetInMs is the time until the current window rolls over
	ResetInMs int64
}

// Store is the injectable bucket backend. The in-memory implementation serves
// single-instance deployments; a multi-instance deployment needs a shared
// backend behind the same interface, otherwise each instance counts alone.
type Store interface {
	// Check records one request against key and reports whether it is within
	// limit requests per minute. At the limit the count is not incremented.
	Check(key string, limit int) Result

	// Stop releases any background resources held by the store
	Stop()
}
