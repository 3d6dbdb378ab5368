package services

import "errors"

// Sentinel errors for explicit error handling
// These errors allow callers to distinguish between different failure modes
// using errors.Is() instead of string matching. Handlers collapse the
// authentication failures into one generic 401 so callers cannot probe
// which check rejected them.

var (
	// ErrInvalidToken indicates the presented token does not match zap_<id>_<secret>
	ErrInvalidToken = errors.New("invalid token format")

	// ErrKeyNotFound indicates no key row exists for the parsed id
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyRevoked indicates the key was revoked and can never authenticate again
	ErrKeyRevoked = errors.New("api key revoked")

	// ErrKeyExpired indicates the key's expires_at is in the past
	ErrKeyExpired = errors.New("api key expired")

	// ErrBadSecret indicates the presented secret does not match the stored hash
	ErrBadSecret = errors.New("api key secret mismatch")

	// ErrIPNotAllowed indicates the source IP is not in the key's allowlist
	ErrIPNotAllowed = errors.New("source ip not allowed")

	// ErrNoValidInstances indicates key creation was requested with no owned instances
	ErrNoValidInstances = errors.New("no valid instances for key scope")
)
