package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zapflow/zapflow-api/src/logging"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories"
)

// AuthResult is the resolved identity and authorization of an external caller
type AuthResult struct {
	APIKeyID           uuid.UUID
	UserID             uuid.UUID
	InstanceIDs        []string
	RateLimitPerMinute int

	// Legacy marks callers using the static shared key. They carry no
	// instance scope (allowed for all instances) and are limited only by
	// the per-IP bucket.
	Legacy bool
}

// AllowsInstance reports whether the caller may act on instanceID
func (r *AuthResult) AllowsInstance(instanceID string) bool {
	if r.Legacy {
		return true
	}
	for _, id := range r.InstanceIDs {
		if id == instanceID {
			return true
		}
	}
	return false
}

// AuthService resolves x-api-key header values to an identity plus scope.
// The legacy static-key fallback is a reduced-security path and stays off
// unless the operator opts in explicitly.
type AuthService struct {
	keys          repositories.APIKeyStore
	legacyKey     string
	legacyEnabled bool

	touchTimeout time.Duration
	now          func() time.Time
}

// NewAuthService creates a new authenticator backed by the given key store
func NewAuthService(keys repositories.APIKeyStore, legacyKey string, legacyEnabled bool) *AuthService {
	return &AuthService{
		keys:          keys,
		legacyKey:     legacyKey,
		legacyEnabled: legacyEnabled,
		touchTimeout:  5 * time.Second,
		now:           time.Now,
	}
}

// Authenticate validates a raw x-api-key header value against the key store.
// Checks run in a fixed order: parse, lookup, status, expiry, IP allowlist,
// secret hash. Every failure maps to a sentinel the middleware collapses
// into a generic response; only the server-side log records which check
// rejected the request.
func (s *AuthService) Authenticate(ctx context.Context, rawHeader, sourceIP string) (*AuthResult, error) {
	keyID, secret, err := ParseToken(rawHeader)
	if err != nil {
		// Structured parsing failed: legacy static key is the only
		// remaining match, by exact comparison.
		if s.legacyEnabled && s.legacyKey != "" &&
			subtle.ConstantTimeCompare([]byte(rawHeader), []byte(s.legacyKey)) == 1 {
			return &AuthResult{
				Legacy:             true,
				RateLimitPerMinute: models.DefaultRateLimitPerMinute,
			}, nil
		}
		return nil, ErrInvalidToken
	}

	key, err := s.keys.Get(ctx, keyID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}

	if !key.IsActive() {
		return nil, ErrKeyRevoked
	}

	if key.IsExpired(s.now()) {
		return nil, ErrKeyExpired
	}

	if !key.AllowsIP(sourceIP) {
		return nil, ErrIPNotAllowed
	}

	ok, err := VerifySecret(secret, key.Salt, key.KeyHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify secret: %w", err)
	}
	if !ok {
		return nil, ErrBadSecret
	}

	s.touchLastUsed(key.ID)

	return &AuthResult{
		APIKeyID:           key.ID,
		UserID:             key.UserID,
		InstanceIDs:        key.InstanceIDs,
		RateLimitPerMinute: key.EffectiveRateLimit(),
	}, nil
}

// touchLastUsed updates last_used_at in a detached goroutine. At-most-once,
// best-effort: a dropped or failed write never affects the authentication
// decision already made, and concurrent writes may land in any order.
func (s *AuthService) touchLastUsed(keyID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.touchTimeout)
		defer cancel()

		if err := s.keys.TouchLastUsed(ctx, keyID); err != nil {
			logger := logging.NewLogger("auth")
			logger.Warn().Err(err).Str("api_key_id", keyID.String()).Msg("failed to update last_used_at")
		}
	}()
}
