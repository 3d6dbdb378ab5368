package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents a stored external API key. The plaintext secret is never
// persisted; only the scrypt hash, the per-key salt and the trailing eight
// characters for display.
type APIKey struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	Name               string     `json:"name"`
	KeyHash            string     `json:"-"`
	Salt               string     `json:"-"`
	Last8              string     `json:"last8"`
	Status             KeyStatus  `json:"status"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	IPAllowlist        []string   `json:"ip_allowlist,omitempty"`
	RateLimitPerMinute *int       `json:"rate_limit_per_minute,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`

	// InstanceIDs holds the scope rows joined at load time
	InstanceIDs []string `json:"instance_ids,omitempty"`
}

// IsActive returns true if the key has not been revoked
func (k *APIKey) IsActive() bool {
	return k.Status == KeyStatusActive
}

// IsExpired returns true if the key has an expiry in the past
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// AllowsIP reports whether sourceIP may use this key. An empty allowlist
// means unrestricted; matching is exact string comparison, no CIDR logic.
func (k *APIKey) AllowsIP(sourceIP string) bool {
	if len(k.IPAllowlist) == 0 {
		return true
	}
	if sourceIP == "" {
		return false
	}
	for _, ip := range k.IPAllowlist {
		if ip == sourceIP {
			return true
		}
	}
	return false
}

// EffectiveRateLimit returns the per-minute limit for this key, falling back
// to the system default when unset or non-positive.
func (k *APIKey) EffectiveRateLimit() int {
	if k.RateLimitPerMinute != nil && *k.RateLimitPerMinute > 0 {
		return *k.RateLimitPerMinute
	}
	return DefaultRateLimitPerMinute
}
