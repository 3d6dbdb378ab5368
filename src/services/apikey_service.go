package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories"
)

// APIKeyService handles key lifecycle operations for authenticated users
type APIKeyService struct {
	keys      repositories.APIKeyStore
	instances repositories.InstanceStore
}

// NewAPIKeyService creates a new key lifecycle service
func NewAPIKeyService(keys repositories.APIKeyStore, instances repositories.InstanceStore) *APIKeyService {
	return &APIKeyService{keys: keys, instances: instances}
}

// CreateKeyParams carries the caller-supplied attributes for a new key
type CreateKeyParams struct {
	Name               string
	InstanceIDs        []string
	ExpiresAt          *time.Time
	IPAllowlist        []string
	RateLimitPerMinute *int
}

// CreatedKey pairs the stored key with its plaintext token. The token exists
// only in this value; it is never retrievable again.
type CreatedKey struct {
	Key            *models.APIKey
	PlaintextToken string
}

// Create generates a fresh key scoped to the subset of the candidate
// instances the user actually owns. Unowned candidates are dropped silently;
// an empty filtered set is an error.
func (s *APIKeyService) Create(ctx context.Context, userID uuid.UUID, p CreateKeyParams) (*CreatedKey, error) {
	owned, err := s.instances.FilterOwned(ctx, userID, p.InstanceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to filter instances: %w", err)
	}
	if len(owned) == 0 {
		return nil, ErrNoValidInstances
	}

	key, secret, err := s.newKeyMaterial(userID)
	if err != nil {
		return nil, err
	}
	key.Name = p.Name
	key.ExpiresAt = p.ExpiresAt
	key.IPAllowlist = p.IPAllowlist
	key.RateLimitPerMinute = p.RateLimitPerMinute

	if err := s.keys.Create(ctx, key, owned); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	return &CreatedKey{Key: key, PlaintextToken: FormatToken(key.ID, secret)}, nil
}

// RotateOverrides selectively replaces attributes on the rotated key.
// Nil fields copy the old key's value.
type RotateOverrides struct {
	Name               *string
	ExpiresAt          *time.Time
	IPAllowlist        []string
	RateLimitPerMinute *int
}

// Rotate creates a brand-new key/secret pair copying the existing key's
// scope rows and unset-override attributes, optionally revoking the old key
// in the same transaction. The old key must belong to the caller.
func (s *APIKeyService) Rotate(ctx context.Context, userID, existingID uuid.UUID, o RotateOverrides, revokeOld bool) (*CreatedKey, error) {
	old, err := s.keys.Get(ctx, existingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}
	// Ownership check folds into not-found so key ids cannot be probed
	if old.UserID != userID {
		return nil, ErrKeyNotFound
	}

	key, secret, err := s.newKeyMaterial(userID)
	if err != nil {
		return nil, err
	}

	key.Name = old.Name
	if o.Name != nil {
		key.Name = *o.Name
	}
	key.ExpiresAt = old.ExpiresAt
	if o.ExpiresAt != nil {
		key.ExpiresAt = o.ExpiresAt
	}
	key.IPAllowlist = old.IPAllowlist
	if o.IPAllowlist != nil {
		key.IPAllowlist = o.IPAllowlist
	}
	key.RateLimitPerMinute = old.RateLimitPerMinute
	if o.RateLimitPerMinute != nil {
		key.RateLimitPerMinute = o.RateLimitPerMinute
	}

	if revokeOld {
		err = s.keys.CreateAndRevoke(ctx, key, old.InstanceIDs, old.ID)
	} else {
		err = s.keys.Create(ctx, key, old.InstanceIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rotate api key: %w", err)
	}

	return &CreatedKey{Key: key, PlaintextToken: FormatToken(key.ID, secret)}, nil
}

// Revoke permanently disables an active key owned by the caller. Idempotence
// is per lifecycle: a second revoke reports not found because no active key
// remains, and there is no un-revoke.
func (s *APIKeyService) Revoke(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.keys.Revoke(ctx, userID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	return nil
}

// List returns the caller's keys for display. Hash and salt never leave the
// model's json-excluded fields; last8 is the only secret-derived value shown.
func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// newKeyMaterial builds a key row with fresh secret, salt and hash
func (s *APIKeyService) newKeyMaterial(userID uuid.UUID) (*models.APIKey, string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return nil, "", err
	}
	salt, err := GenerateSalt()
	if err != nil {
		return nil, "", err
	}
	hash, err := HashSecret(secret, salt)
	if err != nil {
		return nil, "", err
	}

	return &models.APIKey{
		ID:      uuid.New(),
		UserID:  userID,
		KeyHash: hash,
		Salt:    salt,
		Last8:   Last8(secret),
		Status:  models.KeyStatusActive,
	}, secret, nil
}
