package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zapflow/zapflow-api/src/models"
)

// ErrNotFound indicates the requested row does not exist. Services map this
// onto their own sentinels so handlers never see storage-level errors.
var ErrNotFound = errors.New("not found")

// APIKeyStore defines the interface for API key data access. Key rows are
// never physically deleted; revocation flips status and is permanent.
type APIKeyStore interface {
	// Get loads a key by id with its scope rows joined into InstanceIDs
	Get(ctx context.Context, id uuid.UUID) (*models.APIKey, error)

	// Create persists a key and its scope rows as one atomic unit
	Create(ctx context.Context, key *models.APIKey, instanceIDs []string) error

	// CreateAndRevoke persists a new key + scope rows and revokes the old key
	// in the same transaction. Used by rotation.
	CreateAndRevoke(ctx context.Context, key *models.APIKey, instanceIDs []string, revokeID uuid.UUID) error

	// Revoke flips an active key owned by userID to revoked.
	// Returns ErrNotFound when no matching active key exists.
	Revoke(ctx context.Context, userID, id uuid.UUID) error

	// TouchLastUsed updates last_used_at to now. Best-effort; callers may
	// drop the result.
	TouchLastUsed(ctx context.Context, id uuid.UUID) error

	// ListByUser returns all keys belonging to userID, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
}

// InstanceStore defines the interface for WhatsApp instance data access
type InstanceStore interface {
	// FilterOwned returns the subset of candidates owned by userID,
	// preserving candidate order and dropping duplicates
	FilterOwned(ctx context.Context, userID uuid.UUID, candidates []string) ([]string, error)

	// Create persists a provisioned instance
	Create(ctx context.Context, inst *models.Instance) error

	// ListByUser returns all instances belonging to userID, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Instance, error)

	// UpdateStatus records a connection state change reported by the gateway
	UpdateStatus(ctx context.Context, instanceID string, status models.InstanceStatus) error
}
