package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories"
)

// APIKeyStore is a mock implementation of repositories.APIKeyStore
type APIKeyStore struct {
	// Function stubs that can be overridden in tests
	GetFunc             func(ctx context.Context, id uuid.UUID) (*models.APIKey, error)
	CreateFunc          func(ctx context.Context, key *models.APIKey, instanceIDs []string) error
	CreateAndRevokeFunc func(ctx context.Context, key *models.APIKey, instanceIDs []string, revokeID uuid.UUID) error
	RevokeFunc          func(ctx context.Context, userID, id uuid.UUID) error
	TouchLastUsedFunc   func(ctx context.Context, id uuid.UUID) error
	ListByUserFunc      func(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)

	// Call tracking. Guarded by mu: last_used_at updates arrive from a
	// detached goroutine and may overlap later requests.
	mu    sync.Mutex
	Calls map[string][]interface{}
}

// NewAPIKeyStore creates a new mock key store
func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		Calls: make(map[string][]interface{}),
	}
}

func (m *APIKeyStore) record(method string, args interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[method] = append(m.Calls[method], args)
}

// CallCount returns how many times a method was invoked
func (m *APIKeyStore) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls[method])
}

func (m *APIKeyStore) Get(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	m.record("Get", id)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, repositories.ErrNotFound
}

func (m *APIKeyStore) Create(ctx context.Context, key *models.APIKey, instanceIDs []string) error {
	m.record("Create", key)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, key, instanceIDs)
	}
	key.InstanceIDs = instanceIDs
	return nil
}

func (m *APIKeyStore) CreateAndRevoke(ctx context.Context, key *models.APIKey, instanceIDs []string, revokeID uuid.UUID) error {
	m.record("CreateAndRevoke", []interface{}{key, revokeID})
	if m.CreateAndRevokeFunc != nil {
		return m.CreateAndRevokeFunc(ctx, key, instanceIDs, revokeID)
	}
	key.InstanceIDs = instanceIDs
	return nil
}

func (m *APIKeyStore) Revoke(ctx context.Context, userID, id uuid.UUID) error {
	m.record("Revoke", []interface{}{userID, id})
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, userID, id)
	}
	return nil
}

func (m *APIKeyStore) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	m.record("TouchLastUsed", id)
	if m.TouchLastUsedFunc != nil {
		return m.TouchLastUsedFunc(ctx, id)
	}
	return nil
}

func (m *APIKeyStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error) {
	m.record("ListByUser", userID)
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

// Ensure APIKeyStore implements the interface
var _ repositories.APIKeyStore = (*APIKeyStore)(nil)
