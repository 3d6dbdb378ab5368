package mock

import (
	"context"

	"github.com/google/uuid"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories"
)

// InstanceStore is a mock implementation of repositories.InstanceStore
type InstanceStore struct {
	FilterOwnedFunc  func(ctx context.Context, userID uuid.UUID, candidates []string) ([]string, error)
	CreateFunc       func(ctx context.Context, inst *models.Instance) error
	ListByUserFunc   func(ctx context.Context, userID uuid.UUID) ([]models.Instance, error)
	UpdateStatusFunc func(ctx context.Context, instanceID string, status models.InstanceStatus) error

	// Call tracking
	Calls map[string][]interface{}
}

// NewInstanceStore creates a new mock instance store
func NewInstanceStore() *InstanceStore {
	return &InstanceStore{
		Calls: make(map[string][]interface{}),
	}
}

func (m *InstanceStore) FilterOwned(ctx context.Context, userID uuid.UUID, candidates []string) ([]string, error) {
	m.Calls["FilterOwned"] = append(m.Calls["FilterOwned"], candidates)
	if m.FilterOwnedFunc != nil {
		return m.FilterOwnedFunc(ctx, userID, candidates)
	}
	return candidates, nil
}

func (m *InstanceStore) Create(ctx context.Context, inst *models.Instance) error {
	m.Calls["Create"] = append(m.Calls["Create"], inst)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, inst)
	}
	return nil
}

func (m *InstanceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Instance, error) {
	m.Calls["ListByUser"] = append(m.Calls["ListByUser"], userID)
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *InstanceStore) UpdateStatus(ctx context.Context, instanceID string, status models.InstanceStatus) error {
	m.Calls["UpdateStatus"] = append(m.Calls["UpdateStatus"], []interface{}{instanceID, status})
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, instanceID, status)
	}
	return nil
}

// Ensure InstanceStore implements the interface
var _ repositories.InstanceStore = (*InstanceStore)(nil)
