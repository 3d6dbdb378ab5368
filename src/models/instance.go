package models

import (
	"time"

	"github.com/google/uuid"
)

// Instance represents a provisioned WhatsApp instance on the Evolution gateway
type Instance struct {
	ID        string         `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Name      string         `json:"name"`
	Status    InstanceStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
