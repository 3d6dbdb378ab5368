package models

// KeyStatus represents the lifecycle state of an API key
type KeyStatus string

const (
	// KeyStatusActive indicates the key can authenticate requests
	KeyStatusActive KeyStatus = "active"
	// KeyStatusRevoked indicates the key is permanently disabled
	KeyStatusRevoked KeyStatus = "revoked"
)

// InstanceStatus represents the connection state of a WhatsApp instance
type InstanceStatus string

const (
	// InstanceStatusCreated indicates the instance was provisioned but never connected
	InstanceStatusCreated InstanceStatus = "created"
	// InstanceStatusConnected indicates the instance has an open WhatsApp session
	InstanceStatusConnected InstanceStatus = "connected"
	// InstanceStatusDisconnected indicates the WhatsApp session was closed
	InstanceStatusDisconnected InstanceStatus = "disconnected"
)

// TokenPrefix is the leading segment of every structured API token
const TokenPrefix = "zap"

// DefaultRateLimitPerMinute applies when a key has no explicit limit
const DefaultRateLimitPerMinute = 60
