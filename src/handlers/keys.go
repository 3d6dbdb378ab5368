package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zapflow/zapflow-api/src/middleware"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/services"
)

// KeyHandler handles API key lifecycle requests on the management API
type KeyHandler struct {
	keyService *services.APIKeyService
}

// NewKeyHandler creates a new key lifecycle handler
func NewKeyHandler(keyService *services.APIKeyService) *KeyHandler {
	return &KeyHandler{keyService: keyService}
}

// createKeyRequest is the management payload for creating a key
type createKeyRequest struct {
	Name               string     `json:"name" binding:"required"`
	InstanceIDs        []string   `json:"instance_ids" binding:"required"`
	ExpiresAt          *time.Time `json:"expires_at"`
	IPAllowlist        []string   `json:"ip_allowlist"`
	RateLimitPerMinute *int       `json:"rate_limit_per_minute"`
}

// keyResponse is the display shape for a key. The plaintext token is added
// only on creation and rotation.
type keyResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Last8              string     `json:"last8"`
	Status             string     `json:"status"`
	InstanceIDs        []string   `json:"instance_ids"`
	IPAllowlist        []string   `json:"ip_allowlist,omitempty"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toKeyResponse(key *models.APIKey) keyResponse {
	return keyResponse{
		ID:                 key.ID.String(),
		Name:               key.Name,
		Last8:              key.Last8,
		Status:             string(key.Status),
		InstanceIDs:        key.InstanceIDs,
		IPAllowlist:        key.IPAllowlist,
		RateLimitPerMinute: key.EffectiveRateLimit(),
		ExpiresAt:          key.ExpiresAt,
		LastUsedAt:         key.LastUsedAt,
		CreatedAt:          key.CreatedAt,
	}
}

// callerID resolves the authenticated user id set by the session middleware
func callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "missing or invalid token",
		})
		return uuid.Nil, false
	}
	return userID, true
}

// HandleCreate creates a new API key scoped to the caller's instances.
// The response is the only place the plaintext token ever appears.
func (kh *KeyHandler) HandleCreate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "name and instance_ids are required",
		})
		return
	}

	created, err := kh.keyService.Create(c.Request.Context(), userID, services.CreateKeyParams{
		Name:               req.Name,
		InstanceIDs:        req.InstanceIDs,
		ExpiresAt:          req.ExpiresAt,
		IPAllowlist:        req.IPAllowlist,
		RateLimitPerMinute: req.RateLimitPerMinute,
	})
	if err != nil {
		if errors.Is(err, services.ErrNoValidInstances) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "no valid instances for this key",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("failed to create api key")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to create api key",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"key":     toKeyResponse(created.Key),
		"token":   created.PlaintextToken,
	})
}

// rotateKeyRequest carries optional attribute overrides for rotation
type rotateKeyRequest struct {
	Name               *string    `json:"name"`
	ExpiresAt          *time.Time `json:"expires_at"`
	IPAllowlist        []string   `json:"ip_allowlist"`
	RateLimitPerMinute *int       `json:"rate_limit_per_minute"`
	KeepOld            bool       `json:"keep_old"`
}

// HandleRotate issues a replacement key copying the old key's scope. The old
// key is revoked in the same transaction unless keep_old is set, which gives
// callers a migration window.
func (kh *KeyHandler) HandleRotate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "key not found",
		})
		return
	}

	// Body is optional: rotating with no body copies every attribute
	var req rotateKeyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "invalid request body",
			})
			return
		}
	}

	rotated, err := kh.keyService.Rotate(c.Request.Context(), userID, keyID, services.RotateOverrides{
		Name:               req.Name,
		ExpiresAt:          req.ExpiresAt,
		IPAllowlist:        req.IPAllowlist,
		RateLimitPerMinute: req.RateLimitPerMinute,
	}, !req.KeepOld)
	if err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "key not found",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("failed to rotate api key")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to rotate api key",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     toKeyResponse(rotated.Key),
		"token":   rotated.PlaintextToken,
	})
}

// HandleRevoke permanently disables a key. Revocation cannot be undone.
func (kh *KeyHandler) HandleRevoke(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "key not found",
		})
		return
	}

	if err := kh.keyService.Revoke(c.Request.Context(), userID, keyID); err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "key not found",
			})
			return
		}
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("failed to revoke api key")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to revoke api key",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// HandleList returns the caller's keys without any secret material
func (kh *KeyHandler) HandleList(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	keys, err := kh.keyService.List(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("failed to list api keys")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to list api keys",
		})
		return
	}

	out := make([]keyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toKeyResponse(k))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"keys":    out,
	})
}
