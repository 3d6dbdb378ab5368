package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zapflow/zapflow-api/src/middleware"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories"
)

// WebhookHandler receives Evolution API callbacks and keeps instance
// connection state in sync
type WebhookHandler struct {
	instances repositories.InstanceStore
}

// NewWebhookHandler creates a new gateway webhook handler
func NewWebhookHandler(instances repositories.InstanceStore) *WebhookHandler {
	return &WebhookHandler{instances: instances}
}

// evolutionEvent is the subset of the Evolution callback payload we act on
type evolutionEvent struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		State string `json:"state"`
	} `json:"data"`
}

// HandleEvolutionEvent processes a gateway callback. Only connection.update
// changes state here; every other event type is acknowledged and dropped so
// the gateway does not retry.
func (wh *WebhookHandler) HandleEvolutionEvent(c *gin.Context) {
	var evt evolutionEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid payload",
		})
		return
	}

	if evt.Event != "connection.update" || evt.Instance == "" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	var status models.InstanceStatus
	switch evt.Data.State {
	case "open":
		status = models.InstanceStatusConnected
	case "close":
		status = models.InstanceStatusDisconnected
	default:
		// Transitional states like "connecting" are not persisted
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	if err := wh.instances.UpdateStatus(c.Request.Context(), evt.Instance, status); err != nil {
		// The gateway may report instances this service never provisioned
		if errors.Is(err, repositories.ErrNotFound) {
			log.Warn().
				Str("request_id", middleware.GetRequestID(c)).
				Str("instance_id", evt.Instance).
				Msg("connection update for unknown instance")
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}

		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("instance_id", evt.Instance).
			Msg("failed to update instance status")

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to update instance status",
		})
		return
	}

	log.Info().
		Str("request_id", middleware.GetRequestID(c)).
		Str("instance_id", evt.Instance).
		Str("status", string(status)).
		Msg("instance connection state updated")

	c.JSON(http.StatusOK, gin.H{"success": true})
}
