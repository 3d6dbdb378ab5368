package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zapflow/zapflow-api/src/middleware"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories"
	"github.com/zapflow/zapflow-api/src/services"
)

// InstanceHandler handles WhatsApp instance provisioning and listing
type InstanceHandler struct {
	instances repositories.InstanceStore
	gateway   services.WhatsAppGateway
}

// NewInstanceHandler creates a new instance handler
func NewInstanceHandler(instances repositories.InstanceStore, gateway services.WhatsAppGateway) *InstanceHandler {
	return &InstanceHandler{instances: instances, gateway: gateway}
}

// createInstanceRequest is the management payload for provisioning
type createInstanceRequest struct {
	Name string `json:"name" binding:"required"`
}

// HandleCreate provisions a WhatsApp instance on the gateway and records it.
// The gateway identifies instances by name, so the name doubles as the id.
func (ih *InstanceHandler) HandleCreate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "name is required",
		})
		return
	}

	if err := ih.gateway.CreateInstance(c.Request.Context(), req.Name); err != nil {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("instance_name", req.Name).
			Msg("gateway instance provisioning failed")

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to provision instance",
		})
		return
	}

	inst := &models.Instance{
		ID:        req.Name,
		UserID:    userID,
		Name:      req.Name,
		Status:    models.InstanceStatusCreated,
		CreatedAt: time.Now(),
	}
	if err := ih.instances.Create(c.Request.Context(), inst); err != nil {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("instance_id", inst.ID).
			Msg("failed to record provisioned instance")

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to record instance",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"instance": inst,
	})
}

// HandleList returns the caller's instances
func (ih *InstanceHandler) HandleList(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	instances, err := ih.instances.ListByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("failed to list instances")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to list instances",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"instances": instances,
	})
}
