package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/zapflow/zapflow-api/src/middleware"
	"github.com/zapflow/zapflow-api/src/services"
)

// MessageHandler handles external message sending requests
type MessageHandler struct {
	gateway services.WhatsAppGateway
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(gateway services.WhatsAppGateway) *MessageHandler {
	return &MessageHandler{gateway: gateway}
}

// sendMessageRequest is the external send payload
type sendMessageRequest struct {
	InstanceID string `json:"instance_id" binding:"required"`
	Number     string `json:"number" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

// HandleSend delivers a text message through the caller's WhatsApp instance.
// Authentication and rate limiting already happened in middleware; this
// handler only checks instance scope and talks to the gateway.
func (mh *MessageHandler) HandleSend(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "instance_id, number and text are required",
		})
		return
	}

	auth := middleware.GetAuthResult(c)
	if auth == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal error",
		})
		return
	}

	if !auth.AllowsInstance(req.InstanceID) {
		log.Warn().
			Str("request_id", middleware.GetRequestID(c)).
			Str("api_key_id", auth.APIKeyID.String()).
			Str("instance_id", req.InstanceID).
			Msg("message rejected: instance out of key scope")

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "instance not allowed for this API key",
		})
		return
	}

	messageID, err := mh.gateway.SendTextMessage(c.Request.Context(), req.InstanceID, req.Number, req.Text)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("instance_id", req.InstanceID).
			Msg("gateway send failed")

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to send message",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message_id": messageID,
	})
}
