package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// WebhookSignatureMiddleware validates HMAC-SHA256 signatures on gateway
// webhook callbacks. With verification disabled it warns once per request
// and lets the callback through.
func WebhookSignatureMiddleware(secret string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			log.Warn().Str("request_id", GetRequestID(c)).Msg("webhook signature verification is disabled")
			c.Next()
			return
		}

		signature := c.GetHeader("X-Webhook-Signature")
		if signature == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing X-Webhook-Signature header",
			})
			c.Abort()
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "failed to read request body",
			})
			c.Abort()
			return
		}

		if !verifySignature(body, signature, secret) {
			log.Warn().Str("request_id", GetRequestID(c)).Msg("webhook signature mismatch")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid webhook signature",
			})
			c.Abort()
			return
		}

		// Restore body for the handler
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// verifySignature compares sha256=<hex> against a fresh HMAC of the body
func verifySignature(body []byte, signature, secret string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
