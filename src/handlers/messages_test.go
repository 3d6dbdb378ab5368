package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapflow/zapflow-api/src/middleware"
	"github.com/zapflow/zapflow-api/src/services"
)

func messageRouter(gateway services.WhatsAppGateway, auth *services.AuthResult) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewMessageHandler(gateway)
	router := gin.New()
	router.POST("/external/messages", func(c *gin.Context) {
		if auth != nil {
			c.Set(middleware.AuthResultKey, auth)
		}
		c.Next()
	}, handler.HandleSend)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleSend_Success(t *testing.T) {
	gateway := newFakeGateway()
	gateway.SendTextMessageFunc = func(ctx context.Context, instanceID, number, text string) (string, error) {
		return "BAE5F5A632EAE722", nil
	}

	auth := &services.AuthResult{
		APIKeyID:    uuid.New(),
		UserID:      uuid.New(),
		InstanceIDs: []string{"support-line"},
	}

	router := messageRouter(gateway, auth)
	w := postJSON(router, "/external/messages", `{"instance_id":"support-line","number":"5511999999999","text":"hello"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "BAE5F5A632EAE722", body["message_id"])

	require.Len(t, gateway.Calls["SendTextMessage"], 1)
	args := gateway.Calls["SendTextMessage"][0].([]interface{})
	assert.Equal(t, "support-line", args[0])
	assert.Equal(t, "5511999999999", args[1])
	assert.Equal(t, "hello", args[2])
}

func TestHandleSend_MissingFields(t *testing.T) {
	tests := []string{
		`{}`,
		`{"instance_id":"support-line"}`,
		`{"instance_id":"support-line","number":"5511999999999"}`,
		`{"number":"5511999999999","text":"hello"}`,
	}

	auth := &services.AuthResult{InstanceIDs: []string{"support-line"}}

	for i, body := range tests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			gateway := newFakeGateway()
			router := messageRouter(gateway, auth)
			w := postJSON(router, "/external/messages", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, gateway.Calls["SendTextMessage"])
		})
	}
}

func TestHandleSend_InstanceOutOfScope(t *testing.T) {
	gateway := newFakeGateway()
	auth := &services.AuthResult{
		APIKeyID:    uuid.New(),
		InstanceIDs: []string{"sales-line"},
	}

	router := messageRouter(gateway, auth)
	w := postJSON(router, "/external/messages", `{"instance_id":"support-line","number":"5511999999999","text":"hello"}`)

	require.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])

	// Out-of-scope requests never reach the gateway
	assert.Empty(t, gateway.Calls["SendTextMessage"])
}

func TestHandleSend_LegacyCallerAnyInstance(t *testing.T) {
	gateway := newFakeGateway()
	auth := &services.AuthResult{Legacy: true}

	router := messageRouter(gateway, auth)
	w := postJSON(router, "/external/messages", `{"instance_id":"any-instance","number":"5511999999999","text":"hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gateway.Calls["SendTextMessage"], 1)
}

func TestHandleSend_GatewayFailure(t *testing.T) {
	gateway := newFakeGateway()
	gateway.SendTextMessageFunc = func(ctx context.Context, instanceID, number, text string) (string, error) {
		return "", fmt.Errorf("evolution api error (status 502): instance not connected")
	}

	auth := &services.AuthResult{InstanceIDs: []string{"support-line"}}

	router := messageRouter(gateway, auth)
	w := postJSON(router, "/external/messages", `{"instance_id":"support-line","number":"5511999999999","text":"hello"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed to send message", body["error"])
}

func TestHandleSend_MissingAuthResult(t *testing.T) {
	gateway := newFakeGateway()

	router := messageRouter(gateway, nil)
	w := postJSON(router, "/external/messages", `{"instance_id":"support-line","number":"5511999999999","text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, gateway.Calls["SendTextMessage"])
}
