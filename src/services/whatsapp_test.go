package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTextMessage_Success(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody sendTextRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"key":{"id":"BAE5F5A632EAE722"},"status":"PENDING"}`))
	}))
	defer server.Close()

	gw := NewEvolutionGateway(server.URL, "gw-secret")
	messageID, err := gw.SendTextMessage(context.Background(), "abc123", "5511999999999", "hello")
	require.NoError(t, err)

	assert.Equal(t, "BAE5F5A632EAE722", messageID)
	assert.Equal(t, "/message/sendText/abc123", gotPath)
	assert.Equal(t, "gw-secret", gotAPIKey)
	assert.Equal(t, "5511999999999", gotBody.Number)
	assert.Equal(t, "hello", gotBody.Text)
}

func TestSendTextMessage_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"instance not connected"}`))
	}))
	defer server.Close()

	gw := NewEvolutionGateway(server.URL, "gw-secret")
	_, err := gw.SendTextMessage(context.Background(), "abc123", "5511999999999", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSendTextMessage_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	gw := NewEvolutionGateway(server.URL, "gw-secret")
	_, err := gw.SendTextMessage(context.Background(), "abc123", "5511999999999", "hello")
	assert.Error(t, err)
}

func TestCreateInstance_Success(t *testing.T) {
	var gotPath string
	var gotBody createInstanceRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"instance":{"instanceName":"support-line"}}`))
	}))
	defer server.Close()

	gw := NewEvolutionGateway(server.URL, "gw-secret")
	err := gw.CreateInstance(context.Background(), "support-line")
	require.NoError(t, err)

	assert.Equal(t, "/instance/create", gotPath)
	assert.Equal(t, "support-line", gotBody.InstanceName)
	assert.Equal(t, "WHATSAPP-BAILEYS", gotBody.Integration)
}

func TestCreateInstance_Conflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"name already in use"}`))
	}))
	defer server.Close()

	gw := NewEvolutionGateway(server.URL, "gw-secret")
	err := gw.CreateInstance(context.Background(), "support-line")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
