package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zapflow/zapflow-api/src/models"
	"github.com/zapflow/zapflow-api/src/repositories/mock"
)

func instanceRouter(instances *mock.InstanceStore, gateway *fakeGateway, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewInstanceHandler(instances, gateway)
	router := gin.New()

	group := router.Group("/api", withUserID(userID))
	group.POST("/instances", handler.HandleCreate)
	group.GET("/instances", handler.HandleList)
	return router
}

func TestHandleCreateInstance_Success(t *testing.T) {
	instances := mock.NewInstanceStore()
	gateway := newFakeGateway()
	userID := uuid.New()

	router := instanceRouter(instances, gateway, userID.String())
	w := postJSON(router, "/api/instances", `{"name":"support-line"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	// Provisioned on the gateway first, then recorded locally
	require.Len(t, gateway.Calls["CreateInstance"], 1)
	assert.Equal(t, "support-line", gateway.Calls["CreateInstance"][0])

	require.Len(t, instances.Calls["Create"], 1)
	inst := instances.Calls["Create"][0].(*models.Instance)
	assert.Equal(t, "support-line", inst.ID)
	assert.Equal(t, userID, inst.UserID)
	assert.Equal(t, models.InstanceStatusCreated, inst.Status)
}

func TestHandleCreateInstance_MissingName(t *testing.T) {
	instances := mock.NewInstanceStore()
	gateway := newFakeGateway()

	router := instanceRouter(instances, gateway, uuid.New().String())
	w := postJSON(router, "/api/instances", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, gateway.Calls["CreateInstance"])
}

func TestHandleCreateInstance_GatewayFailure(t *testing.T) {
	instances := mock.NewInstanceStore()
	gateway := newFakeGateway()
	gateway.CreateInstanceFunc = func(ctx context.Context, instanceName string) error {
		return fmt.Errorf("evolution api error (status 403): name already in use")
	}

	router := instanceRouter(instances, gateway, uuid.New().String())
	w := postJSON(router, "/api/instances", `{"name":"support-line"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Nothing is recorded when provisioning fails
	assert.Empty(t, instances.Calls["Create"])
}

func TestHandleCreateInstance_NoUser(t *testing.T) {
	router := instanceRouter(mock.NewInstanceStore(), newFakeGateway(), "")
	w := postJSON(router, "/api/instances", `{"name":"support-line"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleListInstances(t *testing.T) {
	userID := uuid.New()

	instances := mock.NewInstanceStore()
	instances.ListByUserFunc = func(ctx context.Context, uid uuid.UUID) ([]models.Instance, error) {
		return []models.Instance{
			{ID: "support-line", UserID: userID, Name: "support-line", Status: models.InstanceStatusConnected, CreatedAt: time.Now()},
			{ID: "sales-line", UserID: userID, Name: "sales-line", Status: models.InstanceStatusCreated, CreatedAt: time.Now().Add(-time.Hour)},
		}, nil
	}

	router := instanceRouter(instances, newFakeGateway(), userID.String())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/instances", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Instances []models.Instance `json:"instances"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.Len(t, body.Instances, 2)
	assert.Equal(t, "support-line", body.Instances[0].ID)
	assert.Equal(t, models.InstanceStatusConnected, body.Instances[0].Status)
}
