package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/zapflow/zapflow-api/src/services"
)

// fakeGateway is a test double for services.WhatsAppGateway
type fakeGateway struct {
	SendTextMessageFunc func(ctx context.Context, instanceID, number, text string) (string, error)
	CreateInstanceFunc  func(ctx context.Context, instanceName string) error

	// Call tracking
	Calls map[string][]interface{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		Calls: make(map[string][]interface{}),
	}
}

func (f *fakeGateway) SendTextMessage(ctx context.Context, instanceID, number, text string) (string, error) {
	f.Calls["SendTextMessage"] = append(f.Calls["SendTextMessage"], []interface{}{instanceID, number, text})
	if f.SendTextMessageFunc != nil {
		return f.SendTextMessageFunc(ctx, instanceID, number, text)
	}
	return "MSG-TEST-ID", nil
}

func (f *fakeGateway) CreateInstance(ctx context.Context, instanceName string) error {
	f.Calls["CreateInstance"] = append(f.Calls["CreateInstance"], instanceName)
	if f.CreateInstanceFunc != nil {
		return f.CreateInstanceFunc(ctx, instanceName)
	}
	return nil
}

var _ services.WhatsAppGateway = (*fakeGateway)(nil)

// withUserID simulates the session middleware for management-route tests
func withUserID(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
