package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppGateway is the collaborator interface for the Evolution API.
// Transport failures surface to the caller as errors without retry.
type WhatsAppGateway interface {
	// SendTextMessage delivers a text message through a WhatsApp instance
	// and returns the gateway-assigned message id
	SendTextMessage(ctx context.Context, instanceID, number, text string) (string, error)

	// CreateInstance provisions a new WhatsApp instance on the gateway
	CreateInstance(ctx context.Context, instanceName string) error
}

// EvolutionGateway talks to a self-hosted Evolution API deployment
type EvolutionGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewEvolutionGateway creates a gateway client for the given deployment
func NewEvolutionGateway(baseURL, apiKey string) *EvolutionGateway {
	return &EvolutionGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// sendTextRequest is the Evolution sendText payload
type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// sendTextResponse carries the message key assigned by the gateway
type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

// SendTextMessage posts a text message to /message/sendText/{instance}
func (g *EvolutionGateway) SendTextMessage(ctx context.Context, instanceID, number, text string) (string, error) {
	body, err := json.Marshal(sendTextRequest{Number: number, Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/message/sendText/%s", g.baseURL, instanceID),
		bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create send request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send message request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("evolution api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result sendTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode send response: %w", err)
	}

	return result.Key.ID, nil
}

// createInstanceRequest is the Evolution instance creation payload
type createInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	Integration  string `json:"integration"`
}

// CreateInstance posts to /instance/create
func (g *EvolutionGateway) CreateInstance(ctx context.Context, instanceName string) error {
	body, err := json.Marshal(createInstanceRequest{
		InstanceName: instanceName,
		Integration:  "WHATSAPP-BAILEYS",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal instance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/instance/create", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create instance request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send instance request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("evolution api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Ensure EvolutionGateway implements the interface
var _ WhatsAppGateway = (*EvolutionGateway)(nil)
