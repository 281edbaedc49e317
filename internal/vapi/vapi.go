// Package vapi dispatches outbound voice check-in calls through the Vapi
// telephony API. Without an API key the dispatcher runs in mock mode and
// returns canned call records, which keeps local development and tests
// off the phone network.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/config"
)

// Call is the normalized result of a dispatch or status lookup.
type Call struct {
	CallID string `json:"callId"`
	Status string `json:"status"`
}

// Dispatcher places and inspects voice calls.
type Dispatcher interface {
	// PlaceCall starts an outbound call to phoneNumber with the given
	// first message spoken by the assistant.
	PlaceCall(ctx context.Context, phoneNumber, firstMessage string) (Call, error)

	// GetCall returns the current status of a previously placed call.
	GetCall(ctx context.Context, callID string) (Call, error)

	// Mock reports whether the dispatcher is running without credentials.
	Mock() bool
}

type client struct {
	httpClient    *http.Client
	log           *slog.Logger
	apiKey        string
	baseURL       string
	phoneNumberID string
	assistantID   string
}

// NewDispatcher creates a Vapi dispatcher from configuration. An empty
// API key yields a mock dispatcher.
func NewDispatcher(cfg config.VapiConfig, log *slog.Logger) Dispatcher {
	logger := log.With("component", "vapi_dispatcher")

	if cfg.APIKey == "" {
		logger.Warn("Vapi API key not set, running in mock mode")
	}

	return &client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		log:           logger,
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		phoneNumberID: cfg.PhoneNumberID,
		assistantID:   cfg.AssistantID,
	}
}

func (c *client) Mock() bool {
	return c.apiKey == ""
}

func (c *client) PlaceCall(ctx context.Context, phoneNumber, firstMessage string) (Call, error) {
	if c.Mock() {
		c.log.InfoContext(ctx, "Mock voice call placed", "phone_number", phoneNumber)
		return Call{CallID: "mock-call-id", Status: "initiated"}, nil
	}

	payload := map[string]any{
		"assistantId":   c.assistantID,
		"phoneNumberId": c.phoneNumberID,
		"customer": map[string]any{
			"number": phoneNumber,
		},
		"assistantOverrides": map[string]any{
			"firstMessage": firstMessage,
		},
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/call/phone", payload)
	if err != nil {
		return Call{}, err
	}
	return normalizeCall(body)
}

func (c *client) GetCall(ctx context.Context, callID string) (Call, error) {
	if c.Mock() {
		return Call{CallID: callID, Status: "completed"}, nil
	}

	body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/call/"+callID, nil)
	if err != nil {
		return Call{}, err
	}
	return normalizeCall(body)
}

func (c *client) doRequest(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, apperr.NewDispatch("failed to encode call request", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, apperr.NewDispatch("failed to build call request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.NewDispatch("voice call request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.NewDispatch("failed to read call response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WarnContext(ctx, "Vapi returned non-success status",
			"status", resp.StatusCode, "body_preview", previewBody(body))
		return nil, apperr.NewDispatch(
			fmt.Sprintf("voice call API returned status %d", resp.StatusCode), nil)
	}

	return body, nil
}

// normalizeCall maps the provider's response onto Call. Vapi uses "id"
// for the call identifier; we expose it as callId.
func normalizeCall(body []byte) (Call, error) {
	var raw struct {
		ID     string `json:"id"`
		CallID string `json:"callId"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Call{}, apperr.NewDispatch("failed to decode call response", err)
	}

	call := Call{CallID: raw.CallID, Status: raw.Status}
	if call.CallID == "" {
		call.CallID = raw.ID
	}
	if call.CallID == "" {
		return Call{}, apperr.NewDispatch("call response missing call identifier", nil)
	}
	if call.Status == "" {
		call.Status = "unknown"
	}
	return call, nil
}

func previewBody(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
