package vapi_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/bridgeline/bridgeline/internal/config"
	"github.com/bridgeline/bridgeline/internal/vapi"
)

func newMockDispatcher() vapi.Dispatcher {
	cfg := config.VapiConfig{
		BaseURL: "https://api.vapi.ai",
		Timeout: 5 * time.Second,
	}
	return vapi.NewDispatcher(cfg, slog.Default())
}

func TestMockPlaceCall(t *testing.T) {
	t.Parallel()

	d := newMockDispatcher()
	if !d.Mock() {
		t.Fatal("dispatcher without API key should be in mock mode")
	}

	call, err := d.PlaceCall(context.Background(), "+14155550100", "Checking in, are you safe?")
	if err != nil {
		t.Fatalf("PlaceCall() error = %v", err)
	}
	if call.CallID != "mock-call-id" {
		t.Errorf("CallID = %q, want %q", call.CallID, "mock-call-id")
	}
	if call.Status != "initiated" {
		t.Errorf("Status = %q, want %q", call.Status, "initiated")
	}
}

func TestMockGetCall(t *testing.T) {
	t.Parallel()

	d := newMockDispatcher()

	call, err := d.GetCall(context.Background(), "mock-call-id")
	if err != nil {
		t.Fatalf("GetCall() error = %v", err)
	}
	if call.CallID != "mock-call-id" {
		t.Errorf("CallID = %q, want %q", call.CallID, "mock-call-id")
	}
	if call.Status != "completed" {
		t.Errorf("Status = %q, want %q", call.Status, "completed")
	}
}
