package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bridgeline/bridgeline/internal/apperr"
	"github.com/bridgeline/bridgeline/internal/config"
	"github.com/bridgeline/bridgeline/internal/database"
	"github.com/bridgeline/bridgeline/internal/engine"
	"github.com/bridgeline/bridgeline/internal/memory"
	"github.com/bridgeline/bridgeline/internal/vapi"
)

// fakeStore embeds the Store interface and overrides only what the
// routed handlers under test touch; anything else panics loudly.
type fakeStore struct {
	database.Store

	requests  map[string]*database.HelpRequest
	resources []database.Resource
	memories  map[string]*database.UserMemory
}

func newServerFakeStore() *fakeStore {
	return &fakeStore{
		requests: map[string]*database.HelpRequest{},
		memories: map[string]*database.UserMemory{},
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) InsertRequest(_ context.Context, req *database.HelpRequest, _ *database.SafetyScoreRecord, _ *database.NeedHeatmapEntry) error {
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeStore) GetRequest(_ context.Context, id string) (*database.HelpRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, apperr.NewNotFoundf("request %s not found", id)
	}
	cp := *req
	return &cp, nil
}

func (f *fakeStore) ListRequests(context.Context) ([]database.HelpRequest, error) {
	var out []database.HelpRequest
	for _, req := range f.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (f *fakeStore) ListResources(context.Context) ([]database.Resource, error) {
	return f.resources, nil
}

func (f *fakeStore) GetUserMemory(_ context.Context, identity string) (*database.UserMemory, error) {
	mem, ok := f.memories[identity]
	if !ok {
		return nil, apperr.NewNotFoundf("no memory for identity %s", identity)
	}
	cp := *mem
	return &cp, nil
}

func (f *fakeStore) SaveUserMemory(_ context.Context, mem *database.UserMemory) error {
	cp := *mem
	f.memories[mem.Identity] = &cp
	return nil
}

type fakeAI struct{}

func (fakeAI) ClassifyTone(context.Context, string) database.Tone { return database.ToneAnxious }
func (fakeAI) GenerateResponse(context.Context, string, database.Tone, map[string]string) string {
	return "We hear you and help is on the way."
}
func (fakeAI) LegalGuidance(context.Context, string) string     { return "Contact legal aid." }
func (fakeAI) ExtractMemory(context.Context, []string) []string { return []string{"Needs assistance"} }
func (fakeAI) Configured() bool                                 { return false }

type fakeWeather struct{}

func (fakeWeather) Condition(context.Context, float64, float64) string { return "" }

func newTestService(store *fakeStore) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8000, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
		Engine: config.EngineConfig{SuggestLimit: 3, FollowUpDelayHours: 24},
	}
	memories := memory.NewService(store, log)
	eng := engine.New(store, fakeAI{}, fakeWeather{}, memories, cfg.Engine, log)
	dispatcher := vapi.NewDispatcher(config.VapiConfig{BaseURL: "https://api.vapi.ai", Timeout: time.Second}, log)
	return New(cfg, log, store, eng, fakeAI{}, dispatcher, memories)
}

func doRequest(t *testing.T, s *Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestCreateRequest(t *testing.T) {
	store := newServerFakeStore()
	s := newTestService(store)

	rec := doRequest(t, s, http.MethodPost, "/api/requests",
		`{"category":"food","description":"Need dinner","location":{"lat":37.77,"lng":-122.41}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Request database.HelpRequest `json:"request"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Request.ID == "" {
		t.Error("request id should be set")
	}
	if result.Request.Status != database.StatusOpen {
		t.Errorf("status = %q, want open", result.Request.Status)
	}
	if result.Request.Tone != database.ToneAnxious {
		t.Errorf("tone = %q, want the classifier result", result.Request.Tone)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodPost, "/api/requests", `{"description":"no category"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error.Code != apperr.CodeInvalidInput {
		t.Errorf("error code = %q, want %q", body.Error.Code, apperr.CodeInvalidInput)
	}
}

func TestGetUnknownRequest(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodGet, "/api/requests/req-missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Error.Code != apperr.CodeNotFound {
		t.Errorf("error code = %q, want %q", body.Error.Code, apperr.CodeNotFound)
	}
}

func TestSearchResources(t *testing.T) {
	store := newServerFakeStore()
	store.resources = []database.Resource{
		{ID: "res-1", Type: "food", Name: "Pantry", Location: database.Location{Lat: 37.775, Lng: -122.419}},
		{ID: "res-2", Type: "shelter", Name: "Shelter", Location: database.Location{Lat: 37.78, Lng: -122.41}},
	}
	s := newTestService(store)

	rec := doRequest(t, s, http.MethodGet, "/api/resources/search?lat=37.7749&lng=-122.4194&type=food", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Count int `json:"count"`
		Resources []struct {
			ID       string  `json:"id"`
			Distance float64 `json:"distance"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Count != 1 || body.Resources[0].ID != "res-1" {
		t.Errorf("body = %+v, want exactly res-1", body)
	}
}

func TestSearchResourcesMissingCoords(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodGet, "/api/resources/search?type=food", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeTone(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodPost, "/api/ai/analyze-tone", `{"text":"I am worried"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["tone"] != string(database.ToneAnxious) {
		t.Errorf("tone = %q, want %q", body["tone"], database.ToneAnxious)
	}
}

func TestInitiateCallMock(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodPost, "/api/call/initiate", `{"phoneNumber":"+14155550100"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var call vapi.Call
	if err := json.Unmarshal(rec.Body.Bytes(), &call); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if call.CallID != "mock-call-id" || call.Status != "initiated" {
		t.Errorf("call = %+v, want mock initiated call", call)
	}
}

func TestMemoryMergeAndLookup(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodPost, "/api/memory/maria/merge",
		`{"preferences":{"diet":"vegetarian"},"medicalNeeds":["insulin"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("merge status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/memory/maria", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d, want 200", rec.Code)
	}

	var mem database.UserMemory
	if err := json.Unmarshal(rec.Body.Bytes(), &mem); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if mem.Preferences["diet"] != "vegetarian" {
		t.Errorf("preferences = %v, want diet=vegetarian", mem.Preferences)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/memory/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown lookup status = %d, want 404", rec.Code)
	}
}

func TestSendNotificationMock(t *testing.T) {
	s := newTestService(newServerFakeStore())

	rec := doRequest(t, s, http.MethodPost, "/api/notifications/send", `{"to":"ops@example.org"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["sent"] != true || body["mock"] != true {
		t.Errorf("body = %v, want sent and mock true", body)
	}
}
