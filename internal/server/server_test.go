package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vincentbai/journeytrace/internal/config"
	"github.com/vincentbai/journeytrace/internal/database"
	"github.com/vincentbai/journeytrace/internal/metrics"
	"github.com/vincentbai/journeytrace/internal/models"
)

const testToken = "<token>"

func setupTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	// Create temporary database
	tmpDir, err := os.MkdirTemp("", "journeytrace-server-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cfg := &config.Collector{
		Server: config.Server{
			ListenAddress:   "127.0.0.1:0", // Port 0 for testing
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: time.Second,
		},
		Auth: config.Auth{APIKeys: []string{testToken}},
	}
	server := NewServer(db, cfg, metrics.New())

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}

	return server, cleanup
}

func journeyBatch() models.Batch {
	return models.Batch{
		Name: "ApiJourney",
		Parameters: models.Parameters{
			UUID:      "a2f0c1d4-2b8e-4a53-9d1e-6c7b8a9f0e12",
			Timestamp: 1700000000.5,
			Journey: []*models.Event{
				models.NewEvent(models.KeyCategory, "Page View", models.KeyAction, "Home", models.KeyTimestamp, 1700000000.0),
			},
		},
	}
}

func post(t *testing.T, handler http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonData))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestNewServer(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if server.db == nil {
		t.Fatal("Expected non-nil database")
	}
	if server.config.Server.ListenAddress != "127.0.0.1:0" {
		t.Errorf("Expected address 127.0.0.1:0, got %s", server.config.Server.ListenAddress)
	}
}

func TestHandleHealthz(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	server.handleHealthz(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body := w.Body.String()
	if body != "ok" {
		t.Errorf("Expected body 'ok', got %s", body)
	}
}

func TestHandleJourneySuccess(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	w := post(t, server.Handler(), "/journey", journeyBatch(), testToken)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["stored"] != float64(1) {
		t.Errorf("Expected 1 stored event, got %v", body["stored"])
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("Expected a request id header")
	}
}

func TestHandleJourneyUnauthorized(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, server.Handler(), "/journey", journeyBatch(), tt.token)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("Expected JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestHandleJourneyAnyTokenWithoutConfiguredKeys(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()
	server.config.Auth.APIKeys = nil

	if w := post(t, server.Handler(), "/journey", journeyBatch(), "anything"); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := post(t, server.Handler(), "/journey", journeyBatch(), ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a token, got %d", w.Code)
	}
}

func TestHandleCollectMethodNotAllowed(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/journey", nil)
	w := httptest.NewRecorder()

	server.handleCollect("journey", server.db.InsertJourney)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", resp.StatusCode)
	}
}

func TestHandleCollectInvalidJSON(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	invalidJSON := []byte(`{"parameters": [invalid json]}`)
	req := httptest.NewRequest(http.MethodPost, "/journey", bytes.NewReader(invalidJSON))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	server.handleCollect("journey", server.db.InsertJourney)(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}

func TestHandleJourneyInvalidEvent(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	batch := journeyBatch()
	// Invalid: no category, funnel or outcome
	batch.Parameters.Journey = append(batch.Parameters.Journey, models.NewEvent(models.KeyAction, "x", models.KeyTimestamp, 1.0))

	w := post(t, server.Handler(), "/journey", batch, testToken)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid event") {
		t.Errorf("Expected validation message, got %s", w.Body.String())
	}
}

func TestHandleHeartbeatAndSession(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	batch := journeyBatch()
	batch.Name = "ApiHeartbeat"
	batch.Parameters.Platform = &models.Platform{SoftwareVersion: "5.1.5"}
	batch.Parameters.Tags = []string{"aTag"}

	if w := post(t, server.Handler(), "/heartbeat", batch, testToken); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	person := models.Batch{
		Name: "ApiDeanonymize",
		Parameters: models.Parameters{
			UUID:      batch.Parameters.UUID,
			Timestamp: 1700000001,
			Person:    models.Person{"name": "Test User"},
		},
	}
	if w := post(t, server.Handler(), "/deanonymize", person, testToken); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+batch.Parameters.UUID, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var session database.Session
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if len(session.Journey) != 1 || session.Person["name"] != "Test User" {
		t.Errorf("Unexpected session %+v", session)
	}
	if session.Platform == nil || session.Platform.SoftwareVersion != "5.1.5" {
		t.Errorf("Expected heartbeat platform, got %+v", session.Platform)
	}
}

func TestHandleDeanonymizeWithoutPerson(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	batch := journeyBatch()
	batch.Parameters.Journey = nil
	if w := post(t, server.Handler(), "/deanonymize", batch, testToken); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestHandleSessionNotFound(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestSetupRoutes(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	mux := server.setupRoutes()
	if mux == nil {
		t.Fatal("Expected non-nil ServeMux")
	}

	// Test that routes are registered
	tests := []struct {
		path   string
		method string
		status int
	}{
		{"/healthz", http.MethodGet, http.StatusOK},
		{"/metrics", http.MethodGet, http.StatusOK},
		{"/journey", http.MethodGet, http.StatusMethodNotAllowed}, // Only POST allowed
		{"/heartbeat", http.MethodGet, http.StatusMethodNotAllowed},
		{"/deanonymize", http.MethodGet, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+testToken)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("Expected status %d for %s %s, got %d", tt.status, tt.method, tt.path, w.Code)
			}
		})
	}
}

func TestMetricsCountRequests(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	handler := server.Handler()
	post(t, handler, "/journey", journeyBatch(), testToken)
	post(t, handler, "/journey", journeyBatch(), "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	body, _ := io.ReadAll(w.Result().Body)
	for _, want := range []string{
		`journeytrace_collector_requests_total{code="200",endpoint="journey"} 1`,
		`journeytrace_collector_requests_total{code="401",endpoint="journey"} 1`,
		`journeytrace_collector_events_received_total{endpoint="journey"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}
