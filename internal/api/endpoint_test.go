package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vincentbai/journeytrace/internal/models"
)

func testPayload() Payload {
	return Payload{
		ID:        "a2f0c1d4-2b8e-4a53-9d1e-6c7b8a9f0e12",
		Token:     "<token>",
		Timestamp: 1700000000.5,
		Journey: []*models.Event{
			models.NewEvent(models.KeyCategory, "Page View", models.KeyAction, "test"),
		},
	}
}

func bodyJSON(t *testing.T, body any) string {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	return string(data)
}

func TestJourneyBuild(t *testing.T) {
	req, err := Journey.Build("https://app.xenonview.com", testPayload())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if req.URL != "https://app.xenonview.com/journey" {
		t.Errorf("Unexpected URL %s", req.URL)
	}
	if req.Method != "POST" {
		t.Errorf("Expected POST, got %s", req.Method)
	}
	if req.Headers["content-type"] != "application/json" {
		t.Errorf("Expected JSON content type, got %v", req.Headers)
	}
	if req.Headers["authorization"] != "Bearer <token>" {
		t.Errorf("Expected bearer authorization, got %v", req.Headers)
	}

	want := `{"name":"ApiJourney","parameters":{"uuid":"a2f0c1d4-2b8e-4a53-9d1e-6c7b8a9f0e12",` +
		`"timestamp":1700000000.5,"journey":[{"category":"Page View","action":"test"}]}}`
	if got := bodyJSON(t, req.Body); got != want {
		t.Errorf("Body mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestHeartbeatBuildIncludesContext(t *testing.T) {
	p := testPayload()
	p.Platform = models.Platform{
		SoftwareVersion:        "5.1.5",
		DeviceModel:            "Pixel 4 XL",
		OperatingSystemName:    "Android",
		OperatingSystemVersion: "12.0",
	}
	p.Tags = []string{"aTag"}

	req, err := Heartbeat.Build("https://app.xenonview.com", p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if req.URL != "https://app.xenonview.com/heartbeat" {
		t.Errorf("Unexpected URL %s", req.URL)
	}

	want := `{"name":"ApiHeartbeat","parameters":{"uuid":"a2f0c1d4-2b8e-4a53-9d1e-6c7b8a9f0e12",` +
		`"timestamp":1700000000.5,"journey":[{"category":"Page View","action":"test"}],` +
		`"platform":{"softwareVersion":"5.1.5","deviceModel":"Pixel 4 XL","operatingSystemName":"Android","operatingSystemVersion":"12.0"},` +
		`"tags":["aTag"]}}`
	if got := bodyJSON(t, req.Body); got != want {
		t.Errorf("Body mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestHeartbeatBuildOmitsEmptyContext(t *testing.T) {
	req, err := Heartbeat.Build("https://app.xenonview.com", testPayload())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got := bodyJSON(t, req.Body)
	var decoded struct {
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if _, ok := decoded.Parameters["platform"]; ok {
		t.Error("Expected no platform key")
	}
	if _, ok := decoded.Parameters["tags"]; ok {
		t.Error("Expected no tags key")
	}
}

func TestDeanonymizeBuild(t *testing.T) {
	p := testPayload()
	p.Journey = nil
	p.Person = models.Person{"name": "Test User", "email": "test@example.com"}

	req, err := Deanonymize.Build("https://app.xenonview.com", p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if req.URL != "https://app.xenonview.com/deanonymize" {
		t.Errorf("Unexpected URL %s", req.URL)
	}

	want := `{"name":"ApiDeanonymize","parameters":{"uuid":"a2f0c1d4-2b8e-4a53-9d1e-6c7b8a9f0e12",` +
		`"timestamp":1700000000.5,"person":{"email":"test@example.com","name":"Test User"}}}`
	if got := bodyJSON(t, req.Body); got != want {
		t.Errorf("Body mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestBuildShapeErrors(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		mutate   func(*Payload)
	}{
		{"journey without id", Journey, func(p *Payload) { p.ID = "" }},
		{"heartbeat without id", Heartbeat, func(p *Payload) { p.ID = "" }},
		{"deanonymize without person", Deanonymize, func(p *Payload) { p.Person = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPayload()
			tt.mutate(&p)

			_, err := tt.endpoint.Build("https://app.xenonview.com", p)
			if !errors.Is(err, ErrBodyShaping) {
				t.Fatalf("Expected ErrBodyShaping, got %v", err)
			}
			var shapeErr *ShapeError
			if !errors.As(err, &shapeErr) || shapeErr.Endpoint != tt.endpoint.Name {
				t.Errorf("Expected ShapeError for %s, got %#v", tt.endpoint.Name, err)
			}
		})
	}
}

func TestBuildMissingCredential(t *testing.T) {
	p := testPayload()
	p.Token = ""
	p.ID = ""

	_, err := Journey.Build("https://app.xenonview.com", p)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Expected ErrMissingCredential before shaping, got %v", err)
	}
}

func TestBuildEndpointHeadersMergeWithDefault(t *testing.T) {
	e := Endpoint{
		Name:          "Custom",
		Path:          "custom",
		Headers:       map[string]string{"x-extra": "1"},
		Authenticated: true,
		Shape:         shapeJourney,
	}

	req, err := e.Build("http://localhost:8123", testPayload())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := map[string]string{
		"content-type":  "application/json",
		"x-extra":       "1",
		"authorization": "Bearer <token>",
	}
	if len(req.Headers) != len(want) {
		t.Errorf("Expected headers %v, got %v", want, req.Headers)
	}
	for k, v := range want {
		if req.Headers[k] != v {
			t.Errorf("Expected header %s=%q, got %q", k, v, req.Headers[k])
		}
	}
	if len(e.Headers) != 1 {
		t.Error("Expected endpoint headers to stay untouched")
	}
}

func TestBuildEndpointHeaderOverridesDefaultKey(t *testing.T) {
	e := Endpoint{
		Name:    "Custom",
		Path:    "custom",
		Headers: map[string]string{"content-type": "application/vnd.journey+json"},
		Shape:   shapeJourney,
	}

	req, err := e.Build("http://localhost:8123", testPayload())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if req.Headers["content-type"] != "application/vnd.journey+json" {
		t.Errorf("Expected endpoint content-type, got %v", req.Headers)
	}
	if _, ok := req.Headers["authorization"]; ok {
		t.Error("Expected no authorization on an unauthenticated endpoint")
	}
}

func TestDeanonymizeBuildEmptyPerson(t *testing.T) {
	p := testPayload()
	p.Journey = nil
	p.Person = models.Person{}

	req, err := Deanonymize.Build("https://app.xenonview.com", p)
	if err != nil {
		t.Fatalf("Expected empty person to be accepted, got %v", err)
	}

	want := `{"name":"ApiDeanonymize","parameters":{"uuid":"a2f0c1d4-2b8e-4a53-9d1e-6c7b8a9f0e12",` +
		`"timestamp":1700000000.5,"person":{}}}`
	if got := bodyJSON(t, req.Body); got != want {
		t.Errorf("Body mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestBuildSkipNameWithEmptyPayload(t *testing.T) {
	e := Endpoint{Name: "Ping", Path: "ping", SkipName: true, Shape: shapeJourney}

	req, err := e.Build("http://localhost:8123", Payload{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if req.Body != nil {
		t.Errorf("Expected no body, got %v", req.Body)
	}

	req, err = e.Build("http://localhost:8123", testPayload())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got := bodyJSON(t, req.Body)
	var decoded map[string]any
	json.Unmarshal([]byte(got), &decoded)
	if _, ok := decoded["name"]; ok {
		t.Errorf("Expected name to be skipped, got %s", got)
	}
}

func TestBuildCopiesCertificateFlag(t *testing.T) {
	p := testPayload()
	p.IgnoreCertificateErrors = true

	req, err := Journey.Build("https://localhost:8443/", p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !req.IgnoreCertificateErrors {
		t.Error("Expected IgnoreCertificateErrors to be carried")
	}
	if req.URL != "https://localhost:8443/journey" {
		t.Errorf("Unexpected URL %s", req.URL)
	}
}
