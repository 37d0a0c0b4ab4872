// Package testutil provides common test utilities and helpers for Leafwise tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/izybotanic/leafwise/internal/api"
	"github.com/izybotanic/leafwise/internal/auth"
	"github.com/izybotanic/leafwise/internal/models"
	"github.com/izybotanic/leafwise/internal/store"
)

// MockAI is a canned-response AI collaborator for tests.
type MockAI struct {
	Analysis   models.PlantDiagnosis
	Reanalysis models.ReanalysisResult
	Recs       []models.PlantRecommendation
	ChatReply  string
	Err        error
}

func (m *MockAI) AnalyzePlant(ctx context.Context, base64Image string) (models.PlantDiagnosis, error) {
	return m.Analysis, m.Err
}

func (m *MockAI) ReanalyzePlant(ctx context.Context, base64Image, userSuggestion string) (models.ReanalysisResult, error) {
	return m.Reanalysis, m.Err
}

func (m *MockAI) Recommend(ctx context.Context, speciesNames []string) ([]models.PlantRecommendation, error) {
	return m.Recs, m.Err
}

func (m *MockAI) ExpertChat(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	return m.ChatReply, m.Err
}

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer(t *testing.T, ai *MockAI) *api.Server {
	t.Helper()
	if ai == nil {
		ai = &MockAI{ChatReply: "ok"}
	}
	st := store.NewInMemoryStore()
	authService, err := auth.NewService(st, auth.WithSecret([]byte("test-secret")))
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}
	srv, err := api.NewServer(
		api.WithStore(st),
		api.WithAuthService(authService),
		api.WithGenAI(ai),
	)
	if err != nil {
		t.Fatalf("failed to create test server: %v", err)
	}
	return srv
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
