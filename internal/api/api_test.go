package api_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/izybotanic/leafwise/internal/models"
	"github.com/izybotanic/leafwise/internal/testutil"
)

func sickMonstera() models.PlantDiagnosis {
	return models.PlantDiagnosis{
		SpeciesName:              "Monstera deliciosa",
		PopularName:              "Swiss Cheese Plant",
		IdentificationConfidence: "high",
		IsHealthy:                false,
		Diagnosis:                models.DiagnosisSummary{Title: "Overwatering", Description: "Yellowing leaves."},
		CareSchedule:             models.CareSchedule{WateringFrequency: 7, FertilizingFrequency: 30},
	}
}

// signup registers a fresh account and returns its bearer token.
func signup(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	req := testutil.CreateHTTPRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"email":    email,
		"name":     "Izy",
		"password": "correct horse battery",
	})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "signup")

	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("signup response missing result: %v", resp)
	}
	token, _ := result["token"].(string)
	if token == "" {
		t.Fatal("signup returned no token")
	}
	return token
}

func authedRequest(t *testing.T, method, url, token string, body interface{}) *http.Request {
	t.Helper()
	req := testutil.CreateHTTPRequest(t, method, url, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	rr := do(handler, testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	testutil.AssertJSONResponse(t, rr, "ok")
}

func TestAuthRequired(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()

	rr := do(handler, testutil.CreateHTTPRequest(t, http.MethodGet, "/plants", nil))
	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "no token")

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/plants", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr = do(handler, req)
	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "bad token")
}

func TestSignupValidationAndConflict(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	signup(t, handler, "izy@example.com")

	rr := do(handler, testutil.CreateHTTPRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"email": "izy@example.com", "name": "Izy", "password": "correct horse battery",
	}))
	testutil.AssertHTTPStatus(t, http.StatusConflict, rr.Code, "duplicate signup")

	rr = do(handler, testutil.CreateHTTPRequest(t, http.MethodPost, "/auth/signup", map[string]string{
		"email": "other@example.com", "name": "Izy", "password": "short",
	}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "weak password")
}

func TestLogin(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	signup(t, handler, "izy@example.com")

	rr := do(handler, testutil.CreateHTTPRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "izy@example.com", "password": "correct horse battery",
	}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "login")
	testutil.AssertJSONResponse(t, rr, "ok")

	rr = do(handler, testutil.CreateHTTPRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "izy@example.com", "password": "wrong",
	}))
	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "wrong password")
}

func TestLogout(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")

	rr := do(handler, authedRequest(t, http.MethodPost, "/auth/logout", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "logout")

	// The token stays valid until expiry; state reloads on next use.
	rr = do(handler, authedRequest(t, http.MethodGet, "/plants", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "plants after logout")

	rr = do(handler, testutil.CreateHTTPRequest(t, http.MethodPost, "/auth/logout", nil))
	testutil.AssertHTTPStatus(t, http.StatusUnauthorized, rr.Code, "logout without token")
}

func TestAnalyzeAndAddPlant(t *testing.T) {
	ai := &testutil.MockAI{Analysis: sickMonstera()}
	handler := testutil.NewTestServer(t, ai).Handler()
	token := signup(t, handler, "izy@example.com")

	rr := do(handler, authedRequest(t, http.MethodPost, "/plants/analyze", token, map[string]string{"image": "aGVsbG8="}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "analyze")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	analysis := resp["result"].(map[string]interface{})
	if analysis["species_name"] != "Monstera deliciosa" {
		t.Errorf("unexpected analysis result: %v", analysis)
	}

	rr = do(handler, authedRequest(t, http.MethodPost, "/plants", token, map[string]interface{}{
		"image": "aGVsbG8=", "location": "indoor", "analysis": sickMonstera(),
	}))
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "add plant")

	rr = do(handler, authedRequest(t, http.MethodGet, "/plants", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "list plants")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	plants := resp["result"].([]interface{})
	if len(plants) != 1 {
		t.Fatalf("expected 1 plant, got %d", len(plants))
	}

	// Analysis is mandatory for plant creation.
	rr = do(handler, authedRequest(t, http.MethodPost, "/plants", token, map[string]interface{}{
		"image": "aGVsbG8=", "location": "indoor",
	}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "plant without analysis")
}

// addPlant creates one plant through the API and returns its id.
func addPlant(t *testing.T, handler http.Handler, token string) string {
	t.Helper()
	rr := do(handler, authedRequest(t, http.MethodPost, "/plants", token, map[string]interface{}{
		"image": "aGVsbG8=", "location": "indoor", "analysis": sickMonstera(),
	}))
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "add plant")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	plant := resp["result"].(map[string]interface{})
	id, _ := plant["id"].(string)
	if id == "" {
		t.Fatal("plant creation returned no id")
	}
	return id
}

func TestPlantLifecycle(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")
	id := addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodGet, "/plants/"+id, token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "get plant")

	rr = do(handler, authedRequest(t, http.MethodGet, "/plants/missing", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "get missing plant")

	rr = do(handler, authedRequest(t, http.MethodDelete, "/plants/"+id, token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "delete plant")

	rr = do(handler, authedRequest(t, http.MethodDelete, "/plants/"+id, token, nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "delete twice")
}

func TestHistoryAndCompleteTask(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")
	id := addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/history", id), token, map[string]string{
		"note": "New leaf unfurling.",
	}))
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "add history")

	rr = do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/history", id), token, map[string]string{"note": ""}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty note")

	// Completing a task on the sick plant returns the updated profile.
	rr = do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/complete", id), token, map[string]string{"task": "watering"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "complete watering")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	profile := resp["result"].(map[string]interface{})
	// 50 for the plant, 15 for the note, 10 for the task.
	if points := profile["growth_points"].(float64); points != 75 {
		t.Errorf("expected 75 growth points, got %v", points)
	}

	rr = do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/complete", id), token, map[string]string{"task": "pruning"}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "invalid kind")
}

func TestScheduleAndTasks(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")
	id := addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodPatch, fmt.Sprintf("/plants/%s/schedule", id), token, map[string]int{
		"watering_frequency": 3,
	}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "patch schedule")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	schedule := resp["result"].(map[string]interface{})
	if schedule["watering_frequency"].(float64) != 3 || schedule["fertilizing_frequency"].(float64) != 30 {
		t.Errorf("unexpected merged schedule: %v", schedule)
	}

	rr = do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/tasks", id), token, map[string]interface{}{
		"type": "mist", "frequency_days": 2,
	}))
	testutil.AssertHTTPStatus(t, http.StatusCreated, rr.Code, "add task")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	taskID := resp["result"].(map[string]interface{})["id"].(string)

	rr = do(handler, authedRequest(t, http.MethodPut, fmt.Sprintf("/plants/%s/tasks/%s", id, taskID), token, map[string]interface{}{
		"type": "mist", "frequency_days": 5,
	}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "update task")

	rr = do(handler, authedRequest(t, http.MethodDelete, fmt.Sprintf("/plants/%s/tasks/%s", id, taskID), token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "delete task")

	rr = do(handler, authedRequest(t, http.MethodDelete, fmt.Sprintf("/plants/%s/tasks/%s", id, taskID), token, nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "delete missing task")
}

func TestCarePlanEndpoints(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")
	id := addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodGet, fmt.Sprintf("/plants/%s/plans", id), token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "available plans")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	// The plant is sick, so both templates qualify.
	if plans := resp["result"].([]interface{}); len(plans) != 2 {
		t.Errorf("expected 2 available plans, got %d", len(plans))
	}

	rr = do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/plans", id), token, map[string]string{
		"plan_id": "RECOVERY_PLAN",
	}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "activate plan")

	rr = do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/plans", id), token, map[string]string{
		"plan_id": "RECOVERY_PLAN",
	}))
	testutil.AssertHTTPStatus(t, http.StatusConflict, rr.Code, "double activation")

	rr = do(handler, authedRequest(t, http.MethodGet, fmt.Sprintf("/plants/%s/plans/progress", id), token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "plan progress")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	progress := resp["result"].(map[string]interface{})
	if progress["day_of_plan"].(float64) != 1 {
		t.Errorf("expected day 1, got %v", progress["day_of_plan"])
	}

	rr = do(handler, authedRequest(t, http.MethodDelete, fmt.Sprintf("/plants/%s/plans", id), token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "cancel plan")

	rr = do(handler, authedRequest(t, http.MethodGet, fmt.Sprintf("/plants/%s/plans/progress", id), token, nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "progress without plan")
}

func TestIdentifyEndpoint(t *testing.T) {
	accepted := sickMonstera()
	accepted.SpeciesName = "Philodendron hederaceum"
	ai := &testutil.MockAI{Reanalysis: models.ReanalysisResult{
		IsSuggestionAccepted: true,
		Reasoning:            "Leaf shape matches.",
		NewAnalysis:          &accepted,
	}}
	handler := testutil.NewTestServer(t, ai).Handler()
	token := signup(t, handler, "izy@example.com")
	id := addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodPost, fmt.Sprintf("/plants/%s/identify", id), token, map[string]string{
		"suggestion": "Philodendron hederaceum",
	}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "identify")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result := resp["result"].(map[string]interface{})
	if result["is_suggestion_accepted"] != true {
		t.Errorf("expected suggestion accepted, got %v", result)
	}

	rr = do(handler, authedRequest(t, http.MethodGet, "/plants/"+id, token, nil))
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	plant := resp["result"].(map[string]interface{})
	analysis := plant["analysis"].(map[string]interface{})
	if analysis["species_name"] != "Philodendron hederaceum" {
		t.Errorf("expected swapped analysis, got %v", analysis["species_name"])
	}
}

func TestCalendarAndDashboard(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")
	addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodGet, "/alerts", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "alerts")

	rr = do(handler, authedRequest(t, http.MethodGet, "/calendar", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "calendar")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if calendar := resp["result"].(map[string]interface{}); len(calendar) == 0 {
		t.Error("expected projected calendar entries")
	}

	rr = do(handler, authedRequest(t, http.MethodGet, "/calendar/not-a-date", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "bad calendar date")

	rr = do(handler, authedRequest(t, http.MethodGet, "/dashboard", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "dashboard")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	dashboard := resp["result"].(map[string]interface{})
	if dashboard["plant_count"].(float64) != 1 {
		t.Errorf("expected plant count 1, got %v", dashboard["plant_count"])
	}
	if tip := dashboard["seasonal_tip"].(map[string]interface{}); tip["tip"] == "" {
		t.Error("expected a seasonal tip")
	}
}

func TestChatEndpoints(t *testing.T) {
	ai := &testutil.MockAI{ChatReply: "Water it weekly."}
	handler := testutil.NewTestServer(t, ai).Handler()
	token := signup(t, handler, "izy@example.com")

	rr := do(handler, authedRequest(t, http.MethodGet, "/chat", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "chat history")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	// A fresh garden starts with the greeting.
	if history := resp["result"].([]interface{}); len(history) != 1 {
		t.Errorf("expected seeded greeting, got %d messages", len(history))
	}

	rr = do(handler, authedRequest(t, http.MethodPost, "/chat", token, map[string]string{"message": "How often should I water?"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "send chat")
	resp = testutil.AssertJSONResponse(t, rr, "ok")
	history := resp["result"].([]interface{})
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	last := history[2].(map[string]interface{})
	if last["text"] != "Water it weekly." {
		t.Errorf("unexpected reply: %v", last)
	}

	rr = do(handler, authedRequest(t, http.MethodPost, "/chat", token, map[string]string{"message": ""}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty chat message")
}

func TestRecommendationsEndpoint(t *testing.T) {
	ai := &testutil.MockAI{Recs: []models.PlantRecommendation{
		{PopularName: "Pothos", SpeciesName: "Epipremnum aureum", Reason: "Same light needs."},
	}}
	handler := testutil.NewTestServer(t, ai).Handler()
	token := signup(t, handler, "izy@example.com")

	rr := do(handler, authedRequest(t, http.MethodGet, "/recommendations", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "recommendations")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	if recs := resp["result"].([]interface{}); len(recs) != 1 {
		t.Errorf("expected 1 recommendation, got %d", len(recs))
	}
}

func TestProfileEndpoint(t *testing.T) {
	handler := testutil.NewTestServer(t, nil).Handler()
	token := signup(t, handler, "izy@example.com")
	addPlant(t, handler, token)

	rr := do(handler, authedRequest(t, http.MethodGet, "/profile", token, nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "profile")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	profile := resp["result"].(map[string]interface{})
	if profile["name"] != "Izy" {
		t.Errorf("expected profile name 'Izy', got %v", profile["name"])
	}
	if profile["level_name"] != "Novice Gardener" {
		t.Errorf("expected level title, got %v", profile["level_name"])
	}
	achievements := profile["achievements"].([]interface{})
	if len(achievements) != 1 {
		t.Fatalf("expected the first-plant achievement, got %v", achievements)
	}
}
