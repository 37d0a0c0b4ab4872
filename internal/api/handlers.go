package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/izybotanic/leafwise/internal/dates"
	"github.com/izybotanic/leafwise/internal/garden"
	"github.com/izybotanic/leafwise/internal/models"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

type authResult struct {
	Token   string         `json:"token"`
	Account models.Account `json:"account"`
}

func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.signupHandler: processing signup request")
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.signupHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	token, account, err := s.auth.Signup(req.Email, req.Name, req.Password)
	if err != nil {
		slog.Warn("Server.signupHandler: signup failed", "email", req.Email, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	slog.Info("Server.signupHandler: account created", "email", account.Email)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Account created", authResult{Token: token, Account: *account}))
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.loginHandler: processing login request")
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.loginHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	token, account, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		slog.Warn("Server.loginHandler: login failed", "email", req.Email, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error("Invalid email or password"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(authResult{Token: token, Account: *account}))
}

// logoutHandler evicts the cached session. Tokens are stateless, so the
// client discards its copy; the server just drops the in-memory garden.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Missing bearer token"))
		return
	}
	email, err := s.auth.ParseToken(tokenString)
	if err != nil {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Invalid or expired token"))
		return
	}
	s.evictGarden(email)
	slog.Debug("Server.logoutHandler: session evicted", "email", email)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Logged out", nil))
}

type analyzeRequest struct {
	Image string `json:"image"`
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.analyzeHandler: processing analyze request")
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.analyzeHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	diagnosis, err := g.Analyze(r.Context(), req.Image)
	if err != nil {
		slog.Error("Server.analyzeHandler: analysis failed", "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(diagnosis))
}

func (s *Server) listPlantsHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	writeJSONResponse(w, http.StatusOK, models.Success(g.Plants()))
}

type addPlantRequest struct {
	Image    string                `json:"image"`
	Location models.Location       `json:"location"`
	Analysis models.PlantDiagnosis `json:"analysis"`
}

func (s *Server) addPlantHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.addPlantHandler: processing add plant request")
	var req addPlantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addPlantHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	plant, err := g.AddPlant(req.Image, req.Location, req.Analysis)
	if err != nil {
		slog.Warn("Server.addPlantHandler: validation failed", "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Plant added", plant))
}

func (s *Server) getPlantHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	plant, err := g.PlantByID(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(plant))
}

func (s *Server) deletePlantHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if err := g.DeletePlant(r.PathValue("id")); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Plant deleted", nil))
}

type historyRequest struct {
	Note  string `json:"note"`
	Image string `json:"image,omitempty"`
}

func (s *Server) addHistoryHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req historyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addHistoryHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	entry, err := g.AddHistoryEntry(r.PathValue("id"), req.Note, req.Image)
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Diary entry added", entry))
}

type completeTaskRequest struct {
	Task         models.TaskKind `json:"task"`
	CustomTaskID string          `json:"custom_task_id,omitempty"`
}

func (s *Server) completeTaskHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req completeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.completeTaskHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := g.CompleteCareTask(r.PathValue("id"), req.Task, req.CustomTaskID); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Task completed", g.Profile()))
}

func (s *Server) updateScheduleHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.CareScheduleUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.updateScheduleHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	schedule, err := g.UpdateCareSchedule(r.PathValue("id"), req)
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(schedule))
}

type taskRequest struct {
	Type          models.TaskType `json:"type"`
	CustomName    string          `json:"custom_name,omitempty"`
	FrequencyDays int             `json:"frequency_days"`
}

func (s *Server) addTaskHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addTaskHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	task, err := g.AddCustomTask(r.PathValue("id"), req.Type, req.CustomName, req.FrequencyDays)
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Task added", task))
}

func (s *Server) updateTaskHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.updateTaskHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	task, err := g.UpdateCustomTask(r.PathValue("id"), r.PathValue("taskID"), req.Type, req.CustomName, req.FrequencyDays)
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Task updated", task))
}

func (s *Server) removeTaskHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if err := g.RemoveCustomTask(r.PathValue("id"), r.PathValue("taskID")); err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Task removed", nil))
}

func (s *Server) availablePlansHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	plans, err := g.AvailableCarePlans(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(plans))
}

type activatePlanRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) activatePlanHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req activatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.activatePlanHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	plant, err := g.ActivateCarePlan(r.PathValue("id"), req.PlanID)
	if err != nil {
		slog.Warn("Server.activatePlanHandler: activation failed", "plant", r.PathValue("id"), "plan", req.PlanID, "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Care plan activated", plant))
}

func (s *Server) cancelPlanHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	plant, err := g.CancelCarePlan(r.PathValue("id"))
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Care plan cancelled", plant))
}

func (s *Server) planProgressHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	progress, err := g.CarePlanProgress(r.PathValue("id"), time.Now())
	if err != nil {
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(progress))
}

type identifyRequest struct {
	Suggestion string `json:"suggestion"`
}

func (s *Server) identifyHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.identifyHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := g.UpdateIdentification(r.Context(), r.PathValue("id"), req.Suggestion)
	if err != nil {
		slog.Error("Server.identifyHandler: reanalysis failed", "plant", r.PathValue("id"), "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	writeJSONResponse(w, http.StatusOK, models.Success(g.Alerts(time.Now())))
}

func (s *Server) calendarHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	writeJSONResponse(w, http.StatusOK, models.Success(g.Calendar()))
}

func (s *Server) calendarDayHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	day, err := dates.ParseDateKey(r.PathValue("date"))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid date, expected YYYY-MM-DD"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(g.TasksOnDate(day)))
}

// dashboardSummary is the landing page read model.
type dashboardSummary struct {
	Alerts      []models.CareAlert `json:"alerts"`
	WeeklyTasks int                `json:"weekly_tasks"`
	PlantCount  int                `json:"plant_count"`
	SeasonalTip garden.SeasonalTip `json:"seasonal_tip"`
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	now := time.Now()
	writeJSONResponse(w, http.StatusOK, models.Success(dashboardSummary{
		Alerts:      g.Alerts(now),
		WeeklyTasks: g.WeeklyTaskCount(now),
		PlantCount:  len(g.Plants()),
		SeasonalTip: garden.CurrentSeasonalTip(now),
	}))
}

func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	recs, err := g.Recommendations(r.Context())
	if err != nil {
		slog.Error("Server.recommendationsHandler: recommendation failed", "error", err)
		writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(recs))
}

func (s *Server) chatHistoryHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	writeJSONResponse(w, http.StatusOK, models.Success(g.ChatHistory()))
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) sendChatHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sendChatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	history, err := g.SendChatMessage(r.Context(), req.Message)
	if err != nil {
		if history == nil {
			// Validation failure, nothing was recorded.
			writeJSONResponse(w, statusForError(err), models.Error(err.Error()))
			return
		}
		// The expert was unreachable but both turns are in the transcript.
		slog.Error("Server.sendChatHandler: expert unavailable", "error", err)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Expert unavailable, try again", history))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(history))
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request, g *garden.Garden) {
	writeJSONResponse(w, http.StatusOK, models.Success(g.Profile()))
}
