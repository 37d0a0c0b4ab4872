// Package api provides HTTP handlers and the main API server logic for Leafwise.
//
// It exposes RESTful endpoints for accounts, plants, care tasks, plans,
// alerts, the calendar, the expert chat, and the profile. Every endpoint
// except signup, login, and health requires a bearer token; state flows
// through one garden per authenticated user.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/izybotanic/leafwise/internal/auth"
	"github.com/izybotanic/leafwise/internal/garden"
	"github.com/izybotanic/leafwise/internal/models"
	"github.com/izybotanic/leafwise/internal/scheduler"
	"github.com/izybotanic/leafwise/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// aiService is the AI collaborator surface the server passes into gardens.
type aiService interface {
	AnalyzePlant(ctx context.Context, base64Image string) (models.PlantDiagnosis, error)
	ReanalyzePlant(ctx context.Context, base64Image, userSuggestion string) (models.ReanalysisResult, error)
	Recommend(ctx context.Context, speciesNames []string) ([]models.PlantRecommendation, error)
	ExpertChat(ctx context.Context, message string, history []models.ChatMessage) (string, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	Store          store.Store
	Auth           *auth.Service
	AI             aiService
	DigestSchedule string
}

// Option configures API server options.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStore sets the persistence backend.
func WithStore(st store.Store) Option {
	return func(o *Opts) { o.Store = st }
}

// WithAuthService sets the authentication service.
func WithAuthService(a *auth.Service) Option {
	return func(o *Opts) { o.Auth = a }
}

// WithGenAI sets the AI collaborator.
func WithGenAI(ai aiService) Option {
	return func(o *Opts) { o.AI = ai }
}

// WithDigestSchedule sets the cron expression for the daily care digest.
func WithDigestSchedule(expr string) Option {
	return func(o *Opts) { o.DigestSchedule = expr }
}

// Server is the Leafwise HTTP API server.
type Server struct {
	addr  string
	st    store.Store
	auth  *auth.Service
	ai    aiService
	sched *scheduler.Scheduler

	mu      sync.Mutex
	gardens map[string]*garden.Garden
}

// NewServer assembles the API server from its collaborators.
func NewServer(opts ...Option) (*Server, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("API server requires a store")
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("API server requires an auth service")
	}
	if cfg.AI == nil {
		return nil, fmt.Errorf("API server requires an AI client")
	}

	s := &Server{
		addr:    cfg.Addr,
		st:      cfg.Store,
		auth:    cfg.Auth,
		ai:      cfg.AI,
		gardens: make(map[string]*garden.Garden),
	}

	if cfg.DigestSchedule != "" {
		s.sched = scheduler.NewScheduler()
		if err := s.sched.AddCareDigest(cfg.DigestSchedule, s.loadedGardens); err != nil {
			s.sched.Stop()
			return nil, fmt.Errorf("failed to schedule care digest: %w", err)
		}
		slog.Info("Server care digest scheduled", "schedule", cfg.DigestSchedule)
	}

	slog.Debug("Server assembled", "addr", cfg.Addr)
	return s, nil
}

// Handler returns the routed HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /auth/signup", s.signupHandler)
	mux.HandleFunc("POST /auth/login", s.loginHandler)
	mux.HandleFunc("POST /auth/logout", s.logoutHandler)

	mux.HandleFunc("POST /plants/analyze", s.withGarden(s.analyzeHandler))
	mux.HandleFunc("GET /plants", s.withGarden(s.listPlantsHandler))
	mux.HandleFunc("POST /plants", s.withGarden(s.addPlantHandler))
	mux.HandleFunc("GET /plants/{id}", s.withGarden(s.getPlantHandler))
	mux.HandleFunc("DELETE /plants/{id}", s.withGarden(s.deletePlantHandler))
	mux.HandleFunc("POST /plants/{id}/history", s.withGarden(s.addHistoryHandler))
	mux.HandleFunc("POST /plants/{id}/complete", s.withGarden(s.completeTaskHandler))
	mux.HandleFunc("PATCH /plants/{id}/schedule", s.withGarden(s.updateScheduleHandler))
	mux.HandleFunc("POST /plants/{id}/tasks", s.withGarden(s.addTaskHandler))
	mux.HandleFunc("PUT /plants/{id}/tasks/{taskID}", s.withGarden(s.updateTaskHandler))
	mux.HandleFunc("DELETE /plants/{id}/tasks/{taskID}", s.withGarden(s.removeTaskHandler))
	mux.HandleFunc("GET /plants/{id}/plans", s.withGarden(s.availablePlansHandler))
	mux.HandleFunc("POST /plants/{id}/plans", s.withGarden(s.activatePlanHandler))
	mux.HandleFunc("DELETE /plants/{id}/plans", s.withGarden(s.cancelPlanHandler))
	mux.HandleFunc("GET /plants/{id}/plans/progress", s.withGarden(s.planProgressHandler))
	mux.HandleFunc("POST /plants/{id}/identify", s.withGarden(s.identifyHandler))

	mux.HandleFunc("GET /alerts", s.withGarden(s.alertsHandler))
	mux.HandleFunc("GET /calendar", s.withGarden(s.calendarHandler))
	mux.HandleFunc("GET /calendar/{date}", s.withGarden(s.calendarDayHandler))
	mux.HandleFunc("GET /dashboard", s.withGarden(s.dashboardHandler))
	mux.HandleFunc("GET /recommendations", s.withGarden(s.recommendationsHandler))
	mux.HandleFunc("GET /chat", s.withGarden(s.chatHistoryHandler))
	mux.HandleFunc("POST /chat", s.withGarden(s.sendChatHandler))
	mux.HandleFunc("GET /profile", s.withGarden(s.profileHandler))

	return mux
}

// ListenAndServe starts serving on the configured address and blocks.
func (s *Server) ListenAndServe() error {
	slog.Info("Leafwise API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Close stops background jobs.
func (s *Server) Close() {
	if s.sched != nil {
		s.sched.Stop()
	}
}

// Run assembles a server from options and serves until failure.
func Run(opts ...Option) error {
	s, err := NewServer(opts...)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.ListenAndServe()
}

// gardenFor returns the cached garden for an account, loading it from the
// store on first access.
func (s *Server) gardenFor(email, profileName string) (*garden.Garden, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gardens[email]; ok {
		return g, nil
	}
	g, err := garden.Load(s.st, s.ai, email, profileName)
	if err != nil {
		return nil, err
	}
	s.gardens[email] = g
	return g, nil
}

// evictGarden drops the cached garden for an account. Pending background
// saves already hold their own snapshot, so eviction loses nothing.
func (s *Server) evictGarden(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gardens, email)
}

// loadedGardens snapshots the sessions for the digest job.
func (s *Server) loadedGardens() map[string]*garden.Garden {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*garden.Garden, len(s.gardens))
	for k, v := range s.gardens {
		out[k] = v
	}
	return out
}

// gardenHandler is a handler bound to the authenticated user's garden.
type gardenHandler func(w http.ResponseWriter, r *http.Request, g *garden.Garden)

// withGarden authenticates the bearer token and resolves the garden.
func (s *Server) withGarden(next gardenHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			slog.Warn("Server.withGarden: missing bearer token", "path", r.URL.Path)
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Missing bearer token"))
			return
		}
		email, err := s.auth.ParseToken(tokenString)
		if err != nil {
			slog.Warn("Server.withGarden: token rejected", "path", r.URL.Path, "error", err)
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Invalid or expired token"))
			return
		}
		account, err := s.st.GetAccount(email)
		if err != nil || account == nil {
			slog.Warn("Server.withGarden: account lookup failed", "email", email, "error", err)
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Unknown account"))
			return
		}
		g, err := s.gardenFor(email, account.Name)
		if err != nil {
			slog.Error("Server.withGarden: failed to load garden", "email", email, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load garden"))
			return
		}
		next(w, r, g)
	}
}

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrPlantNotFound),
		errors.Is(err, models.ErrTaskNotFound),
		errors.Is(err, models.ErrTemplateNotFound),
		errors.Is(err, models.ErrNoActivePlan):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPlanAlreadyActive),
		errors.Is(err, store.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidTaskKind),
		errors.Is(err, models.ErrInvalidTaskType),
		errors.Is(err, models.ErrInvalidLocation),
		errors.Is(err, models.ErrNonPositiveFrequency),
		errors.Is(err, models.ErrMissingCustomName),
		errors.Is(err, models.ErrCustomNameTooLong),
		errors.Is(err, models.ErrEmptyNote),
		errors.Is(err, models.ErrNoteTooLong),
		errors.Is(err, models.ErrEmptyChatMessage),
		errors.Is(err, models.ErrChatMessageTooLong),
		errors.Is(err, models.ErrMissingCustomTaskID),
		errors.Is(err, models.ErrTemplateNotAvailable),
		errors.Is(err, models.ErrEmptySpeciesSuggest),
		errors.Is(err, models.ErrMissingAnalysis),
		errors.Is(err, models.ErrMissingImage),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
