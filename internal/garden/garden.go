// Package garden holds the per-user application state and every mutation
// on it. One Garden is the single writer for a user's data: operations
// take the mutex, commit the full new state, then persist asynchronously.
// AI calls that fail never touch state, except chat, which records the
// failure as a reply so the conversation stays coherent.
package garden

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/izybotanic/leafwise/internal/care"
	"github.com/izybotanic/leafwise/internal/careplan"
	"github.com/izybotanic/leafwise/internal/dates"
	"github.com/izybotanic/leafwise/internal/gamification"
	"github.com/izybotanic/leafwise/internal/models"
	"github.com/izybotanic/leafwise/internal/store"
)

const chatGreeting = "Hello! I'm Izy, your botany expert. How can I help your garden today?"

const chatFailureReply = "Sorry, something went wrong. Please try again."

// genAI is the narrow view of the AI collaborator the garden needs.
type genAI interface {
	AnalyzePlant(ctx context.Context, base64Image string) (models.PlantDiagnosis, error)
	ReanalyzePlant(ctx context.Context, base64Image, userSuggestion string) (models.ReanalysisResult, error)
	Recommend(ctx context.Context, speciesNames []string) ([]models.PlantRecommendation, error)
	ExpertChat(ctx context.Context, message string, history []models.ChatMessage) (string, error)
}

// Garden is the serialized state holder for one user.
type Garden struct {
	mu      sync.Mutex
	userKey string
	data    models.UserAppData
	st      store.Store
	ai      genAI
}

// Load opens the garden for a user, reading persisted state or seeding a
// fresh one for first login.
func Load(st store.Store, ai genAI, userKey, profileName string) (*Garden, error) {
	data, err := st.LoadAppData(userKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load app data: %w", err)
	}
	if data == nil {
		seeded := newAppData(profileName)
		data = &seeded
		slog.Info("Garden seeded for new user", "user", userKey)
	}
	if data.UnlockedAchievements == nil {
		data.UnlockedAchievements = models.NewAchievementSet()
	}
	slog.Debug("Garden loaded", "user", userKey, "plants", len(data.Plants))
	return &Garden{userKey: userKey, data: *data, st: st, ai: ai}, nil
}

func newAppData(profileName string) models.UserAppData {
	return models.UserAppData{
		Plants:               []models.Plant{},
		UnlockedAchievements: models.NewAchievementSet(),
		ChatHistory: []models.ChatMessage{
			{ID: "init", Role: models.ChatRoleModel, Text: chatGreeting},
		},
		UserProfile: models.UserProfile{Name: profileName, GrowthPoints: 0, Level: 1},
	}
}

// persist snapshots the committed state and writes it in the background.
// A failed write is logged but never fails the operation that caused it.
func (g *Garden) persist() {
	snapshot, err := cloneAppData(g.data)
	if err != nil {
		slog.Error("Garden snapshot failed", "user", g.userKey, "error", err)
		return
	}
	go func() {
		if err := g.st.SaveAppData(g.userKey, snapshot); err != nil {
			slog.Error("Garden persistence failed", "user", g.userKey, "error", err)
		}
	}()
}

// cloneAppData deep-copies the state so the background save never races
// with the next mutation.
func cloneAppData(data models.UserAppData) (models.UserAppData, error) {
	blob, err := json.Marshal(data)
	if err != nil {
		return models.UserAppData{}, err
	}
	var out models.UserAppData
	if err := json.Unmarshal(blob, &out); err != nil {
		return models.UserAppData{}, err
	}
	return out, nil
}

func (g *Garden) plantIndex(plantID string) int {
	for i := range g.data.Plants {
		if g.data.Plants[i].ID == plantID {
			return i
		}
	}
	return -1
}

// Plants returns a copy of the plant list.
func (g *Garden) Plants() []models.Plant {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Plant, len(g.data.Plants))
	copy(out, g.data.Plants)
	return out
}

// PlantByID returns one plant by id.
func (g *Garden) PlantByID(plantID string) (models.Plant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.Plant{}, models.ErrPlantNotFound
	}
	return g.data.Plants[idx], nil
}

// AddPlant registers an analyzed plant in the garden. The analysis must
// come from a prior AnalyzePlant call; plants are never created without
// one.
func (g *Garden) AddPlant(image string, location models.Location, analysis models.PlantDiagnosis) (models.Plant, error) {
	if image == "" {
		return models.Plant{}, models.ErrMissingImage
	}
	if !models.IsValidLocation(location) {
		return models.Plant{}, models.ErrInvalidLocation
	}
	if analysis.SpeciesName == "" {
		return models.Plant{}, models.ErrMissingAnalysis
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	plant := models.Plant{
		ID:          uuid.NewString(),
		Image:       image,
		Location:    location,
		Analysis:    analysis,
		History:     []models.HistoryEntry{},
		LastCare:    models.LastCare{Watering: now, Fertilizing: now},
		CustomTasks: []models.CustomCareTask{},
	}
	g.data.Plants = append(g.data.Plants, plant)
	g.data.UnlockedAchievements = gamification.Recompute(g.data.UnlockedAchievements, g.data.Plants, gamification.Flags{})
	g.data.UserProfile = gamification.Award(g.data.UserProfile, gamification.PointsAddPlant)
	g.persist()

	slog.Info("Garden plant added", "user", g.userKey, "plant", plant.ID, "species", analysis.SpeciesName)
	return plant, nil
}

// DeletePlant removes a plant. Points and achievements already earned
// stay earned.
func (g *Garden) DeletePlant(plantID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.ErrPlantNotFound
	}
	g.data.Plants = append(g.data.Plants[:idx], g.data.Plants[idx+1:]...)
	g.persist()
	slog.Info("Garden plant deleted", "user", g.userKey, "plant", plantID)
	return nil
}

// AddHistoryEntry prepends a diary entry to the plant's history.
func (g *Garden) AddHistoryEntry(plantID, note, image string) (models.HistoryEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addHistoryEntryLocked(plantID, note, image)
}

func (g *Garden) addHistoryEntryLocked(plantID, note, image string) (models.HistoryEntry, error) {
	if note == "" {
		return models.HistoryEntry{}, models.ErrEmptyNote
	}
	if len(note) > models.MaxNoteLength {
		return models.HistoryEntry{}, models.ErrNoteTooLong
	}
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.HistoryEntry{}, models.ErrPlantNotFound
	}

	entry := models.HistoryEntry{
		ID:    uuid.NewString(),
		Date:  time.Now(),
		Note:  note,
		Image: image,
	}
	plant := g.data.Plants[idx]
	plant.History = append([]models.HistoryEntry{entry}, plant.History...)
	g.data.Plants[idx] = plant

	g.data.UnlockedAchievements = gamification.Recompute(g.data.UnlockedAchievements, g.data.Plants, gamification.Flags{NewHistoryNote: true})
	g.data.UserProfile = gamification.Award(g.data.UserProfile, gamification.PointsAddHistory)
	g.persist()

	slog.Debug("Garden history entry added", "user", g.userKey, "plant", plantID)
	return entry, nil
}

// CompleteCareTask marks a built-in or custom task as serviced now.
// Completing any task on an unhealthy plant unlocks the savior
// achievement; this is the only flow that awards it.
func (g *Garden) CompleteCareTask(plantID string, kind models.TaskKind, customTaskID string) error {
	if !models.IsValidTaskKind(kind) {
		return models.ErrInvalidTaskKind
	}
	if kind == models.TaskKindCustom && customTaskID == "" {
		return models.ErrMissingCustomTaskID
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.ErrPlantNotFound
	}

	plant := g.data.Plants[idx]
	wasUnhealthy := !plant.Analysis.IsHealthy
	now := time.Now()

	switch kind {
	case models.TaskKindWatering:
		plant.LastCare.Watering = now
	case models.TaskKindFertilizing:
		plant.LastCare.Fertilizing = now
	case models.TaskKindCustom:
		found := false
		tasks := make([]models.CustomCareTask, len(plant.CustomTasks))
		copy(tasks, plant.CustomTasks)
		for i := range tasks {
			if tasks[i].ID == customTaskID {
				tasks[i].LastCompleted = now
				found = true
				break
			}
		}
		if !found {
			return models.ErrTaskNotFound
		}
		plant.CustomTasks = tasks
	}
	g.data.Plants[idx] = plant

	if wasUnhealthy {
		g.data.UnlockedAchievements = g.data.UnlockedAchievements.Clone()
		g.data.UnlockedAchievements.Add(models.AchievementPlantSavior)
	}
	g.data.UserProfile = gamification.Award(g.data.UserProfile, gamification.PointsCompleteTask)
	g.persist()

	slog.Debug("Garden care task completed", "user", g.userKey, "plant", plantID, "kind", kind, "savior", wasUnhealthy)
	return nil
}

// UpdateCareSchedule merges a partial schedule edit into the plant's
// analysis. Nil fields are untouched.
func (g *Garden) UpdateCareSchedule(plantID string, update models.CareScheduleUpdate) (models.CareSchedule, error) {
	if update.WateringFrequency != nil && *update.WateringFrequency <= 0 {
		return models.CareSchedule{}, models.ErrNonPositiveFrequency
	}
	if update.FertilizingFrequency != nil && *update.FertilizingFrequency < 0 {
		return models.CareSchedule{}, models.ErrNonPositiveFrequency
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.CareSchedule{}, models.ErrPlantNotFound
	}

	plant := g.data.Plants[idx]
	if update.WateringFrequency != nil {
		plant.Analysis.CareSchedule.WateringFrequency = *update.WateringFrequency
	}
	if update.FertilizingFrequency != nil {
		plant.Analysis.CareSchedule.FertilizingFrequency = *update.FertilizingFrequency
	}
	g.data.Plants[idx] = plant
	g.persist()
	return plant.Analysis.CareSchedule, nil
}

// AddCustomTask creates a recurring custom task on the plant, anchored to
// now so its first due date is one full cycle out.
func (g *Garden) AddCustomTask(plantID string, taskType models.TaskType, customName string, frequencyDays int) (models.CustomCareTask, error) {
	task := models.CustomCareTask{
		ID:            uuid.NewString(),
		Type:          taskType,
		CustomName:    customName,
		FrequencyDays: frequencyDays,
		LastCompleted: time.Now(),
	}
	if err := task.Validate(); err != nil {
		return models.CustomCareTask{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.CustomCareTask{}, models.ErrPlantNotFound
	}

	plant := g.data.Plants[idx]
	tasks := make([]models.CustomCareTask, len(plant.CustomTasks), len(plant.CustomTasks)+1)
	copy(tasks, plant.CustomTasks)
	plant.CustomTasks = append(tasks, task)
	g.data.Plants[idx] = plant
	g.persist()
	return task, nil
}

// UpdateCustomTask replaces the definition of an existing custom task.
// The anchor timestamp is preserved; only definition fields change.
func (g *Garden) UpdateCustomTask(plantID, taskID string, taskType models.TaskType, customName string, frequencyDays int) (models.CustomCareTask, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.CustomCareTask{}, models.ErrPlantNotFound
	}

	plant := g.data.Plants[idx]
	tasks := make([]models.CustomCareTask, len(plant.CustomTasks))
	copy(tasks, plant.CustomTasks)
	for i := range tasks {
		if tasks[i].ID != taskID {
			continue
		}
		updated := tasks[i]
		updated.Type = taskType
		updated.CustomName = customName
		updated.FrequencyDays = frequencyDays
		if err := updated.Validate(); err != nil {
			return models.CustomCareTask{}, err
		}
		tasks[i] = updated
		plant.CustomTasks = tasks
		g.data.Plants[idx] = plant
		g.persist()
		return updated, nil
	}
	return models.CustomCareTask{}, models.ErrTaskNotFound
}

// RemoveCustomTask deletes a custom task from the plant.
func (g *Garden) RemoveCustomTask(plantID, taskID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.ErrPlantNotFound
	}

	plant := g.data.Plants[idx]
	tasks := make([]models.CustomCareTask, 0, len(plant.CustomTasks))
	found := false
	for _, t := range plant.CustomTasks {
		if t.ID == taskID {
			found = true
			continue
		}
		tasks = append(tasks, t)
	}
	if !found {
		return models.ErrTaskNotFound
	}
	plant.CustomTasks = tasks
	g.data.Plants[idx] = plant
	g.persist()
	return nil
}

// AvailableCarePlans lists the plan templates the plant currently
// qualifies for.
func (g *Garden) AvailableCarePlans(plantID string) ([]careplan.Template, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return nil, models.ErrPlantNotFound
	}
	return careplan.AvailableTemplates(g.data.Plants[idx]), nil
}

// ActivateCarePlan starts a guided care plan on the plant.
func (g *Garden) ActivateCarePlan(plantID, templateID string) (models.Plant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.Plant{}, models.ErrPlantNotFound
	}

	updated, err := careplan.Activate(g.data.Plants[idx], templateID, time.Now())
	if err != nil {
		return models.Plant{}, err
	}
	g.data.Plants[idx] = updated
	g.data.UserProfile = gamification.Award(g.data.UserProfile, gamification.PointsActivatePlan)
	g.persist()

	slog.Info("Garden care plan activated", "user", g.userKey, "plant", plantID, "plan", templateID)
	return updated, nil
}

// CancelCarePlan removes the active plan and exactly the tasks it created.
func (g *Garden) CancelCarePlan(plantID string) (models.Plant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return models.Plant{}, models.ErrPlantNotFound
	}

	updated, err := careplan.Cancel(g.data.Plants[idx])
	if err != nil {
		return models.Plant{}, err
	}
	g.data.Plants[idx] = updated
	g.persist()
	slog.Info("Garden care plan cancelled", "user", g.userKey, "plant", plantID)
	return updated, nil
}

// CarePlanProgress reads the active plan's progress for a plant.
func (g *Garden) CarePlanProgress(plantID string, now time.Time) (careplan.Progress, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		return careplan.Progress{}, models.ErrPlantNotFound
	}
	progress, ok := careplan.PlanProgress(g.data.Plants[idx], now)
	if !ok {
		return careplan.Progress{}, models.ErrNoActivePlan
	}
	return progress, nil
}

// UpdateIdentification asks the AI to re-identify the plant against a
// user-suggested species. If the suggestion is accepted the stored
// analysis is replaced and a diary entry records the change; a rejected
// suggestion leaves the plant untouched.
func (g *Garden) UpdateIdentification(ctx context.Context, plantID, userSuggestion string) (models.ReanalysisResult, error) {
	plant, err := g.PlantByID(plantID)
	if err != nil {
		return models.ReanalysisResult{}, err
	}

	result, err := g.ai.ReanalyzePlant(ctx, plant.Image, userSuggestion)
	if err != nil {
		return models.ReanalysisResult{}, err
	}
	if !result.IsSuggestionAccepted || result.NewAnalysis == nil {
		slog.Debug("Garden identification suggestion rejected", "user", g.userKey, "plant", plantID)
		return result, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.plantIndex(plantID)
	if idx < 0 {
		// Deleted while the reanalysis was in flight.
		return models.ReanalysisResult{}, models.ErrPlantNotFound
	}
	updated := g.data.Plants[idx]
	updated.Analysis = *result.NewAnalysis
	g.data.Plants[idx] = updated

	note := fmt.Sprintf("Identification updated to %s. %s", result.NewAnalysis.PopularName, result.Reasoning)
	if _, err := g.addHistoryEntryLocked(plantID, note, ""); err != nil {
		slog.Error("Garden identification history entry failed", "user", g.userKey, "plant", plantID, "error", err)
	}
	slog.Info("Garden identification updated", "user", g.userKey, "plant", plantID, "species", result.NewAnalysis.SpeciesName)
	return result, nil
}

// Analyze runs the AI identification for a new plant photo. No state
// changes until the caller decides to AddPlant the result.
func (g *Garden) Analyze(ctx context.Context, base64Image string) (models.PlantDiagnosis, error) {
	return g.ai.AnalyzePlant(ctx, base64Image)
}

// Recommendations asks the AI for plants that fit the current collection.
func (g *Garden) Recommendations(ctx context.Context) ([]models.PlantRecommendation, error) {
	g.mu.Lock()
	names := make([]string, 0, len(g.data.Plants))
	for _, p := range g.data.Plants {
		names = append(names, p.Analysis.PopularName)
	}
	g.mu.Unlock()
	return g.ai.Recommend(ctx, names)
}

// SendChatMessage appends the user's message, asks the expert, and
// appends the reply. An AI failure is recorded as an apologetic reply so
// the transcript never loses the user's turn, and the error is still
// returned.
func (g *Garden) SendChatMessage(ctx context.Context, message string) ([]models.ChatMessage, error) {
	if message == "" {
		return nil, models.ErrEmptyChatMessage
	}
	if len(message) > models.MaxChatMessageLength {
		return nil, models.ErrChatMessageTooLong
	}

	g.mu.Lock()
	userMsg := models.ChatMessage{ID: uuid.NewString(), Role: models.ChatRoleUser, Text: message}
	history := make([]models.ChatMessage, len(g.data.ChatHistory))
	copy(history, g.data.ChatHistory)
	g.data.ChatHistory = append(history, userMsg)
	g.persist()
	g.mu.Unlock()

	reply, aiErr := g.ai.ExpertChat(ctx, message, history)
	if aiErr != nil {
		slog.Error("Garden expert chat failed", "user", g.userKey, "error", aiErr)
		reply = chatFailureReply
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	modelMsg := models.ChatMessage{ID: uuid.NewString(), Role: models.ChatRoleModel, Text: reply}
	g.data.ChatHistory = append(g.data.ChatHistory, modelMsg)
	g.persist()

	out := make([]models.ChatMessage, len(g.data.ChatHistory))
	copy(out, g.data.ChatHistory)
	return out, aiErr
}

// ChatHistory returns a copy of the conversation.
func (g *Garden) ChatHistory() []models.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.ChatMessage, len(g.data.ChatHistory))
	copy(out, g.data.ChatHistory)
	return out
}

// Alerts recomputes the currently overdue tasks.
func (g *Garden) Alerts(now time.Time) []models.CareAlert {
	g.mu.Lock()
	defer g.mu.Unlock()
	return care.ComputeAlerts(g.data.Plants, now)
}

// Calendar projects every recurring task over the default window, keyed
// by day.
func (g *Garden) Calendar() map[string][]models.TaskOccurrence {
	g.mu.Lock()
	defer g.mu.Unlock()
	return care.ProjectTasks(g.data.Plants, care.DefaultWindowCycles, care.DefaultWindowCycles)
}

// TasksOnDate lists the projected occurrences for one day.
func (g *Garden) TasksOnDate(day time.Time) []models.TaskOccurrence {
	g.mu.Lock()
	defer g.mu.Unlock()
	return care.TasksOnDate(g.data.Plants, day)
}

// WeeklyTaskCount counts tasks coming due within the next seven days.
func (g *Garden) WeeklyTaskCount(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return care.DueWithin(g.data.Plants, 7, now)
}

// ProfileView is the profile read model with derived display fields.
type ProfileView struct {
	Name         string               `json:"name"`
	GrowthPoints int                  `json:"growth_points"`
	Level        int                  `json:"level"`
	LevelName    string               `json:"level_name"`
	Achievements []models.Achievement `json:"achievements"`
	PlantCount   int                  `json:"plant_count"`
}

// Profile assembles the gamification read model.
func (g *Garden) Profile() ProfileView {
	g.mu.Lock()
	defer g.mu.Unlock()

	unlocked := make([]models.Achievement, 0, len(g.data.UnlockedAchievements))
	for _, id := range g.data.UnlockedAchievements.IDs() {
		if a, ok := gamification.AchievementByID(id); ok {
			unlocked = append(unlocked, a)
		}
	}
	return ProfileView{
		Name:         g.data.UserProfile.Name,
		GrowthPoints: g.data.UserProfile.GrowthPoints,
		Level:        g.data.UserProfile.Level,
		LevelName:    gamification.LevelName(g.data.UserProfile.Level),
		Achievements: unlocked,
		PlantCount:   len(g.data.Plants),
	}
}

// SeasonalTip is the dashboard tip for the current season, using
// southern-hemisphere months.
type SeasonalTip struct {
	Season string `json:"season"`
	Tip    string `json:"tip"`
}

var seasonalTips = map[string]string{
	"Summer": "Watch the watering closely! Heat speeds up evaporation. Shield plants from the harsh midday sun.",
	"Autumn": "The right time for cleanup pruning and preparing plants for the cold. Cut back on fertilizing.",
	"Winter": "Most plants go dormant. Reduce watering significantly to keep the roots from rotting.",
	"Spring": "Growing season! Step up watering and resume fertilizing to fuel the new shoots.",
}

// CurrentSeasonalTip maps the month to a southern-hemisphere season and
// returns its care tip.
func CurrentSeasonalTip(now time.Time) SeasonalTip {
	var season string
	switch m := now.Month(); {
	case m >= time.March && m <= time.May:
		season = "Autumn"
	case m >= time.June && m <= time.August:
		season = "Winter"
	case m >= time.September && m <= time.November:
		season = "Spring"
	default:
		season = "Summer"
	}
	return SeasonalTip{Season: season, Tip: seasonalTips[season]}
}

// FormatAlertDue renders an alert's due date relative to now.
func FormatAlertDue(alert models.CareAlert, now time.Time) string {
	return dates.FormatDueDate(alert.DueDate, now)
}
