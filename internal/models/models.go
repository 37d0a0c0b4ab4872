// Package models defines the core data structures for Leafwise.
//
// It includes the plant aggregate, care schedules and tasks, care plans,
// achievements, and the user profile, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// TaskKind identifies which schedule a care action belongs to.
type TaskKind string

const (
	// TaskKindWatering refers to the built-in watering schedule.
	TaskKindWatering TaskKind = "watering"
	// TaskKindFertilizing refers to the built-in fertilizing schedule.
	TaskKindFertilizing TaskKind = "fertilizing"
	// TaskKindCustom refers to a user-defined or plan-created custom task.
	TaskKindCustom TaskKind = "custom"
)

// IsValidTaskKind checks if the given task kind is supported.
func IsValidTaskKind(k TaskKind) bool {
	switch k {
	case TaskKindWatering, TaskKindFertilizing, TaskKindCustom:
		return true
	default:
		return false
	}
}

// TaskType defines the fixed set of custom task categories.
type TaskType string

const (
	TaskTypePrune       TaskType = "prune"
	TaskTypeMist        TaskType = "mist"
	TaskTypePestCheck   TaskType = "pest_check"
	TaskTypeRepot       TaskType = "repot"
	TaskTypeRotate      TaskType = "rotate"
	TaskTypeCleanLeaves TaskType = "clean_leaves"
	// TaskTypeOther is the free-form variant; it alone requires CustomName.
	TaskTypeOther TaskType = "other"
)

// taskTypeLabels maps predefined task types to their display labels.
var taskTypeLabels = map[TaskType]string{
	TaskTypePrune:       "Prune",
	TaskTypeMist:        "Mist Leaves",
	TaskTypePestCheck:   "Check for Pests",
	TaskTypeRepot:       "Repot",
	TaskTypeRotate:      "Rotate Pot",
	TaskTypeCleanLeaves: "Clean Leaves",
	TaskTypeOther:       "Custom Task",
}

// IsValidTaskType checks if the given custom task type is supported.
func IsValidTaskType(t TaskType) bool {
	_, ok := taskTypeLabels[t]
	return ok
}

// Location tags where a plant lives.
type Location string

const (
	LocationIndoor  Location = "indoor"
	LocationOutdoor Location = "outdoor"
)

// IsValidLocation checks if the given location tag is supported.
func IsValidLocation(l Location) bool {
	return l == LocationIndoor || l == LocationOutdoor
}

// Validation constants for input validation
const (
	// MaxNoteLength defines the maximum allowed length for diary notes.
	MaxNoteLength = 4096
	// MaxCustomNameLength defines the maximum allowed length for custom task names.
	MaxCustomNameLength = 120
	// MaxChatMessageLength defines the maximum allowed length for a chat message.
	MaxChatMessageLength = 2000
)

// Error variables for better error handling and testability
var (
	ErrInvalidTaskKind      = errors.New("invalid task kind")
	ErrInvalidTaskType      = errors.New("invalid custom task type")
	ErrInvalidLocation      = errors.New("invalid plant location")
	ErrNonPositiveFrequency = errors.New("frequency must be a positive number of days")
	ErrMissingCustomName    = errors.New("custom name is required for tasks of type other")
	ErrCustomNameTooLong    = errors.New("custom name exceeds maximum length")
	ErrEmptyNote            = errors.New("note cannot be empty")
	ErrNoteTooLong          = errors.New("note exceeds maximum length")
	ErrEmptyChatMessage     = errors.New("chat message cannot be empty")
	ErrChatMessageTooLong   = errors.New("chat message exceeds maximum length")
	ErrMissingCustomTaskID  = errors.New("custom task id is required for custom task kind")
	ErrPlantNotFound        = errors.New("plant not found")
	ErrTaskNotFound         = errors.New("custom task not found")
	ErrTemplateNotFound     = errors.New("care plan template not found")
	ErrPlanAlreadyActive    = errors.New("a care plan is already active for this plant")
	ErrNoActivePlan         = errors.New("no active care plan for this plant")
	ErrTemplateNotAvailable = errors.New("care plan template is not available for this plant")
	ErrEmptySpeciesSuggest  = errors.New("species suggestion cannot be empty")
	ErrMissingAnalysis      = errors.New("plant analysis is required")
	ErrMissingImage         = errors.New("plant image is required")
)

// PestAndDiseaseAnalysis describes a pest or disease finding on a plant.
type PestAndDiseaseAnalysis struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	SuggestedTreatment string `json:"suggested_treatment"`
}

// CareSchedule holds the built-in recurring care frequencies for a plant.
// A frequency of zero or less means the schedule is not applicable and the
// task is never due.
type CareSchedule struct {
	WateringFrequency    int    `json:"watering_frequency"`    // days between waterings
	FertilizingFrequency int    `json:"fertilizing_frequency"` // days between fertilizings, 0 if not applicable
	PruningSchedule      string `json:"pruning_schedule"`      // free-text pruning guidance
}

// CareScheduleUpdate carries a partial schedule edit. Nil fields are left
// untouched by the merge.
type CareScheduleUpdate struct {
	WateringFrequency    *int `json:"watering_frequency,omitempty"`
	FertilizingFrequency *int `json:"fertilizing_frequency,omitempty"`
}

// AlternativeSpecies is a lower-confidence identification candidate.
type AlternativeSpecies struct {
	SpeciesName string `json:"species_name"`
	PopularName string `json:"popular_name"`
	Reason      string `json:"reason"`
}

// DiagnosisSummary is the short health verdict for a plant.
type DiagnosisSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CareInstructions holds free-text care guidance per concern.
type CareInstructions struct {
	Watering   string `json:"watering"`
	Sunlight   string `json:"sunlight"`
	Soil       string `json:"soil"`
	Fertilizer string `json:"fertilizer"`
}

// PlantDiagnosis is the structured result of an AI species identification
// and health assessment.
type PlantDiagnosis struct {
	SpeciesName              string                  `json:"species_name"`
	PopularName              string                  `json:"popular_name"`
	IdentificationConfidence string                  `json:"identification_confidence"` // high, medium, low
	AlternativeSpecies       []AlternativeSpecies    `json:"alternative_species,omitempty"`
	IsHealthy                bool                    `json:"is_healthy"`
	Diagnosis                DiagnosisSummary        `json:"diagnosis"`
	CareInstructions         CareInstructions        `json:"care_instructions"`
	CareSchedule             CareSchedule            `json:"care_schedule"`
	GeneralTips              []string                `json:"general_tips,omitempty"`
	PestAndDiseaseAnalysis   *PestAndDiseaseAnalysis `json:"pest_and_disease_analysis,omitempty"`
}

// ReanalysisResult is the outcome of re-identifying a plant with a user
// suggestion. NewAnalysis is set only when the suggestion was accepted.
type ReanalysisResult struct {
	IsSuggestionAccepted bool            `json:"is_suggestion_accepted"`
	Reasoning            string          `json:"reasoning"`
	NewAnalysis          *PlantDiagnosis `json:"new_analysis,omitempty"`
}

// HistoryEntry is a diary entry for a plant. Immutable once created;
// the history list is ordered newest first.
type HistoryEntry struct {
	ID    string    `json:"id"`
	Date  time.Time `json:"date"`
	Note  string    `json:"note"`
	Image string    `json:"image,omitempty"` // optional base64 image
}

// CustomCareTask is a recurring user-defined or plan-created task on a
// plant. Type discriminates the variant: CustomName is meaningful (and
// required) only when Type is TaskTypeOther.
type CustomCareTask struct {
	ID            string    `json:"id"`
	Type          TaskType  `json:"type"`
	CustomName    string    `json:"custom_name,omitempty"`
	FrequencyDays int       `json:"frequency_days"`
	LastCompleted time.Time `json:"last_completed"`
}

// Validate performs validation on a CustomCareTask definition.
func (t *CustomCareTask) Validate() error {
	if !IsValidTaskType(t.Type) {
		return ErrInvalidTaskType
	}
	if t.FrequencyDays <= 0 {
		return ErrNonPositiveFrequency
	}
	if t.Type == TaskTypeOther && t.CustomName == "" {
		return ErrMissingCustomName
	}
	if len(t.CustomName) > MaxCustomNameLength {
		return ErrCustomNameTooLong
	}
	return nil
}

// DisplayName resolves the user-facing name for the task.
func (t *CustomCareTask) DisplayName() string {
	if t.CustomName != "" {
		// Plan steps may carry a more specific name even for predefined types.
		return t.CustomName
	}
	return taskTypeLabels[t.Type]
}

// ActiveCarePlan records the care plan currently running on a plant and
// the custom task ids it created. Cancellation removes exactly TaskIDs.
type ActiveCarePlan struct {
	PlanID    string    `json:"plan_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	TaskIDs   []string  `json:"task_ids"`
}

// LastCare holds the most recent service timestamps for the built-in
// schedules.
type LastCare struct {
	Watering    time.Time `json:"watering"`
	Fertilizing time.Time `json:"fertilizing"`
}

// Plant is the aggregate for a single tracked plant. Owned exclusively by
// the garden store; engines receive it by value and return new values.
type Plant struct {
	ID             string           `json:"id"`
	Image          string           `json:"image"` // base64 image data
	Location       Location         `json:"location"`
	Analysis       PlantDiagnosis   `json:"analysis"`
	History        []HistoryEntry   `json:"history"` // newest first
	LastCare       LastCare         `json:"last_care"`
	CustomTasks    []CustomCareTask `json:"custom_tasks"`
	ActiveCarePlan *ActiveCarePlan  `json:"active_care_plan,omitempty"`
}

// TaskByID returns the custom task with the given id, if present.
func (p *Plant) TaskByID(taskID string) (CustomCareTask, bool) {
	for _, t := range p.CustomTasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return CustomCareTask{}, false
}

// CareAlert is a derived, non-persisted notice that a task is currently
// overdue. Recomputed on every read.
type CareAlert struct {
	PlantID        string    `json:"plant_id"`
	PlantName      string    `json:"plant_name"`
	PlantImage     string    `json:"plant_image"`
	Task           TaskKind  `json:"task"`
	DueDate        time.Time `json:"due_date"`
	CustomTaskID   string    `json:"custom_task_id,omitempty"`
	CustomTaskName string    `json:"custom_task_name,omitempty"`
}

// TaskOccurrence is one projected calendar occurrence of a recurring task.
type TaskOccurrence struct {
	PlantID    string          `json:"plant_id"`
	PlantName  string          `json:"plant_name"`
	Task       TaskKind        `json:"task"`
	CustomTask *CustomCareTask `json:"custom_task,omitempty"`
}

// PlantRecommendation is an AI suggestion for a new plant to acquire.
type PlantRecommendation struct {
	PopularName string `json:"popular_name"`
	SpeciesName string `json:"species_name"`
	Reason      string `json:"reason"`
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one turn in the expert chat history.
type ChatMessage struct {
	ID   string   `json:"id"`
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// AchievementID identifies an entry in the static achievement catalog.
type AchievementID string

const (
	AchievementFirstPlant     AchievementID = "FIRST_PLANT"
	AchievementGardenStarter  AchievementID = "GARDEN_STARTER"
	AchievementFirstDiaryNote AchievementID = "FIRST_DIARY_NOTE"
	AchievementPlantSavior    AchievementID = "PLANT_SAVIOR"
	AchievementGreenThumb     AchievementID = "GREEN_THUMB"
)

// Achievement is a static catalog entry. Unlock state lives in the
// per-user AchievementSet, never here.
type Achievement struct {
	ID          AchievementID `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
}

// UserProfile holds the user's display name and gamification state.
// GrowthPoints is monotonically non-decreasing; Level is always derived
// from GrowthPoints.
type UserProfile struct {
	Name         string `json:"name"`
	GrowthPoints int    `json:"growth_points"`
	Level        int    `json:"level"`
}

// UserAppData is the full persisted blob for one user.
type UserAppData struct {
	Plants               []Plant        `json:"plants"`
	UnlockedAchievements AchievementSet `json:"unlocked_achievements"`
	ChatHistory          []ChatMessage  `json:"chat_history"`
	UserProfile          UserProfile    `json:"user_profile"`
}

// Account is a stored login identity. The password hash is a bcrypt hash,
// never the plain password.
type Account struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
