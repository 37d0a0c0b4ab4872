// Package careplan implements guided care plans: fixed-duration bundles of
// dated custom tasks instantiated on a plant from a static template.
//
// A plant is either in NoPlan or PlanActive. Activation creates one custom
// task per template step; cancellation removes exactly those tasks. A plan
// that runs past its duration stays active with clamped progress until the
// user cancels it, since its tasks keep recurring.
package careplan

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/izybotanic/leafwise/internal/care"
	"github.com/izybotanic/leafwise/internal/dates"
	"github.com/izybotanic/leafwise/internal/models"
)

// Step is one dated task blueprint within a template. Day is 1-based and
// lies within [1, DurationDays].
type Step struct {
	Day  int             `json:"day"`
	Type models.TaskType `json:"type"`
	Name string          `json:"name,omitempty"` // optional; overrides the type label
}

// Template is a static care plan definition. Not user data. The
// availability predicate is evaluated server-side and never serialized.
type Template struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	DurationDays int                     `json:"duration_days"`
	Available    func(models.Plant) bool `json:"-"`
	Steps        []Step                  `json:"steps"`
}

// Templates is the static plan catalog, mirroring the guided plans the
// product ships with.
var Templates = []Template{
	{
		ID:           "NEW_PLANT_ACCLIMATIZATION",
		Name:         "Acclimatization Plan",
		Description:  "A 14-day guide to help your new plant settle into its new home without stress.",
		DurationDays: 14,
		Available:    func(models.Plant) bool { return true },
		Steps: []Step{
			{Day: 1, Type: models.TaskTypePestCheck, Name: "Inspect for pests from the shop"},
			{Day: 3, Type: models.TaskTypeOther, Name: "Check soil moisture (do not water)"},
			{Day: 7, Type: models.TaskTypeRotate},
			{Day: 10, Type: models.TaskTypeOther, Name: "Check for stress signs (yellow leaves)"},
			{Day: 14, Type: models.TaskTypeCleanLeaves, Name: "Clean leaves to remove dust"},
		},
	},
	{
		ID:           "RECOVERY_PLAN",
		Name:         "Recovery Plan",
		Description:  "An intensive 21-day program to help your plant recover from stress or disease.",
		DurationDays: 21,
		Available:    func(p models.Plant) bool { return !p.Analysis.IsHealthy },
		Steps: []Step{
			{Day: 1, Type: models.TaskTypePestCheck, Name: "Apply initial treatment (if needed)"},
			{Day: 4, Type: models.TaskTypeOther, Name: "Check moisture and remove dead leaves"},
			{Day: 8, Type: models.TaskTypePrune, Name: "Prune damaged stems"},
			{Day: 14, Type: models.TaskTypeOther, Name: "Feed with diluted fertilizer"},
			{Day: 21, Type: models.TaskTypeOther, Name: "Assess progress and signs of recovery"},
		},
	},
}

// TemplateByID looks up a template in the static catalog.
func TemplateByID(id string) (Template, bool) {
	for _, tpl := range Templates {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}

// AvailableTemplates filters the catalog by each template's availability
// predicate for the given plant.
func AvailableTemplates(p models.Plant) []Template {
	var out []Template
	for _, tpl := range Templates {
		if tpl.Available(p) {
			out = append(out, tpl)
		}
	}
	return out
}

// Activate instantiates the template on the plant, returning the updated
// plant value. The availability predicate is re-checked here, not just at
// listing time, so a plant whose state changed between listing and
// activation cannot start an unintended plan.
//
// Each step becomes a custom task with frequency equal to the plan's full
// duration and a lastCompleted backdated so that the standard due-date
// formula lands its first due date exactly on startDate + step day.
func Activate(p models.Plant, templateID string, startDate time.Time) (models.Plant, error) {
	tpl, ok := TemplateByID(templateID)
	if !ok {
		return p, models.ErrTemplateNotFound
	}
	if p.ActiveCarePlan != nil {
		return p, models.ErrPlanAlreadyActive
	}
	if !tpl.Available(p) {
		return p, models.ErrTemplateNotAvailable
	}

	taskIDs := make([]string, 0, len(tpl.Steps))
	tasks := make([]models.CustomCareTask, 0, len(tpl.Steps))
	for _, step := range tpl.Steps {
		task := models.CustomCareTask{
			ID:            uuid.NewString(),
			Type:          step.Type,
			CustomName:    step.Name,
			FrequencyDays: tpl.DurationDays,
			LastCompleted: dates.AddDays(startDate, step.Day-tpl.DurationDays),
		}
		tasks = append(tasks, task)
		taskIDs = append(taskIDs, task.ID)
	}

	p.CustomTasks = append(append([]models.CustomCareTask{}, p.CustomTasks...), tasks...)
	p.ActiveCarePlan = &models.ActiveCarePlan{
		PlanID:    tpl.ID,
		Name:      tpl.Name,
		StartDate: startDate,
		TaskIDs:   taskIDs,
	}
	slog.Debug("careplan.Activate: plan instantiated", "plant_id", p.ID, "plan_id", tpl.ID, "tasks", len(taskIDs))
	return p, nil
}

// Cancel removes exactly the tasks the active plan created, by id set
// membership, and clears the plan reference. Tasks the plan does not own
// are never touched.
func Cancel(p models.Plant) (models.Plant, error) {
	if p.ActiveCarePlan == nil {
		return p, models.ErrNoActivePlan
	}

	owned := make(map[string]bool, len(p.ActiveCarePlan.TaskIDs))
	for _, id := range p.ActiveCarePlan.TaskIDs {
		owned[id] = true
	}

	kept := make([]models.CustomCareTask, 0, len(p.CustomTasks))
	for _, task := range p.CustomTasks {
		if !owned[task.ID] {
			kept = append(kept, task)
		}
	}

	slog.Debug("careplan.Cancel: plan cancelled", "plant_id", p.ID, "plan_id", p.ActiveCarePlan.PlanID, "removed", len(p.CustomTasks)-len(kept))
	p.CustomTasks = kept
	p.ActiveCarePlan = nil
	return p, nil
}

// StepStatus is the read model for one plan-owned task: its due date and
// whether its step has already passed.
type StepStatus struct {
	Task    models.CustomCareTask `json:"task"`
	DueDate time.Time             `json:"due_date"`
	Done    bool                  `json:"done"`
}

// Progress is the read model for an active plan.
type Progress struct {
	PlanID       string       `json:"plan_id"`
	Name         string       `json:"name"`
	DayOfPlan    int          `json:"day_of_plan"`
	DurationDays int          `json:"duration_days"`
	Percent      float64      `json:"percent"`
	Steps        []StepStatus `json:"steps"`
}

// PlanProgress computes elapsed progress for the plant's active plan. The
// second return is false when no plan is active. Percent clamps to
// [0, 100]; a plan past its duration simply reads 100 until cancelled.
func PlanProgress(p models.Plant, now time.Time) (Progress, bool) {
	plan := p.ActiveCarePlan
	if plan == nil {
		return Progress{}, false
	}
	tpl, ok := TemplateByID(plan.PlanID)
	if !ok {
		// Catalog drift; the stored plan still reports with its own metadata.
		tpl = Template{ID: plan.PlanID, Name: plan.Name, DurationDays: 1}
	}

	dayOfPlan := dates.DaysBetween(plan.StartDate, now) + 1
	percent := float64(dayOfPlan) / float64(tpl.DurationDays) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	owned := make(map[string]bool, len(plan.TaskIDs))
	for _, id := range plan.TaskIDs {
		owned[id] = true
	}
	var steps []StepStatus
	for _, task := range p.CustomTasks {
		if !owned[task.ID] {
			continue
		}
		due := care.NextDue(task.LastCompleted, task.FrequencyDays)
		steps = append(steps, StepStatus{Task: task, DueDate: due, Done: due.Before(now)})
	}

	return Progress{
		PlanID:       plan.PlanID,
		Name:         plan.Name,
		DayOfPlan:    dayOfPlan,
		DurationDays: tpl.DurationDays,
		Percent:      percent,
		Steps:        steps,
	}, true
}
