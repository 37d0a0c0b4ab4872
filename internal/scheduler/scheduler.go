// Package scheduler provides cron-based background jobs for Leafwise.
//
// Its main job is the daily care digest: recompute the overdue alerts for
// every logged-in garden and log a summary at a fixed hour.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/izybotanic/leafwise/internal/garden"
)

// DefaultDigestSchedule runs the care digest every morning at 08:00.
const DefaultDigestSchedule = "0 8 * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Use standard 5-field cron parser (min, hour, dom, month, dow) and enable recovery
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// GardenSource yields the currently loaded gardens keyed by user.
type GardenSource func() map[string]*garden.Garden

// AddCareDigest schedules the daily digest job over the given gardens.
func (s *Scheduler) AddCareDigest(expr string, gardens GardenSource) error {
	return s.AddJob(expr, func() { RunCareDigest(gardens()) })
}

// RunCareDigest logs one digest line per garden with overdue work.
func RunCareDigest(gardens map[string]*garden.Garden) {
	now := time.Now()
	for user, g := range gardens {
		alerts := g.Alerts(now)
		if len(alerts) == 0 {
			continue
		}
		weekly := g.WeeklyTaskCount(now)
		slog.Info("Care digest", "user", user, "overdue", len(alerts), "due_this_week", weekly,
			"first_due", garden.FormatAlertDue(alerts[0], now))
	}
	slog.Debug("Care digest completed", "gardens", len(gardens))
}
