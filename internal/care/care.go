// Package care implements the schedule engine, the alert aggregator, and
// the calendar projector.
//
// All functions are pure: they read plant values and derive state, never
// mutating their inputs. The garden store is the only writer of the data
// they consume.
package care

import (
	"sort"
	"time"

	"github.com/izybotanic/leafwise/internal/dates"
	"github.com/izybotanic/leafwise/internal/models"
)

// DefaultWindowCycles is the symmetric cycle-count window the calendar
// projector expands each recurring task over. A cycle-count window keeps
// long-frequency tasks plotted far into the future while short-frequency
// tasks get a denser spread.
const DefaultWindowCycles = 60

// NextDue computes when a task with the given frequency is next due after
// its last service. Callers must check the frequency is positive first;
// non-positive frequencies mean the schedule is not applicable.
func NextDue(lastServiced time.Time, frequencyDays int) time.Time {
	return dates.AddDays(lastServiced, frequencyDays)
}

// IsOverdue reports whether a task is alert-worthy now: its next due date
// is today or earlier. Future due dates never alert, and non-positive
// frequencies are permanently not due.
func IsOverdue(lastServiced time.Time, frequencyDays int, now time.Time) bool {
	if frequencyDays <= 0 {
		return false
	}
	return !NextDue(lastServiced, frequencyDays).After(dates.StartOfDay(now))
}

// ComputeAlerts scans every plant's built-in and custom schedules and
// returns one alert per overdue task, sorted oldest due date first. Ties
// keep discovery order.
func ComputeAlerts(plants []models.Plant, now time.Time) []models.CareAlert {
	var alerts []models.CareAlert

	for _, plant := range plants {
		schedule := plant.Analysis.CareSchedule

		if IsOverdue(plant.LastCare.Watering, schedule.WateringFrequency, now) {
			alerts = append(alerts, models.CareAlert{
				PlantID:    plant.ID,
				PlantName:  plant.Analysis.PopularName,
				PlantImage: plant.Image,
				Task:       models.TaskKindWatering,
				DueDate:    NextDue(plant.LastCare.Watering, schedule.WateringFrequency),
			})
		}
		if IsOverdue(plant.LastCare.Fertilizing, schedule.FertilizingFrequency, now) {
			alerts = append(alerts, models.CareAlert{
				PlantID:    plant.ID,
				PlantName:  plant.Analysis.PopularName,
				PlantImage: plant.Image,
				Task:       models.TaskKindFertilizing,
				DueDate:    NextDue(plant.LastCare.Fertilizing, schedule.FertilizingFrequency),
			})
		}
		for _, task := range plant.CustomTasks {
			if !IsOverdue(task.LastCompleted, task.FrequencyDays, now) {
				continue
			}
			alerts = append(alerts, models.CareAlert{
				PlantID:        plant.ID,
				PlantName:      plant.Analysis.PopularName,
				PlantImage:     plant.Image,
				Task:           models.TaskKindCustom,
				DueDate:        NextDue(task.LastCompleted, task.FrequencyDays),
				CustomTaskID:   task.ID,
				CustomTaskName: task.DisplayName(),
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DueDate.Before(alerts[j].DueDate)
	})
	return alerts
}

// ProjectTasks expands every schedulable task across a symmetric window of
// cycle multiples around its anchor completion date and groups the
// occurrences by calendar date key. Tasks with non-positive frequency are
// excluded entirely.
func ProjectTasks(plants []models.Plant, pastCycles, futureCycles int) map[string][]models.TaskOccurrence {
	byDate := make(map[string][]models.TaskOccurrence)

	add := func(anchor time.Time, frequencyDays, cycle int, occ models.TaskOccurrence) {
		due := dates.AddDays(anchor, frequencyDays*cycle)
		key := dates.DateKey(due)
		byDate[key] = append(byDate[key], occ)
	}

	for _, plant := range plants {
		schedule := plant.Analysis.CareSchedule
		for i := -pastCycles; i < futureCycles; i++ {
			if schedule.WateringFrequency > 0 {
				add(plant.LastCare.Watering, schedule.WateringFrequency, i, models.TaskOccurrence{
					PlantID:   plant.ID,
					PlantName: plant.Analysis.PopularName,
					Task:      models.TaskKindWatering,
				})
			}
			if schedule.FertilizingFrequency > 0 {
				add(plant.LastCare.Fertilizing, schedule.FertilizingFrequency, i, models.TaskOccurrence{
					PlantID:   plant.ID,
					PlantName: plant.Analysis.PopularName,
					Task:      models.TaskKindFertilizing,
				})
			}
			for _, task := range plant.CustomTasks {
				if task.FrequencyDays <= 0 {
					continue
				}
				task := task
				add(task.LastCompleted, task.FrequencyDays, i, models.TaskOccurrence{
					PlantID:    plant.ID,
					PlantName:  plant.Analysis.PopularName,
					Task:       models.TaskKindCustom,
					CustomTask: &task,
				})
			}
		}
	}
	return byDate
}

// TasksOnDate answers the day-drill-down query: everything projected onto
// one calendar date. Selecting a day never mutates projector state.
func TasksOnDate(plants []models.Plant, day time.Time) []models.TaskOccurrence {
	return ProjectTasks(plants, DefaultWindowCycles, DefaultWindowCycles)[dates.DateKey(day)]
}

// DueWithin counts tasks whose next due date falls before now+days. Used
// for the dashboard lookahead badge.
func DueWithin(plants []models.Plant, days int, now time.Time) int {
	horizon := dates.AddDays(now, days)
	count := 0
	for _, plant := range plants {
		schedule := plant.Analysis.CareSchedule
		if schedule.WateringFrequency > 0 && NextDue(plant.LastCare.Watering, schedule.WateringFrequency).Before(horizon) {
			count++
		}
		if schedule.FertilizingFrequency > 0 && NextDue(plant.LastCare.Fertilizing, schedule.FertilizingFrequency).Before(horizon) {
			count++
		}
		for _, task := range plant.CustomTasks {
			if task.FrequencyDays > 0 && NextDue(task.LastCompleted, task.FrequencyDays).Before(horizon) {
				count++
			}
		}
	}
	return count
}
