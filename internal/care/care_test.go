package care

import (
	"testing"
	"time"

	"github.com/izybotanic/leafwise/internal/dates"
	"github.com/izybotanic/leafwise/internal/models"
)

func testPlant(id string, wateringFreq, fertilizingFreq int, lastWatering, lastFertilizing time.Time) models.Plant {
	return models.Plant{
		ID:    id,
		Image: "img-" + id,
		Analysis: models.PlantDiagnosis{
			PopularName: "Plant " + id,
			IsHealthy:   true,
			CareSchedule: models.CareSchedule{
				WateringFrequency:    wateringFreq,
				FertilizingFrequency: fertilizingFreq,
			},
		},
		LastCare: models.LastCare{Watering: lastWatering, Fertilizing: lastFertilizing},
	}
}

func TestNonPositiveFrequencyNeverDue(t *testing.T) {
	now := time.Now()
	longAgo := dates.AddDays(now, -365)

	for _, freq := range []int{0, -1, -30} {
		p := testPlant("p1", freq, freq, longAgo, longAgo)
		p.CustomTasks = []models.CustomCareTask{
			{ID: "ct1", Type: models.TaskTypeMist, FrequencyDays: freq, LastCompleted: longAgo},
		}

		if alerts := ComputeAlerts([]models.Plant{p}, now); len(alerts) != 0 {
			t.Errorf("freq %d: expected no alerts, got %d", freq, len(alerts))
		}
		if projected := ProjectTasks([]models.Plant{p}, 60, 60); len(projected) != 0 {
			t.Errorf("freq %d: expected empty projection, got %d dates", freq, len(projected))
		}
	}
}

func TestDueExactlyTodayCountsAsDue(t *testing.T) {
	now := time.Now()
	day := dates.StartOfDay(now)
	// lastServiced = today - F days puts the next due date exactly today.
	p := testPlant("p1", 7, 0, dates.AddDays(day, -7), now)

	alerts := ComputeAlerts([]models.Plant{p}, now)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Task != models.TaskKindWatering {
		t.Errorf("expected watering alert, got %s", alerts[0].Task)
	}
}

func TestDueTomorrowDoesNotAlert(t *testing.T) {
	now := time.Now()
	// lastServiced = today - (F-1) days: due tomorrow, not yet.
	p := testPlant("p1", 7, 0, dates.AddDays(now, -6), now)

	if alerts := ComputeAlerts([]models.Plant{p}, now); len(alerts) != 0 {
		t.Errorf("expected no alerts for a task due tomorrow, got %d", len(alerts))
	}
}

func TestAlertsSortedByDueDate(t *testing.T) {
	now := time.Now()
	day := dates.StartOfDay(now)
	plants := []models.Plant{
		testPlant("a", 7, 0, dates.AddDays(day, -8), now),   // overdue 1 day
		testPlant("b", 7, 0, dates.AddDays(day, -20), now),  // overdue 13 days
		testPlant("c", 3, 0, dates.AddDays(day, -3), now),   // due today
		testPlant("d", 10, 0, dates.AddDays(day, -15), now), // overdue 5 days
	}

	alerts := ComputeAlerts(plants, now)
	if len(alerts) != 4 {
		t.Fatalf("expected 4 alerts, got %d", len(alerts))
	}
	for i := 1; i < len(alerts); i++ {
		if alerts[i].DueDate.Before(alerts[i-1].DueDate) {
			t.Errorf("alerts out of order at %d: %v before %v", i, alerts[i].DueDate, alerts[i-1].DueDate)
		}
	}
	if alerts[0].PlantID != "b" {
		t.Errorf("oldest overdue should come first, got %s", alerts[0].PlantID)
	}
}

func TestCustomTaskAlertCarriesTaskIdentity(t *testing.T) {
	now := time.Now()
	p := testPlant("p1", 0, 0, now, now)
	p.CustomTasks = []models.CustomCareTask{
		{ID: "ct1", Type: models.TaskTypeOther, CustomName: "Check moss pole", FrequencyDays: 5, LastCompleted: dates.AddDays(now, -9)},
	}

	alerts := ComputeAlerts([]models.Plant{p}, now)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Task != models.TaskKindCustom || a.CustomTaskID != "ct1" || a.CustomTaskName != "Check moss pole" {
		t.Errorf("custom alert lost identity: %+v", a)
	}
}

func TestProjectTasksCycleWindow(t *testing.T) {
	now := time.Now()
	anchor := dates.StartOfDay(now)
	p := testPlant("p1", 7, 0, anchor, anchor)

	projected := ProjectTasks([]models.Plant{p}, 4, 4)

	// Occurrences land at anchor + 7*i for i in [-4, 4).
	for i := -4; i < 4; i++ {
		key := dates.DateKey(dates.AddDays(anchor, 7*i))
		occs := projected[key]
		if len(occs) != 1 {
			t.Errorf("cycle %d (%s): expected 1 occurrence, got %d", i, key, len(occs))
			continue
		}
		if occs[0].Task != models.TaskKindWatering || occs[0].PlantID != "p1" {
			t.Errorf("cycle %d: wrong occurrence %+v", i, occs[0])
		}
	}
	// Nothing outside the window.
	if occs := projected[dates.DateKey(dates.AddDays(anchor, 7*4))]; len(occs) != 0 {
		t.Errorf("occurrence found beyond the future window")
	}
	if occs := projected[dates.DateKey(dates.AddDays(anchor, 7*-5))]; len(occs) != 0 {
		t.Errorf("occurrence found beyond the past window")
	}
}

func TestProjectTasksLongFrequencyStillPlotted(t *testing.T) {
	now := dates.StartOfDay(time.Now())
	// A 90-day frequency with a 60-cycle window still plots ~15 years out;
	// the window is cycle-bounded, not day-bounded.
	p := testPlant("p1", 90, 0, now, now)

	projected := ProjectTasks([]models.Plant{p}, DefaultWindowCycles, DefaultWindowCycles)
	far := dates.DateKey(dates.AddDays(now, 90*30))
	if len(projected[far]) != 1 {
		t.Errorf("expected occurrence 30 cycles out, got %d", len(projected[far]))
	}
}

func TestTasksOnDate(t *testing.T) {
	now := time.Now()
	anchor := dates.StartOfDay(now)
	p := testPlant("p1", 7, 14, anchor, anchor)

	occs := TasksOnDate([]models.Plant{p}, dates.AddDays(anchor, 14))
	// Day 14 hosts both the watering (cycle 2) and fertilizing (cycle 1).
	if len(occs) != 2 {
		t.Fatalf("expected 2 occurrences on day 14, got %d", len(occs))
	}
}

func TestDueWithinLookahead(t *testing.T) {
	now := time.Now()
	plants := []models.Plant{
		testPlant("soon", 7, 0, dates.AddDays(now, -5), now),  // due in 2 days
		testPlant("later", 30, 0, dates.AddDays(now, -5), now), // due in 25 days
	}
	if got := DueWithin(plants, 7, now); got != 1 {
		t.Errorf("expected 1 task due within a week, got %d", got)
	}
}
