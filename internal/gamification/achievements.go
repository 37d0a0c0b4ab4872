package gamification

import "github.com/izybotanic/leafwise/internal/models"

// Achievements is the static catalog.
var Achievements = []models.Achievement{
	{ID: models.AchievementFirstPlant, Title: "First Sprout", Description: "Added your first plant to the garden."},
	{ID: models.AchievementGardenStarter, Title: "Budding Garden", Description: "Grow 5 different plants."},
	{ID: models.AchievementFirstDiaryNote, Title: "Noted Botanist", Description: "Wrote your first diary note."},
	{ID: models.AchievementPlantSavior, Title: "Plant Hero", Description: "Cared for a plant that needed attention."},
	{ID: models.AchievementGreenThumb, Title: "Green Thumb", Description: "Keep 5 plants healthy at the same time."},
}

// AchievementByID looks up a catalog entry.
func AchievementByID(id models.AchievementID) (models.Achievement, bool) {
	for _, a := range Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return models.Achievement{}, false
}

// Flags carries transient one-shot signals that are not derivable from
// steady state, passed alongside the plant list instead of diffing
// previous snapshots.
type Flags struct {
	// NewHistoryNote marks that a diary note was added in this mutation.
	NewHistoryNote bool
}

// Recompute derives the unlocked-achievement set from current state plus
// flags. It is pure and idempotent: it only ever adds absent ids whose
// condition holds, never removes. The plant-savior achievement is not
// evaluated here, it requires a transition observed by the completion
// flow.
func Recompute(current models.AchievementSet, plants []models.Plant, flags Flags) models.AchievementSet {
	unlocked := current.Clone()

	checkAndAdd := func(id models.AchievementID, condition bool) {
		if condition && !unlocked.Has(id) {
			unlocked.Add(id)
		}
	}

	healthy := 0
	for _, p := range plants {
		if p.Analysis.IsHealthy {
			healthy++
		}
	}

	checkAndAdd(models.AchievementFirstPlant, len(plants) >= 1)
	checkAndAdd(models.AchievementGardenStarter, len(plants) >= 5)
	checkAndAdd(models.AchievementFirstDiaryNote, flags.NewHistoryNote)
	checkAndAdd(models.AchievementGreenThumb, healthy >= 5)

	return unlocked
}
