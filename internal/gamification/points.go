// Package gamification implements growth points, levels, and the
// achievement evaluator.
package gamification

import "github.com/izybotanic/leafwise/internal/models"

// Point awards for user actions. Fixed product constants.
const (
	PointsCompleteTask = 10
	PointsAddPlant     = 50
	PointsAddHistory   = 15
	PointsActivatePlan = 25

	// PointsPerLevel is the floor-division level step.
	PointsPerLevel = 100
)

// levelTitles is the ordered display name list; levels beyond the list
// clamp to the last title.
var levelTitles = []string{
	"Novice Gardener",    // level 1
	"Devoted Grower",     // level 2
	"Green Thumb",        // level 3
	"Friend of Plants",   // level 4
	"Leaf Whisperer",     // level 5
	"Guardian of Flora",  // level 6
	"Master Botanist",    // level 7+
}

// LevelForPoints derives the level from the running point total. Level is
// always recomputed from the total, never incremented independently, so it
// cannot drift.
func LevelForPoints(points int) int {
	return points/PointsPerLevel + 1
}

// LevelName returns the display title for a level, clamped to the last
// title for levels beyond the list.
func LevelName(level int) string {
	idx := level - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(levelTitles) {
		idx = len(levelTitles) - 1
	}
	return levelTitles[idx]
}

// Award adds points to the profile and rederives the level, returning the
// updated profile value.
func Award(profile models.UserProfile, points int) models.UserProfile {
	profile.GrowthPoints += points
	profile.Level = LevelForPoints(profile.GrowthPoints)
	return profile
}
