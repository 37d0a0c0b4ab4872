package models

import (
	"encoding/json"
	"sort"
)

// AchievementSet is the per-user set of unlocked achievement ids. It is
// monotonic at the application level: mutations only ever add members.
// Serialized as a sorted JSON array for stable persisted blobs.
type AchievementSet map[AchievementID]bool

// NewAchievementSet builds a set from the given ids.
func NewAchievementSet(ids ...AchievementID) AchievementSet {
	s := make(AchievementSet, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// Has reports whether the achievement is unlocked.
func (s AchievementSet) Has(id AchievementID) bool {
	return s[id]
}

// Add unlocks the achievement. The receiver must be a non-nil map; the
// garden store always initializes the set.
func (s AchievementSet) Add(id AchievementID) {
	s[id] = true
}

// Clone returns an independent copy of the set.
func (s AchievementSet) Clone() AchievementSet {
	out := make(AchievementSet, len(s))
	for id := range s {
		out[id] = true
	}
	return out
}

// IDs returns the unlocked ids in sorted order.
func (s AchievementSet) IDs() []AchievementID {
	ids := make([]AchievementID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarshalJSON serializes the set as a sorted array of ids.
func (s AchievementSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON deserializes an array of ids into the set.
func (s *AchievementSet) UnmarshalJSON(data []byte) error {
	var ids []AchievementID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewAchievementSet(ids...)
	return nil
}
