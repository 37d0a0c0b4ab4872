package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/izybotanic/leafwise/internal/models"
)

// ErrAccountExists is returned when creating an account whose email is
// already registered.
var ErrAccountExists = errors.New("account already exists")

// encodeAppData serializes the per-user blob for storage.
func encodeAppData(data models.UserAppData) ([]byte, error) {
	blob, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode app data: %w", err)
	}
	return blob, nil
}

// decodeAppData deserializes a stored per-user blob, normalizing nil
// collections so callers never see a nil achievement set.
func decodeAppData(blob []byte) (*models.UserAppData, error) {
	var data models.UserAppData
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("failed to decode app data: %w", err)
	}
	if data.UnlockedAchievements == nil {
		data.UnlockedAchievements = models.NewAchievementSet()
	}
	return &data, nil
}
