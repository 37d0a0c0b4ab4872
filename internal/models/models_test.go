package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCustomCareTaskValidate(t *testing.T) {
	valid := CustomCareTask{ID: "t1", Type: TaskTypePrune, FrequencyDays: 7, LastCompleted: time.Now()}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid task, got error: %v", err)
	}

	badType := CustomCareTask{ID: "t2", Type: TaskType("water_dance"), FrequencyDays: 7}
	if err := badType.Validate(); err != ErrInvalidTaskType {
		t.Errorf("expected ErrInvalidTaskType, got %v", err)
	}

	zeroFreq := CustomCareTask{ID: "t3", Type: TaskTypeMist, FrequencyDays: 0}
	if err := zeroFreq.Validate(); err != ErrNonPositiveFrequency {
		t.Errorf("expected ErrNonPositiveFrequency, got %v", err)
	}

	otherNoName := CustomCareTask{ID: "t4", Type: TaskTypeOther, FrequencyDays: 3}
	if err := otherNoName.Validate(); err != ErrMissingCustomName {
		t.Errorf("expected ErrMissingCustomName, got %v", err)
	}

	otherNamed := CustomCareTask{ID: "t5", Type: TaskTypeOther, CustomName: "Check moss pole", FrequencyDays: 3}
	if err := otherNamed.Validate(); err != nil {
		t.Errorf("expected valid other task, got error: %v", err)
	}
}

func TestCustomCareTaskDisplayName(t *testing.T) {
	prune := CustomCareTask{Type: TaskTypePrune}
	if got := prune.DisplayName(); got != "Prune" {
		t.Errorf("expected 'Prune', got %q", got)
	}
	// Plan steps may override the label even for predefined types.
	named := CustomCareTask{Type: TaskTypePestCheck, CustomName: "Inspect for shop pests"}
	if got := named.DisplayName(); got != "Inspect for shop pests" {
		t.Errorf("expected custom name, got %q", got)
	}
	other := CustomCareTask{Type: TaskTypeOther, CustomName: "Check soil moisture"}
	if got := other.DisplayName(); got != "Check soil moisture" {
		t.Errorf("expected custom name, got %q", got)
	}
}

func TestIsValidTaskKind(t *testing.T) {
	for _, k := range []TaskKind{TaskKindWatering, TaskKindFertilizing, TaskKindCustom} {
		if !IsValidTaskKind(k) {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if IsValidTaskKind(TaskKind("pruning")) {
		t.Error("expected 'pruning' to be invalid")
	}
}

func TestAchievementSetJSONRoundTrip(t *testing.T) {
	s := NewAchievementSet(AchievementGreenThumb, AchievementFirstPlant)
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	// Sorted array keeps persisted blobs stable.
	if string(data) != `["FIRST_PLANT","GREEN_THUMB"]` {
		t.Errorf("unexpected serialization: %s", data)
	}

	var back AchievementSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !back.Has(AchievementFirstPlant) || !back.Has(AchievementGreenThumb) || len(back) != 2 {
		t.Errorf("round trip lost members: %v", back)
	}
}

func TestAchievementSetClone(t *testing.T) {
	s := NewAchievementSet(AchievementFirstPlant)
	c := s.Clone()
	c.Add(AchievementGardenStarter)
	if s.Has(AchievementGardenStarter) {
		t.Error("clone mutation leaked into original set")
	}
}

func TestAPIResponseBuilder(t *testing.T) {
	resp := Error("something broke")
	if resp.Status != string(APIStatusError) || resp.Message != "something broke" {
		t.Errorf("unexpected error response: %+v", resp)
	}
	ok := Success(map[string]int{"count": 3})
	if ok.Status != string(APIStatusOK) || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}
}
