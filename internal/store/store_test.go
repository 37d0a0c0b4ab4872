package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/izybotanic/leafwise/internal/models"
)

func sampleAppData() models.UserAppData {
	return models.UserAppData{
		Plants: []models.Plant{
			{
				ID:       "p1",
				Image:    "img",
				Location: models.LocationIndoor,
				Analysis: models.PlantDiagnosis{
					PopularName: "Monstera",
					IsHealthy:   true,
					CareSchedule: models.CareSchedule{
						WateringFrequency: 7,
					},
				},
				LastCare: models.LastCare{Watering: time.Now(), Fertilizing: time.Now()},
			},
		},
		UnlockedAchievements: models.NewAchievementSet(models.AchievementFirstPlant),
		ChatHistory: []models.ChatMessage{
			{ID: "init", Role: models.ChatRoleModel, Text: "Hello!"},
		},
		UserProfile: models.UserProfile{Name: "Ana", GrowthPoints: 50, Level: 1},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	account := models.Account{Email: "ana@example.com", Name: "Ana", PasswordHash: "$2a$10$hash", CreatedAt: time.Now()}
	if err := s.CreateAccount(account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := s.CreateAccount(account); err == nil {
		t.Error("expected duplicate account creation to fail")
	}

	got, err := s.GetAccount("ana@example.com")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got == nil || got.Name != "Ana" || got.PasswordHash != "$2a$10$hash" {
		t.Errorf("account not stored correctly: %+v", got)
	}

	missing, err := s.GetAccount("nobody@example.com")
	if err != nil {
		t.Fatalf("GetAccount for missing account errored: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing account")
	}

	if data, err := s.LoadAppData("ana@example.com"); err != nil || data != nil {
		t.Errorf("expected nil app data before first save, got %v, %v", data, err)
	}

	want := sampleAppData()
	if err := s.SaveAppData("ana@example.com", want); err != nil {
		t.Fatalf("SaveAppData failed: %v", err)
	}

	loaded, err := s.LoadAppData("ana@example.com")
	if err != nil {
		t.Fatalf("LoadAppData failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadAppData returned nil after save")
	}
	if len(loaded.Plants) != 1 || loaded.Plants[0].Analysis.PopularName != "Monstera" {
		t.Errorf("plants did not round trip: %+v", loaded.Plants)
	}
	if !loaded.UnlockedAchievements.Has(models.AchievementFirstPlant) {
		t.Error("achievements did not round trip")
	}
	if loaded.UserProfile.GrowthPoints != 50 {
		t.Errorf("profile did not round trip: %+v", loaded.UserProfile)
	}

	// Save is an upsert: a second save replaces the blob.
	want.UserProfile.GrowthPoints = 75
	if err := s.SaveAppData("ana@example.com", want); err != nil {
		t.Fatalf("second SaveAppData failed: %v", err)
	}
	loaded, err = s.LoadAppData("ana@example.com")
	if err != nil {
		t.Fatalf("LoadAppData after upsert failed: %v", err)
	}
	if loaded.UserProfile.GrowthPoints != 75 {
		t.Errorf("upsert did not replace blob: %+v", loaded.UserProfile)
	}
}

func TestInMemoryStore(t *testing.T) {
	exerciseStore(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "leafwise.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Error("expected error for missing DSN")
	}
}

func TestPostgresStore(t *testing.T) {
	// This test requires a running PostgreSQL instance.
	// Set the DATABASE_URL environment variable for the connection string.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	s, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer s.Close()
	s.db.Exec("DELETE FROM accounts")
	s.db.Exec("DELETE FROM app_data")
	exerciseStore(t, s)
}

func getenvOrSkip(t *testing.T, key string) string {
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
