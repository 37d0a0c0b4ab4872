// Package store provides storage backends for Leafwise.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/izybotanic/leafwise/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists accounts and app data blobs in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateAccount(a models.Account) error {
	existing, err := s.GetAccount(a.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAccountExists
	}
	_, err = s.db.Exec(
		`INSERT INTO accounts (email, name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		a.Email, a.Name, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		slog.Error("SQLiteStore CreateAccount failed", "error", err, "email", a.Email)
		return fmt.Errorf("failed to insert account for %s: %w", a.Email, err)
	}
	slog.Debug("SQLiteStore CreateAccount succeeded", "email", a.Email)
	return nil
}

func (s *SQLiteStore) GetAccount(email string) (*models.Account, error) {
	row := s.db.QueryRow(`SELECT email, name, password_hash, created_at FROM accounts WHERE email = ?`, email)
	var a models.Account
	err := row.Scan(&a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetAccount scan failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to scan account row: %w", err)
	}
	return &a, nil
}

func (s *SQLiteStore) SaveAppData(userKey string, data models.UserAppData) error {
	blob, err := encodeAppData(data)
	if err != nil {
		slog.Error("SQLiteStore SaveAppData encode failed", "error", err, "user", userKey)
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO app_data (user_key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userKey, string(blob), time.Now(),
	)
	if err != nil {
		slog.Error("SQLiteStore SaveAppData failed", "error", err, "user", userKey)
		return fmt.Errorf("failed to upsert app data for %s: %w", userKey, err)
	}
	slog.Debug("SQLiteStore SaveAppData succeeded", "user", userKey, "plants", len(data.Plants))
	return nil
}

func (s *SQLiteStore) LoadAppData(userKey string) (*models.UserAppData, error) {
	row := s.db.QueryRow(`SELECT data FROM app_data WHERE user_key = ?`, userKey)
	var blob string
	err := row.Scan(&blob)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadAppData not found", "user", userKey)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadAppData scan failed", "error", err, "user", userKey)
		return nil, fmt.Errorf("failed to scan app data row: %w", err)
	}
	return decodeAppData([]byte(blob))
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
