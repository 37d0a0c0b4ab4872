// Package store provides storage backends for Leafwise.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/izybotanic/leafwise/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists accounts and app data blobs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return WithDSN(dsn)
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateAccount(a models.Account) error {
	existing, err := s.GetAccount(a.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAccountExists
	}
	_, err = s.db.Exec(
		`INSERT INTO accounts (email, name, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		a.Email, a.Name, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		slog.Error("PostgresStore CreateAccount failed", "error", err, "email", a.Email)
		return fmt.Errorf("failed to insert account for %s: %w", a.Email, err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(email string) (*models.Account, error) {
	row := s.db.QueryRow(`SELECT email, name, password_hash, created_at FROM accounts WHERE email = $1`, email)
	var a models.Account
	err := row.Scan(&a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetAccount scan failed", "error", err, "email", email)
		return nil, fmt.Errorf("failed to scan account row: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) SaveAppData(userKey string, data models.UserAppData) error {
	blob, err := encodeAppData(data)
	if err != nil {
		slog.Error("PostgresStore SaveAppData encode failed", "error", err, "user", userKey)
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO app_data (user_key, data, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		userKey, string(blob), time.Now(),
	)
	if err != nil {
		slog.Error("PostgresStore SaveAppData failed", "error", err, "user", userKey)
		return fmt.Errorf("failed to upsert app data for %s: %w", userKey, err)
	}
	return nil
}

func (s *PostgresStore) LoadAppData(userKey string) (*models.UserAppData, error) {
	row := s.db.QueryRow(`SELECT data FROM app_data WHERE user_key = $1`, userKey)
	var blob string
	err := row.Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadAppData scan failed", "error", err, "user", userKey)
		return nil, fmt.Errorf("failed to scan app data row: %w", err)
	}
	return decodeAppData([]byte(blob))
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
