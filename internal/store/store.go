// Package store provides storage backends for Leafwise.
//
// It persists login accounts and one UserAppData blob per user. An
// in-memory store backs tests and ephemeral sessions; SQLite is the
// default durable backend and PostgreSQL is available for hosted
// deployments.
package store

import (
	"sync"

	"github.com/izybotanic/leafwise/internal/models"
)

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string: a file path for SQLite, a
	// connection URL for PostgreSQL.
	DSN string
}

// Option configures store options.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// Store is the persistence contract the rest of the application depends
// on. Absent records return nil, not an error, so callers can treat
// "never saved" as first login.
type Store interface {
	CreateAccount(a models.Account) error
	GetAccount(email string) (*models.Account, error)

	SaveAppData(userKey string, data models.UserAppData) error
	LoadAppData(userKey string) (*models.UserAppData, error)

	Close() error
}

// InMemoryStore is a map-backed Store for tests and single-run sessions.
type InMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	appData  map[string][]byte
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[string]models.Account),
		appData:  make(map[string][]byte),
	}
}

func (s *InMemoryStore) CreateAccount(a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.Email]; exists {
		return ErrAccountExists
	}
	s.accounts[a.Email] = a
	return nil
}

func (s *InMemoryStore) GetAccount(email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[email]
	if !ok {
		return nil, nil
	}
	out := a
	return &out, nil
}

func (s *InMemoryStore) SaveAppData(userKey string, data models.UserAppData) error {
	blob, err := encodeAppData(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appData[userKey] = blob
	return nil
}

func (s *InMemoryStore) LoadAppData(userKey string) (*models.UserAppData, error) {
	s.mu.RLock()
	blob, ok := s.appData[userKey]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeAppData(blob)
}

func (s *InMemoryStore) Close() error {
	return nil
}
