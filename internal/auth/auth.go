// Package auth handles account signup, login and bearer token issuance.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/izybotanic/leafwise/internal/models"
	"github.com/izybotanic/leafwise/internal/store"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Error variables for better error handling and testability
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password is too short")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoSecret           = errors.New("JWT secret not configured")
)

// Opts holds configuration options for the auth service.
type Opts struct {
	Secret   []byte
	TokenTTL time.Duration
}

// Option configures auth service options.
type Option func(*Opts)

// WithSecret sets the token signing secret.
func WithSecret(secret []byte) Option {
	return func(o *Opts) { o.Secret = secret }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TokenTTL = ttl }
}

// Service authenticates accounts backed by a store.
type Service struct {
	st     store.Store
	secret []byte
	ttl    time.Duration
}

// NewService creates an auth service over the given store.
func NewService(st store.Store, opts ...Option) (*Service, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Secret) == 0 {
		slog.Error("Auth service signing secret not configured")
		return nil, ErrNoSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &Service{st: st, secret: cfg.Secret, ttl: cfg.TokenTTL}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// Signup creates a new account and returns a signed token for it.
func (s *Service) Signup(email, name, password string) (string, *models.Account, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return "", nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return "", nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}
	account := models.Account{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.st.CreateAccount(account); err != nil {
		slog.Debug("Auth signup rejected", "email", email, "error", err)
		return "", nil, err
	}

	token, err := s.issueToken(email)
	if err != nil {
		return "", nil, err
	}
	slog.Info("Auth account created", "email", email)
	return token, &account, nil
}

// Login verifies the credentials and returns a signed token.
func (s *Service) Login(email, password string) (string, *models.Account, error) {
	email = normalizeEmail(email)
	account, err := s.st.GetAccount(email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		slog.Debug("Auth login rejected", "email", email)
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(email)
	if err != nil {
		return "", nil, err
	}
	slog.Debug("Auth login succeeded", "email", email)
	return token, account, nil
}

func (s *Service) issueToken(email string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the account email it was
// issued for.
func (s *Service) ParseToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
