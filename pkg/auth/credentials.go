// Package auth implements sign-up and log-in against the per-browser store.
//
// Credentials are kept exactly as the browser app kept them: three
// independent JSON-stringified entries, in clear text, overwritten on every
// sign-up. There is no hashing and no account model.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gabrielmiguelok/eventboard/pkg/logging"
	"github.com/gabrielmiguelok/eventboard/pkg/storage"
)

// Store keys.
const (
	KeyUsername = "username"
	KeyEmail    = "email"
	KeyPassword = "password"
)

// Common errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoCredentials means nobody signed up in this browser yet.
	ErrNoCredentials = errors.New("no stored credentials")
)

// Credentials are the values a sign-up persists.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// Service reads and writes credentials in a Store.
type Service struct {
	store  storage.Store
	logger logging.Logger
}

// NewService creates a credential service over store.
func NewService(store storage.Store, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Service{store: store, logger: logger}
}

// SignUp writes the three entries, unconditionally replacing prior values.
func (s *Service) SignUp(ctx context.Context, c Credentials) error {
	entries := []struct{ key, value string }{
		{KeyUsername, c.Username},
		{KeyEmail, c.Email},
		{KeyPassword, c.Password},
	}

	for _, e := range entries {
		encoded, err := json.Marshal(e.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.key, err)
		}
		if err := s.store.Set(ctx, e.key, string(encoded)); err != nil {
			return fmt.Errorf("store %s: %w", e.key, err)
		}
	}

	s.logger.Info("credentials stored", logging.String("username", c.Username))
	return nil
}

// LogIn compares email and password with the stored entries.
// A missing entry yields ErrNoCredentials wrapping storage.ErrKeyNotFound.
func (s *Service) LogIn(ctx context.Context, email, password string) error {
	storedEmail, err := s.read(ctx, KeyEmail)
	if err != nil {
		return err
	}
	storedPassword, err := s.read(ctx, KeyPassword)
	if err != nil {
		return err
	}

	if email != storedEmail || password != storedPassword {
		return ErrInvalidCredentials
	}

	s.logger.Info("login succeeded", logging.String("email", email))
	return nil
}

// read loads an entry and strips the quotes left by JSON stringification.
func (s *Service) read(ctx context.Context, key string) (string, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s: %w", ErrNoCredentials, key, err)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return strings.ReplaceAll(raw, `"`, ""), nil
}
