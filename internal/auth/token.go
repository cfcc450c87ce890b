// Package auth manages the cached login token the client attaches to API
// calls. Tokens are obtained with an explicit login and cached on disk; the
// client only inspects claims to know when the token has gone stale, it never
// holds the signing secret.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNoToken means no cached token exists; the user must log in.
var ErrNoToken = errors.New("not logged in")

// ErrTokenExpired means the cached token's exp claim has passed.
var ErrTokenExpired = errors.New("login token expired")

// FileTokenSource caches a bearer token in a file and serves it to the
// remote client.
type FileTokenSource struct {
	path string

	mu     sync.Mutex
	token  string
	expiry time.Time
	loaded bool
}

// NewFileTokenSource uses path as the token cache file.
func NewFileTokenSource(path string) *FileTokenSource {
	return &FileTokenSource{path: path}
}

// Token returns the cached token, loading it from disk on first use.
// Returns ErrNoToken when missing and ErrTokenExpired when stale.
func (s *FileTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(); err != nil {
			return "", err
		}
	}
	if s.token == "" {
		return "", ErrNoToken
	}
	if !s.expiry.IsZero() && time.Now().After(s.expiry) {
		return "", ErrTokenExpired
	}
	return s.token, nil
}

// Save stores a freshly issued token, replacing any cached one.
func (s *FileTokenSource) Save(token string) error {
	expiry, err := tokenExpiry(token)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.token = token
	s.expiry = expiry
	s.loaded = true
	return nil
}

// Clear forgets the cached token (logout).
func (s *FileTokenSource) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expiry = time.Time{}
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileTokenSource) loadLocked() error {
	s.loaded = true
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	token := strings.TrimSpace(string(data))
	expiry, err := tokenExpiry(token)
	if err != nil {
		// Unreadable cache; treat as logged out rather than failing calls.
		return nil
	}
	s.token = token
	s.expiry = expiry
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature. A token
// with no exp claim never expires client-side; the server still rejects it
// when stale.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
