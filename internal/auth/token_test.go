package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "u1"}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestTokenMissing(t *testing.T) {
	s := NewFileTokenSource(filepath.Join(t.TempDir(), "token"))
	_, err := s.Token(context.Background())
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
}

func TestSaveThenTokenSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	issued := signedToken(t, time.Now().Add(time.Hour))

	s := NewFileTokenSource(path)
	if err := s.Save(issued); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh source reading the same file sees the token.
	fresh := NewFileTokenSource(path)
	got, err := fresh.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if got != issued {
		t.Error("reloaded token differs from saved one")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := NewFileTokenSource(filepath.Join(t.TempDir(), "token"))
	if err := s.Save(signedToken(t, time.Now().Add(-time.Minute))); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err := s.Token(context.Background())
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestClear(t *testing.T) {
	s := NewFileTokenSource(filepath.Join(t.TempDir(), "token"))
	if err := s.Save(signedToken(t, time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Errorf("err after Clear = %v, want ErrNoToken", err)
	}
}
