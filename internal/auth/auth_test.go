package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	iss, err := NewIssuer("s3cret", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, exp, err := iss.Issue(42, "ada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry %s, got %s", now.Add(time.Hour), exp)
	}

	claims, err := iss.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, _ := claims.UserID()
	if id != 42 || claims.Username != "ada" {
		t.Fatalf("expected user 42/ada, got %d/%s", id, claims.Username)
	}
}

func TestVerify_Expired(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	iss, _ := NewIssuer("s3cret", time.Minute, func() time.Time { return clock })

	token, _, err := iss.Issue(1, "ada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock = now.Add(2 * time.Minute)
	if _, err := iss.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	a, _ := NewIssuer("one", time.Hour, nil)
	b, _ := NewIssuer("two", time.Hour, nil)

	token, _, err := a.Issue(1, "ada")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := a.Verify(token + "x"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Hour, nil); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err := CheckPassword(hash, "correct horse")
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, err = CheckPassword(hash, "wrong horse")
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}
