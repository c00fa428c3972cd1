package auth

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestJWTRoundtrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "admin@example.com", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "admin@example.com" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), "a@example.com", "staff")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestJWTGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Validate(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate(%q): want ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestJWTExpired(t *testing.T) {
	svc := NewJWTService("test-secret", -1)
	token, err := svc.Generate(uuid.New(), "a@example.com", "staff")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken for expired token, got %v", err)
	}
}
