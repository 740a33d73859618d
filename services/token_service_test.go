package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("secret")

	token, err := tokens.Issue("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	session, err := tokens.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if session.UserID != "u1" || session.Email != "u1@example.com" || !session.IsAuthenticated() {
		t.Fatalf("session = %+v", session)
	}
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	token, _ := NewTokenService("secret").Issue("u1", "")

	if _, err := NewTokenService("other").Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestTokenExpires(t *testing.T) {
	tokens := NewTokenService("secret")
	issuedAt := time.Now()
	tokens.now = func() time.Time { return issuedAt }
	token, _ := tokens.Issue("u1", "")

	tokens.now = func() time.Time { return issuedAt.Add(tokenLifetime + time.Minute) }
	if _, err := tokens.Parse(token); !errors.Is(err, ErrInvalidToken) || !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrInvalidToken wrapping jwt.ErrTokenExpired", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	if _, err := NewTokenService("secret").Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
