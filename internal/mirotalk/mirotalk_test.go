package mirotalk_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"colourstream/internal/mirotalk"
)

func TestIssueAndValidateToken(t *testing.T) {
	svc := mirotalk.NewTokenService("https://meet.example.com", "join-key", 24*time.Hour)

	token, err := svc.IssueToken("guest-1", "room-pass", false)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Username != "guest-1" {
		t.Fatalf("expected username guest-1, got %q", claims.Username)
	}
	if claims.Password != "room-pass" {
		t.Fatalf("expected room password in claims, got %q", claims.Password)
	}
	if claims.Presenter != "false" {
		t.Fatalf("expected presenter false, got %q", claims.Presenter)
	}
}

func TestPresenterFlag(t *testing.T) {
	svc := mirotalk.NewTokenService("https://meet.example.com", "join-key", time.Hour)

	token, err := svc.IssueToken("host", "room-pass", true)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Presenter != "true" {
		t.Fatalf("expected presenter true, got %q", claims.Presenter)
	}
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	issuer := mirotalk.NewTokenService("https://meet.example.com", "key-a", time.Hour)
	verifier := mirotalk.NewTokenService("https://meet.example.com", "key-b", time.Hour)

	token, err := issuer.IssueToken("guest", "pass", false)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if _, err := verifier.ValidateToken(token); !errors.Is(err, mirotalk.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJoinURL(t *testing.T) {
	svc := mirotalk.NewTokenService("https://meet.example.com/", "key", time.Hour)

	joinURL := svc.JoinURL("room-42", "tok", "Colourist")
	if !strings.HasPrefix(joinURL, "https://meet.example.com/join?") {
		t.Fatalf("unexpected join URL prefix: %q", joinURL)
	}

	parsed, err := url.Parse(joinURL)
	if err != nil {
		t.Fatalf("parse join URL: %v", err)
	}
	query := parsed.Query()
	if query.Get("room") != "room-42" {
		t.Fatalf("expected room query, got %q", query.Get("room"))
	}
	if query.Get("token") != "tok" {
		t.Fatalf("expected token query, got %q", query.Get("token"))
	}
	if query.Get("name") != "Colourist" {
		t.Fatalf("expected name query, got %q", query.Get("name"))
	}
}
