package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueParseRoundTrip(t *testing.T) {
	s := Service{Secret: "0123456789abcdef", Issuer: "test", TTL: time.Hour}
	token, issued, err := s.Issue(42, PurposeSession)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := s.Parse(token, PurposeSession)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id, _ := claims.UserID(); id != 42 {
		t.Fatalf("expected subject 42, got %d", id)
	}
	if claims.ID != issued.ID || claims.ID == "" {
		t.Fatalf("jti mismatch %q vs %q", claims.ID, issued.ID)
	}
}

func TestParseRejectsWrongPurpose(t *testing.T) {
	s := Service{Secret: "0123456789abcdef"}
	token, _, err := s.Issue(1, PurposeChallenge)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = s.Parse(token, PurposeSession)
	var ue UnauthorizedError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Service{Secret: "0123456789abcdef", TTL: time.Minute, Now: func() time.Time { return now }}
	token, _, err := s.Issue(1, PurposeSession)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	s.Now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := s.Parse(token, PurposeSession); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestParseRejectsOtherSecret(t *testing.T) {
	token, _, _ := Service{Secret: "0123456789abcdef"}.Issue(1, PurposeSession)
	if _, err := (Service{Secret: "fedcba9876543210"}).Parse(token, PurposeSession); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc"); !ok || tok != "abc" {
		t.Fatalf("unexpected %q %v", tok, ok)
	}
	if _, ok := BearerToken("Basic abc"); ok {
		t.Fatalf("basic accepted")
	}
}
