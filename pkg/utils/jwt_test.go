package utils

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	SetSecret("test-secret")

	token, err := GenerateToken("agent-1", []string{"agent", "admin"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "agent-1" {
		t.Errorf("UserID = %q, want agent-1", claims.UserID)
	}
	if !claims.HasRole("admin") || claims.HasRole("owner") {
		t.Errorf("unexpected roles %v", claims.Roles)
	}
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	SetSecret("one")
	token, _ := GenerateToken("agent-1", nil, time.Hour)

	SetSecret("two")
	if _, err := ValidateToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	SetSecret("test-secret")
	token, _ := GenerateToken("agent-1", nil, -time.Minute)

	if _, err := ValidateToken(token); err == nil {
		t.Fatal("expected expiry error")
	}
}
