package auth

import (
	"testing"
	"time"
)

func TestGenerateNodeToken(t *testing.T) {
	token, exp, err := GenerateNodeToken("test-secret", "branch-2", 2, time.Hour)
	if err != nil {
		t.Fatalf("GenerateNodeToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expected exp in future")
	}

	claims, err := VerifyNodeToken("test-secret", "Bearer "+token)
	if err != nil {
		t.Fatalf("VerifyNodeToken: %v", err)
	}
	if claims.Subject != "branch-2" {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.ClusterID != 2 {
		t.Fatalf("cluster id mismatch: %d", claims.ClusterID)
	}
}

func TestVerifyNodeTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateNodeToken("secret-a", "branch-1", 1, time.Hour)
	if err != nil {
		t.Fatalf("GenerateNodeToken: %v", err)
	}
	if _, err := VerifyNodeToken("secret-b", token); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}
}
