package auth

import (
	"testing"

	"github.com/lifelink/bloodcamp/internal/model"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("secret", 7, "city", model.RoleHospital, "City Hospital")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("expected user id 7, got %d", claims.UserID)
	}
	if claims.Username != "city" {
		t.Errorf("expected username 'city', got %q", claims.Username)
	}
	if claims.Role != model.RoleHospital {
		t.Errorf("expected hospital role, got %q", claims.Role)
	}
	if claims.Hospital != "City Hospital" {
		t.Errorf("expected hospital claim, got %q", claims.Hospital)
	}
	if claims.ID == "" {
		t.Error("expected non-empty JTI")
	}
	if claims.UID() != "7" {
		t.Errorf("expected UID '7', got %q", claims.UID())
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("secret", 1, "ravi", model.RoleCoordinator, "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Error("expected validation to fail with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken("secret", "not-a-token"); err == nil {
		t.Error("expected validation to fail for garbage input")
	}
}

func TestUniqueJTIs(t *testing.T) {
	t1, _ := GenerateToken("secret", 1, "ravi", model.RoleCoordinator, "")
	t2, _ := GenerateToken("secret", 1, "ravi", model.RoleCoordinator, "")

	c1, _ := ValidateToken("secret", t1)
	c2, _ := ValidateToken("secret", t2)
	if c1.ID == c2.ID {
		t.Error("expected distinct JTIs for separate tokens")
	}
}
