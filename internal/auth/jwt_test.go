package auth

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/esn-portal/backend/internal/models"
)

func testUser(esnMember bool) *models.User {
	return &models.User{
		ID:        uuid.New(),
		Email:     "erasmus@esn.org",
		Role:      models.RoleMember,
		ESNMember: esnMember,
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 24)
	user := testUser(true)

	token, err := svc.Generate(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user id: got %s, want %s", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email: got %s", claims.Email)
	}
	if claims.Role != "member" {
		t.Errorf("role: got %s", claims.Role)
	}
	if !claims.ESNMember {
		t.Error("esn_member flag lost in round trip")
	}
}

func TestJWTNonMemberClaims(t *testing.T) {
	svc := NewJWTService("test-secret", 24)
	token, err := svc.Generate(testUser(false))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.ESNMember {
		t.Error("esn_member must be false for non-members")
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-one", 24).Generate(testUser(false))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService("secret-two", 24).Validate(token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestJWTTampered(t *testing.T) {
	svc := NewJWTService("test-secret", 24)
	token, err := svc.Generate(testUser(false))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + ".eyJlc25fbWVtYmVyIjp0cnVlfQ." + parts[2]
	if _, err := svc.Validate(tampered); err == nil {
		t.Fatal("expected validation failure for tampered payload")
	}

	if _, err := svc.Validate("not-a-token"); err == nil {
		t.Fatal("expected validation failure for garbage input")
	}
}
