package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestValidateToken(t *testing.T) {
	tokenString := signToken(t, testSecret, &Claims{
		UserID: "cand-1",
		Role:   RoleCandidate,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})

	v := NewVerifier(testSecret)
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "cand-1" {
		t.Errorf("UserID = %q, want cand-1", claims.UserID)
	}
	if claims.Role != RoleCandidate {
		t.Errorf("Role = %q, want %q", claims.Role, RoleCandidate)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	tokenString := signToken(t, "other-secret", &Claims{UserID: "cand-1"})

	v := NewVerifier(testSecret)
	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for wrong signing secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	tokenString := signToken(t, testSecret, &Claims{
		UserID: "cand-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	v := NewVerifier(testSecret)
	if _, err := v.ValidateToken(tokenString); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateTokenEmpty(t *testing.T) {
	v := NewVerifier(testSecret)
	if _, err := v.ValidateToken(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/streams/interview", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	if got := TokenFromRequest(r); got != "abc123" {
		t.Errorf("header token = %q, want abc123", got)
	}

	r = httptest.NewRequest("GET", "/streams/interview?token=qp456", nil)
	if got := TokenFromRequest(r); got != "qp456" {
		t.Errorf("query token = %q, want qp456", got)
	}

	r = httptest.NewRequest("GET", "/streams/interview", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Errorf("missing token = %q, want empty", got)
	}
}
