package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func TestAuthenticate(t *testing.T) {
	secret := []byte("test-secret")
	signed := signTestToken(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	r := httptest.NewRequest("GET", "/api/transactions", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	claims, err := authenticate(r, secret)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if trusteeID(claims) != "user-1" {
		t.Errorf("trusteeID = %q", trusteeID(claims))
	}
}

func TestAuthenticateMissingHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/transactions", nil)
	if _, err := authenticate(r, []byte("test-secret")); err == nil {
		t.Fatal("expected error without Authorization header")
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	signed := signTestToken(t, []byte("other-secret"), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	r := httptest.NewRequest("GET", "/api/transactions", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	if _, err := authenticate(r, []byte("test-secret")); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	signed := signTestToken(t, secret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	r := httptest.NewRequest("GET", "/api/transactions", nil)
	r.Header.Set("Authorization", "Bearer "+signed)

	if _, err := authenticate(r, secret); err == nil {
		t.Fatal("expected error for expired token")
	}
}
