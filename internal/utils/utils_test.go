package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("password stored in plain text")
	}
	if !VerifyPassword(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}

func TestNewAccessTokenClaims(t *testing.T) {
	const secret = "unit-test-secret"

	tok, err := NewAccessToken(secret, 42, "buyer@example.com", true, 60)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if tok.Exp.IsZero() {
		t.Fatal("expiry not set")
	}

	parsed, err := jwt.Parse(tok.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: valid=%v err=%v", parsed != nil && parsed.Valid, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims type %T", parsed.Claims)
	}
	if sub, ok := claims["sub"].(float64); !ok || uint64(sub) != 42 {
		t.Fatalf("sub = %v", claims["sub"])
	}
	if claims["email"] != "buyer@example.com" {
		t.Fatalf("email = %v", claims["email"])
	}
	if claims["is_admin"] != true {
		t.Fatalf("is_admin = %v", claims["is_admin"])
	}
}

func TestNewAccessTokenWrongSecretRejected(t *testing.T) {
	tok, err := NewAccessToken("secret-a", 1, "x@example.com", false, 60)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := jwt.Parse(tok.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	}); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}
