package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseJWT(t *testing.T) {
	secret := []byte("test_secret")
	dept := int64(3)
	tok, err := GenerateJWT(secret, time.Minute, 42, "SUPERVISOR", &dept)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseJWT(secret, tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	uid, err := claims.UserID()
	if err != nil || uid != 42 {
		t.Fatalf("expected user 42, got %d (%v)", uid, err)
	}
	if claims.Role != "SUPERVISOR" || claims.DepartmentID == nil || *claims.DepartmentID != 3 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	tok, _ := GenerateJWT([]byte("a"), time.Minute, 1, "ADMIN", nil)
	if _, err := ParseJWT([]byte("b"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseJWT_Expired(t *testing.T) {
	tok, _ := GenerateJWT([]byte("a"), -time.Minute, 1, "ADMIN", nil)
	if _, err := ParseJWT([]byte("a"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestParseJWT_RejectsNoneAlg(t *testing.T) {
	claims := jwt.MapClaims{"sub": "1", "exp": time.Now().Add(time.Minute).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseJWT([]byte("a"), tok); err == nil {
		t.Fatal("expected alg=none token to be rejected")
	}
}

func TestParseJWT_MissingSubject(t *testing.T) {
	claims := jwt.MapClaims{"role": "ADMIN", "exp": time.Now().Add(time.Minute).Unix()}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("a"))
	if _, err := ParseJWT([]byte("a"), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected missing subject rejection, got %v", err)
	}
}

func TestGenerateJWT_EmptySecret(t *testing.T) {
	if _, err := GenerateJWT(nil, time.Minute, 1, "ADMIN", nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
