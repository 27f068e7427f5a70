package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}
	ctx := context.Background()

	t.Run("valid token yields subject", func(t *testing.T) {
		owner, err := v.Verify(ctx, signToken(t, "test-secret", "u1"))
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if owner != "u1" {
			t.Errorf("owner = %q, want u1", owner)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		_, err := v.Verify(ctx, signToken(t, "other-secret", "u1"))
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		_, err := v.Verify(ctx, token)
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("Verify() error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if _, err := v.Verify(ctx, token); err == nil {
			t.Error("expired token should be rejected")
		}
	})
}

func TestFromRequest(t *testing.T) {
	v := StaticVerifier{OwnerID: "dev"}

	t.Run("bearer credential", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer anything")
		owner, err := FromRequest(r, v)
		if err != nil {
			t.Fatalf("FromRequest() error = %v", err)
		}
		if owner != "dev" {
			t.Errorf("owner = %q, want dev", owner)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		if _, err := FromRequest(r, v); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("FromRequest() error = %v, want ErrUnauthenticated", err)
		}
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		if _, err := FromRequest(r, v); !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("FromRequest() error = %v, want ErrUnauthenticated", err)
		}
	})
}
