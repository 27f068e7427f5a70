// Package auth extracts an owning identity from request credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrUnauthenticated indicates the credential is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// Verifier turns a bearer credential into a stable owner id.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// JWTVerifier verifies HS256-signed tokens and yields the sub claim.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier for the given shared secret.
func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (string, error) {
	token, err := jwt.Parse(credential,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	return sub, nil
}

// StaticVerifier maps every credential to a fixed owner. Local
// development only.
type StaticVerifier struct {
	OwnerID string
}

func (v StaticVerifier) Verify(context.Context, string) (string, error) {
	if v.OwnerID == "" {
		return "", ErrUnauthenticated
	}
	return v.OwnerID, nil
}

// FromRequest extracts the bearer credential from an HTTP request and
// verifies it.
func FromRequest(r *http.Request, v Verifier) (string, error) {
	header := r.Header.Get("Authorization")
	credential, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || credential == "" {
		return "", fmt.Errorf("%w: missing bearer credential", ErrUnauthenticated)
	}
	return v.Verify(r.Context(), credential)
}
