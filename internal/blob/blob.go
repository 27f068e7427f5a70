// Package blob abstracts object storage for raw, intermediate and final
// job artifacts.
package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the referenced object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrSigningUnsupported is returned by stores that cannot mint upload URLs.
var ErrSigningUnsupported = errors.New("presigned uploads not supported")

// Store reads and writes artifact bytes by key. Put is idempotent:
// writing the same key twice is safe and the returned ref is stable.
type Store interface {
	// Put stores data under key and returns a ref usable with Get.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get returns the bytes for ref, or ErrNotFound.
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Signer is implemented by stores that can mint a presigned upload URL
// so clients can write the raw artifact directly.
type Signer interface {
	SignPut(key, contentType string, ttl time.Duration) (string, error)
}

// SignPut returns a presigned upload URL when the store supports it.
func SignPut(s Store, key, contentType string, ttl time.Duration) (string, error) {
	signer, ok := s.(Signer)
	if !ok {
		return "", ErrSigningUnsupported
	}
	return signer.SignPut(key, contentType, ttl)
}
