// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/blob"
	"github.com/intakehq/intake/internal/config"
	"github.com/intakehq/intake/internal/engine"
	"github.com/intakehq/intake/internal/job"
	"github.com/intakehq/intake/internal/status"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store    job.Store
	Blobs    blob.Store
	Engine   *engine.Engine
	Runner   *engine.Runner
	Status   *status.Service
	Verifier auth.Verifier
	Config   *config.Config
	Logger   *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the job store from context.
func StoreFrom(ctx context.Context) job.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// BlobsFrom extracts the blob store from context.
func BlobsFrom(ctx context.Context) blob.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Blobs
	}
	return nil
}

// EngineFrom extracts the engine from context.
func EngineFrom(ctx context.Context) *engine.Engine {
	if s := ServicesFrom(ctx); s != nil {
		return s.Engine
	}
	return nil
}

// RunnerFrom extracts the worker pool from context.
func RunnerFrom(ctx context.Context) *engine.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.Runner
	}
	return nil
}

// StatusFrom extracts the status service from context.
func StatusFrom(ctx context.Context) *status.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Status
	}
	return nil
}

// VerifierFrom extracts the auth verifier from context.
func VerifierFrom(ctx context.Context) auth.Verifier {
	if s := ServicesFrom(ctx); s != nil {
		return s.Verifier
	}
	return nil
}

// ConfigFrom extracts the configuration from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
