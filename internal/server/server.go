// Package server assembles and runs the intake HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/intakehq/intake/internal/analysis"
	"github.com/intakehq/intake/internal/api"
	"github.com/intakehq/intake/internal/auth"
	"github.com/intakehq/intake/internal/blob"
	"github.com/intakehq/intake/internal/config"
	"github.com/intakehq/intake/internal/engine"
	"github.com/intakehq/intake/internal/events"
	"github.com/intakehq/intake/internal/extract"
	"github.com/intakehq/intake/internal/job"
	"github.com/intakehq/intake/internal/server/endpoints"
	"github.com/intakehq/intake/internal/status"
	"github.com/intakehq/intake/internal/svcctx"
)

// Server is the main intake HTTP server. It owns the job store, the
// engine worker pool, and the completion event consumer.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	store      job.Store
	blobs      blob.Store
	engine     *engine.Engine
	runner     *engine.Runner
	consumer   *events.SQSConsumer
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server construction options.
type Config struct {
	// Config is the loaded application configuration.
	Config *config.Config
	// Logger is the structured logger to use.
	Logger *slog.Logger

	// Overrides for tests. When nil, each is built from Config.
	Store     job.Store
	Blobs     blob.Store
	Analysis  analysis.Backend
	Extractor extract.Backend
	Verifier  auth.Verifier
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg.Config,
		logger: cfg.Logger,
	}

	var err error
	s.store = cfg.Store
	if s.store == nil {
		s.store, err = job.NewSQLiteStore(cfg.Config.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open job store: %w", err)
		}
	}

	s.blobs = cfg.Blobs
	if s.blobs == nil {
		s.blobs, err = buildBlobStore(cfg.Config.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to build blob store: %w", err)
		}
	}

	analysisBackend := cfg.Analysis
	if analysisBackend == nil {
		analysisBackend, err = buildAnalysisBackend(cfg.Config.Analysis)
		if err != nil {
			return nil, fmt.Errorf("failed to build analysis backend: %w", err)
		}
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor, err = buildExtractor(cfg.Config.Extract)
		if err != nil {
			return nil, fmt.Errorf("failed to build extraction backend: %w", err)
		}
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier, err = buildVerifier(cfg.Config.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to build auth verifier: %w", err)
		}
	}

	s.engine, err = engine.New(engine.Config{
		Store:     s.store,
		Blobs:     s.blobs,
		Analysis:  analysisBackend,
		Extractor: extractor,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s.runner = engine.NewRunner(engine.RunnerConfig{
		Engine:    s.engine,
		Logger:    cfg.Logger,
		QueueSize: cfg.Config.Workers.QueueSize,
	})

	eventsCfg := cfg.Config.Events
	if eventsCfg.Mode == "sqs" || eventsCfg.Mode == "both" {
		s.consumer, err = events.NewSQSConsumer(events.SQSConfig{
			QueueURL: eventsCfg.QueueURL,
			Region:   eventsCfg.Region,
		}, s.engine, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
	}

	s.services = &svcctx.Services{
		Store:    s.store,
		Blobs:    s.blobs,
		Engine:   s.engine,
		Runner:   s.runner,
		Status:   status.NewService(s.store),
		Verifier: verifier,
		Config:   cfg.Config,
		Logger:   cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		WebhookToken: config.ResolveEnvVars(eventsCfg.WebhookToken),
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         cfg.Config.ListenAddr(),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func buildBlobStore(cfg config.StorageCfg) (blob.Store, error) {
	switch cfg.Mode {
	case "", "fs":
		return blob.NewFSStore(cfg.Root)
	case "s3":
		return blob.NewS3Store(blob.S3Config{
			Bucket:   cfg.Bucket,
			Region:   cfg.Region,
			Prefix:   cfg.Prefix,
			Endpoint: cfg.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}
}

func buildAnalysisBackend(cfg config.AnalysisCfg) (analysis.Backend, error) {
	switch cfg.Mode {
	case "", "http":
		return analysis.NewHTTPBackend(analysis.HTTPConfig{
			BaseURL: cfg.BaseURL,
			Token:   config.ResolveEnvVars(cfg.APIKey),
		})
	case "mock":
		return analysis.NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown analysis mode %q", cfg.Mode)
	}
}

func buildExtractor(cfg config.ExtractCfg) (extract.Backend, error) {
	switch cfg.Mode {
	case "", "openai":
		return extract.NewOpenAIBackend(extract.OpenAIConfig{
			APIKey:  config.ResolveEnvVars(cfg.APIKey),
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "mock":
		return extract.NewMockBackend(), nil
	default:
		return nil, fmt.Errorf("unknown extract mode %q", cfg.Mode)
	}
}

func buildVerifier(cfg config.AuthCfg) (auth.Verifier, error) {
	switch cfg.Mode {
	case "", "jwt":
		return auth.NewJWTVerifier(config.ResolveEnvVars(cfg.JWTSecret))
	case "static":
		return auth.StaticVerifier{OwnerID: cfg.StaticOwner}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// Start runs the server until the context is cancelled or an error
// occurs. Workers and the event consumer stop with the HTTP listener.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := s.cfg.Workers.Count
	s.runner.RunWorkers(runCtx, workers)

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("event consumer exited", "error", err)
			}
		}()
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("job store close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler (tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Runner returns the engine worker pool.
func (s *Server) Runner() *engine.Runner {
	return s.runner
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or engine aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.engine == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
