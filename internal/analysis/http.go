package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// HTTPConfig configures the HTTP analysis backend client.
type HTTPConfig struct {
	BaseURL    string
	Token      string        // optional bearer token
	Timeout    time.Duration // per-request timeout (default 30s)
	MaxRetries uint          // transient-failure retries (default 3)
	HTTPClient *http.Client  // optional (tests)
}

// HTTPBackend talks to an analysis service over HTTP.
type HTTPBackend struct {
	baseURL    string
	token      string
	maxRetries uint
	client     *http.Client
}

// NewHTTPBackend creates an HTTP analysis backend client.
func NewHTTPBackend(cfg HTTPConfig) (*HTTPBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPBackend{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		client:     client,
	}, nil
}

type startRequest struct {
	JobID     string `json:"job_id"`
	SourceRef string `json:"source_ref"`
}

type startResponse struct {
	CorrelationHandle string `json:"correlation_handle"`
}

// Start submits the analysis request. The job id is the idempotency
// key: resubmitting the same job returns the original handle.
func (b *HTTPBackend) Start(ctx context.Context, jobID, sourceRef string) (string, error) {
	body, err := json.Marshal(startRequest{JobID: jobID, SourceRef: sourceRef})
	if err != nil {
		return "", fmt.Errorf("marshal start request: %w", err)
	}

	var handle string
	err = retry.Do(
		func() error {
			h, err := b.start(ctx, body)
			if err != nil {
				return err
			}
			handle = h
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(b.maxRetries),
		retry.Delay(500*time.Millisecond),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("start analysis for job %s: %w", jobID, err)
	}
	return handle, nil
}

func (b *HTTPBackend) start(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/analyses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &transientError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", &transientError{fmt.Errorf("analysis backend returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("analysis backend returned %d: %s", resp.StatusCode, data)
	}

	var sr startResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode start response: %w", err)
	}
	if sr.CorrelationHandle == "" {
		return "", fmt.Errorf("analysis backend returned empty correlation handle")
	}
	return sr.CorrelationHandle, nil
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	_, ok := err.(*transientError)
	return ok
}
