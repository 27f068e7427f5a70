package extract

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/intakehq/intake/internal/forms"
)

// MockBackend is an in-memory Backend for tests.
type MockBackend struct {
	mu    sync.Mutex
	calls int

	// Response is returned by Extract. Defaults to an empty envelope.
	Response json.RawMessage
	// Err, when set, is returned instead.
	Err error
}

// NewMockBackend creates a mock extractor returning an empty envelope.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Response: json.RawMessage(`{"form_id":"mock_v1","responses":{}}`),
	}
}

func (m *MockBackend) Extract(_ context.Context, _ string, _ *forms.Schema) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

// Calls returns how many times Extract was invoked.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
