package analysis

import (
	"context"
	"fmt"
	"sync"
)

// MockBackend is an in-memory Backend for tests. It mints one handle
// per job id, so repeated Start calls are idempotent like the real
// backend.
type MockBackend struct {
	mu      sync.Mutex
	handles map[string]string // jobID -> handle
	calls   int

	// Err, when set, is returned by Start.
	Err error
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{handles: make(map[string]string)}
}

func (m *MockBackend) Start(_ context.Context, jobID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if h, ok := m.handles[jobID]; ok {
		return h, nil
	}
	h := fmt.Sprintf("corr-%s-%d", jobID, len(m.handles)+1)
	m.handles[jobID] = h
	return h, nil
}

// Handle returns the handle minted for jobID, if any.
func (m *MockBackend) Handle(jobID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[jobID]
}

// Calls returns how many times Start was invoked.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
