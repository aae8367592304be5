package testing

import (
	"context"
	"sync"

	"github.com/aristath/renewals/internal/modules/catalog"
)

// MockSource is a batch source that returns a preset batch or error
type MockSource struct {
	mu    sync.Mutex
	name  string
	batch catalog.Batch
	err   error
	calls int
}

// NewMockSource creates a mock source returning batch
func NewMockSource(name string, batch catalog.Batch) *MockSource {
	return &MockSource{name: name, batch: batch}
}

// SetBatch sets the batch to return
func (m *MockSource) SetBatch(batch catalog.Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch = batch
}

// SetError sets the error to return
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Load was invoked
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Name returns the source name
func (m *MockSource) Name() string {
	return m.name
}

// Load returns the configured batch or error
func (m *MockSource) Load(ctx context.Context) (catalog.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := ctx.Err(); err != nil {
		return catalog.Batch{}, err
	}
	if m.err != nil {
		return catalog.Batch{}, m.err
	}
	return m.batch, nil
}
