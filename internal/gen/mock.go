package gen

import (
	"context"
	"sync"
)

// MockClient implements Client for testing. It allows queueing
// responses, simulating errors, and tracking prompts for verification.
type MockClient struct {
	mu sync.Mutex

	responses []string
	next      int
	err       error
	available bool

	// Prompts records every prompt passed to Generate, in order.
	Prompts []string
}

// NewMockClient creates a MockClient that is available and echoes an
// empty response until responses are queued.
func NewMockClient() *MockClient {
	return &MockClient{available: true}
}

// WithResponses queues responses returned by successive Generate
// calls. The last response repeats once the queue is exhausted.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.next = 0
	return m
}

// WithError configures the error returned by Generate.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures what Available reports.
func (m *MockClient) WithAvailable(available bool) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Generate records the prompt and returns the next queued response or
// the configured error.
func (m *MockClient) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	resp := m.responses[m.next]
	if m.next < len(m.responses)-1 {
		m.next++
	}
	return resp, nil
}

// Available returns the configured availability.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns how many times Generate was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// Reset clears queued responses, errors, and call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = nil
	m.next = 0
	m.err = nil
	m.available = true
	m.Prompts = nil
}
