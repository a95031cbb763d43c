package alerts

import (
	"context"
	"sync"
)

// MockNotifier records alerts instead of sending them.
type MockNotifier struct {
	Notifier

	mu       sync.Mutex
	Messages []string
	Down     []string
}

func (m *MockNotifier) Alert(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, message)
	return nil
}

func (m *MockNotifier) ServiceDown(ctx context.Context, system string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Down = append(m.Down, system)
}

func (m *MockNotifier) DownSystems() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Down...)
}
