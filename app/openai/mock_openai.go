package openai

import (
	"context"
	"resumotube/m/v2/app/models"
	"sync"
)

// MockAPI is a mock for the OpenAI API in the openai package.
type MockAPI struct {
	Completer

	mu          sync.Mutex
	Completions []models.ChatCompletion
	Response    string
	Err         error
	Unavailable bool
}

func (m *MockAPI) ChatComplete(ctx context.Context, completion models.ChatCompletion) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completions = append(m.Completions, completion)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockAPI) IsAvailable(ctx context.Context) bool {
	return !m.Unavailable
}

// Calls returns the number of ChatComplete calls so far.
func (m *MockAPI) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Completions)
}
