package email

import (
	"context"
	"sync"
)

type SentEmail struct {
	To      string
	Subject string
	HTML    string
}

// MockTransport records emails instead of sending them.
type MockTransport struct {
	mu   sync.Mutex
	Sent []SentEmail
	Err  error
}

func (t *MockTransport) Send(ctx context.Context, from, to, subject, html string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	t.Sent = append(t.Sent, SentEmail{To: to, Subject: subject, HTML: html})
	return "mock-email-id", nil
}

func (t *MockTransport) Emails() []SentEmail {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SentEmail(nil), t.Sent...)
}

// NewMockMailer returns a Mailer backed by a MockTransport.
func NewMockMailer(frontendURL string) (*Mailer, *MockTransport) {
	transport := &MockTransport{}
	return &Mailer{
		From:        "ResumoTube <noreply@resumotube.com.br>",
		FrontendURL: frontendURL,
		Transport:   transport,
	}, transport
}
