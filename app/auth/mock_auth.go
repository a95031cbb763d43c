package auth

import (
	"context"
	"errors"
)

// MockOAuth is a Google OAuth provider for tests that accepts the codes in Users.
type MockOAuth struct {
	OAuthProvider
	Users map[string]*GoogleUser
}

func (m *MockOAuth) AuthURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *MockOAuth) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	if user, ok := m.Users[code]; ok {
		return user, nil
	}
	return nil, errors.New("invalid_grant")
}
