package auth

import (
	"context"
	"fmt"
	"resumotube/m/v2/app/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var googleScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

type GoogleUser struct {
	ID    string
	Email string
	Name  string
}

type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*GoogleUser, error)
}

type GoogleOAuth struct {
	config *oauth2.Config
}

func NewGoogleOAuth(cfg config.Google) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       googleScopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL asks for offline access and always shows the consent screen.
func (g *GoogleOAuth) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the callback code for a token and reads the Google profile with it.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("Exchange: failed to exchange code: %w", err)
	}
	service, err := googleoauth.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("Exchange: failed to create oauth2 service: %w", err)
	}
	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("Exchange: failed to get userinfo: %w", err)
	}
	return &GoogleUser{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}
