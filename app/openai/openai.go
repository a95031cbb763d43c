// package to connect to OpenAI API
package openai

import (
	"context"
	"net/http"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/payments"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	TIMEOUT           = 60 * time.Second
	RETRY_MAX_ELAPSED = 2 * time.Minute
	DEFAULT_ENDPOINT  = "https://api.openai.com/v1/"
)

// Completer is what the summaries service needs from OpenAI.
type Completer interface {
	ChatComplete(ctx context.Context, completion models.ChatCompletion) (string, error)
	IsAvailable(ctx context.Context) bool
}

// API is a type for OpenAI API
type API struct {
	authToken       string
	endpoint        string
	client          *http.Client
	retryMaxElapsed time.Duration
}

// NewAPI creates new OpenAI API
func NewAPI(cfg *config.Config) *API {
	endpoint := cfg.OpenAIAPIEndpoint
	if endpoint == "" {
		endpoint = DEFAULT_ENDPOINT
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &API{
		authToken: cfg.OpenAIAPIKey,
		endpoint:  endpoint,
		client: &http.Client{
			Timeout: TIMEOUT,
		},
		retryMaxElapsed: RETRY_MAX_ELAPSED,
	}
}

// IsAvailable checks whether OpenAI API is available
func (a *API) IsAvailable(ctx context.Context) bool {
	if a.authToken == "" {
		log.Errorf("PING: OpenAI API key is not set")
		return false
	}

	response, err := a.ChatComplete(ctx, models.ChatCompletion{
		Model:     string(models.ChatGpt4oMini),
		MaxTokens: 5,
		User:      payments.SystemUser,
		Messages: []models.Message{
			{
				Role:    "system",
				Content: "Reply only \"OK\" or \"Not OK\"",
			},
			{
				Role:    "user",
				Content: "test",
			},
		},
	})
	if err != nil {
		log.Errorf("PING: OpenAI API error: %+v", err)
		return false
	}

	log.Debugf("PING: OpenAI API response: %+v", response)
	return true
}
