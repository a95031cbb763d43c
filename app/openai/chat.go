// https://platform.openai.com/docs/api-reference/chat/create
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/payments"
	"resumotube/m/v2/app/util"
	"time"

	log "github.com/sirupsen/logrus"
)

// https://openai.com/api/pricing
// Prices are per token.
const (
	// gpt-4o-mini
	CHAT_GPT4O_MINI_INPUT_PRICE  = 0.15 / 1000000
	CHAT_GPT4O_MINI_OUTPUT_PRICE = 0.6 / 1000000

	// gpt-4o
	CHAT_GPT4O_INPUT_PRICE  = 2.5 / 1000000
	CHAT_GPT4O_OUTPUT_PRICE = 10.0 / 1000000
)

// ErrEmptyCompletion is returned when OpenAI answers without any choice.
var ErrEmptyCompletion = errors.New("empty completion")

// ChatComplete returns the content of the first choice. Rate limits and server errors are retried.
func (a *API) ChatComplete(ctx context.Context, completion models.ChatCompletion) (string, error) {
	timeNow := time.Now()
	if completion.Model == "" {
		completion.Model = string(models.ChatGpt4oMini)
	}
	billedTo := completion.User
	if completion.User == "" {
		// openai only sees the account id, the email stays in our billing logs
		if user, ok := ctx.Value(models.UserContext{}).(models.AuthUser); ok {
			completion.User = user.UserID
			billedTo = user.Email
		}
	}

	usage := models.CostAndUsage{
		Engine:             models.Engine(completion.Model),
		PricePerInputUnit:  PricePerInputToken(models.Engine(completion.Model)),
		PricePerOutputUnit: PricePerOutputToken(models.Engine(completion.Model)),
		User:               billedTo,
	}

	body, err := json.Marshal(completion)
	if err != nil {
		return "", fmt.Errorf("ChatComplete: failed to marshal request: %w", err)
	}

	var response models.ChatResponse
	statusCode := 0
	err = util.Retry(ctx, a.retryMaxElapsed, func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"chat/completions", bytes.NewReader(body))
		if err != nil {
			return false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.authToken)

		resp, err := a.client.Do(req)
		if err != nil {
			log.Warnf("ChatComplete: request failed, will retry: %v", err)
			return true, err
		}
		defer resp.Body.Close()
		statusCode = resp.StatusCode

		if resp.StatusCode != http.StatusOK {
			var errorResponse models.ErrorResponse
			_ = json.NewDecoder(resp.Body).Decode(&errorResponse)
			err := fmt.Errorf("ChatComplete: %s: %s", resp.Status, errorResponse.Error.Message)
			if util.RetryableStatus(resp.StatusCode) {
				log.Warnf("%v, will retry", err)
				return true, err
			}
			return false, err
		}

		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			if err == io.EOF {
				return false, errors.New("ChatComplete: empty response")
			}
			return false, fmt.Errorf("ChatComplete: failed to decode response: %w", err)
		}
		return false, nil
	})
	config.CONFIG.DataDogClient.Timing("openai.chat_complete.latency", time.Since(timeNow), []string{fmt.Sprintf("status:%d", statusCode), "model:" + completion.Model}, 1)
	if err != nil {
		return "", err
	}

	usage.Usage = response.Usage
	payments.Bill(ctx, usage)
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("ChatComplete: %w", ErrEmptyCompletion)
	}
	return response.Choices[0].Message.Content, nil
}

func PricePerInputToken(model models.Engine) float64 {
	switch model {
	case models.ChatGpt4o:
		return CHAT_GPT4O_INPUT_PRICE
	default:
		return CHAT_GPT4O_MINI_INPUT_PRICE
	}
}

func PricePerOutputToken(model models.Engine) float64 {
	switch model {
	case models.ChatGpt4o:
		return CHAT_GPT4O_OUTPUT_PRICE
	default:
		return CHAT_GPT4O_MINI_OUTPUT_PRICE
	}
}
