package util

import (
	"context"
	"net/http"
	"time"

	"gopkg.in/cenkalti/backoff.v1"
)

// Retry runs op with exponential backoff until it succeeds, returns a non-retryable
// error, the context is done or maxElapsed passes.
func Retry(ctx context.Context, maxElapsed time.Duration, op func() (retryable bool, err error)) error {
	var permanent error
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	err := backoff.Retry(func() error {
		retryable, err := op()
		if err == nil {
			return nil
		}
		if !retryable || ctx.Err() != nil {
			permanent = err
			return nil
		}
		return err
	}, b)
	if permanent != nil {
		return permanent
	}
	return err
}

// RetryableStatus reports whether an HTTP status is worth retrying.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
