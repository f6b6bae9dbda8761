package ai

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// RetryPolicy retries outbound model calls with exponential backoff.
// Attempts <= 1 means a single try.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns a single-attempt policy with backoff settings
// ready for when Attempts is raised.
func DefaultRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		Attempts:     attempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts
// are exhausted or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err == nil {
				err = ctxErr
			}
			return err
		}

		err = op(ctx)
		if err == nil || attempt == attempts || !isRetryable(err) {
			return err
		}

		// full jitter
		wait := time.Duration(rand.Int63n(int64(delay) + 1))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return err
}

// isRetryable rejects cancellation, empty successful responses and client
// errors other than 429.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, errEmptyEmbedding) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
