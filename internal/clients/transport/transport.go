// Package transport holds the HTTP plumbing shared by the job API clients:
// pacing, retries with exponential backoff and status handling.
package transport

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %v, body: %v", e.StatusCode, e.Body)
}

var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// Backoff is the first delay, doubled after every failed attempt.
	Backoff time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Retries: 3, Backoff: 500 * time.Millisecond}

// Transport sends requests through a rate limiter and retries transient failures.
type Transport struct {
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
	retry       RetryPolicy
	logger      *log.Entry
}

func New(timeout time.Duration, logger *log.Entry) *Transport {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Transport{
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryPolicy,
		logger:     logger,
	}
}

func (t *Transport) SetHTTPClient(client HTTPClient) {
	t.httpClient = client
}

// SetMinInterval allows one request per interval, zero disables pacing.
func (t *Transport) SetMinInterval(interval time.Duration) {
	if interval <= 0 {
		t.rateLimiter = nil
		return
	}
	t.rateLimiter = rate.NewLimiter(rate.Every(interval), 1)
}

func (t *Transport) SetRetryPolicy(policy RetryPolicy) {
	if policy.Retries < 0 {
		policy.Retries = 0
	}
	t.retry = policy
}

// Send builds a fresh request for every attempt and returns the body of the
// first 200 response.
func (t *Transport) Send(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {

	var body []byte
	var err error

	_, _ = lo.AttemptWhile(t.retry.Retries+1, func(attempt int) (error, bool) {
		if attempt > 0 {
			delay := t.retry.Backoff * time.Duration(1<<(attempt-1))
			t.logger.Warnf("retrying request in %v (attempt %d): %v", delay, attempt+1, err)
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				err = sleepErr
				return err, false
			}
		}
		body, err = t.send(ctx, build)
		return err, ctx.Err() == nil && isRetryable(err)
	})

	return body, err
}

func (t *Transport) send(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {

	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := build(ctx)
	if err != nil {
		return nil, permanentError{fmt.Errorf("error creating request: %w", err)}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	return handleResponse(resp)
}

func handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return body, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var permanent permanentError
	if errors.As(err, &permanent) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, retry := retryableStatuses[statusErr.StatusCode]
		return retry
	}
	// transport level failures
	return true
}

type permanentError struct {
	error
}

func (e permanentError) Unwrap() error {
	return e.error
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
