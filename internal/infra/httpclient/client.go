// Package httpclient wraps outbound gateway calls with bounded
// exponential-backoff retry. Non-2xx statuses and transport errors are
// retryable except 4xx client errors (other than 429), which fail fast.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wellness-companion/internal/infra/metrics"
)

// Policy is an explicit retry policy: attempts beyond the first are delayed
// by BaseDelay doubled per retry, capped at MaxDelay. No jitter; exact
// doubling keeps the schedule reproducible.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

// Delay returns the sleep before retry number retry (0-indexed).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= p.MaxDelay || d <= 0 {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// StatusError is a non-2xx response collapsed into an error. Message holds
// the server-supplied {"error": ...} body text when present.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether the status is transient. Client errors are not,
// except 429.
func (e *StatusError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode < 400 || e.StatusCode > 499
}

// RequestFunc builds a fresh request for one attempt. Bodies must be rebuilt
// per attempt; a consumed reader cannot be resent.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// SleepFunc suspends between attempts. Injected so tests run without timers.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Client struct {
	http   *http.Client
	policy Policy
	sleep  SleepFunc
}

func New(hc *http.Client, policy Policy) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{http: hc, policy: policy, sleep: contextSleep}
}

// Do executes the request with the client's retry policy. A 2xx response is
// returned immediately with its body intact; every other outcome either fails
// fast (non-429 client error) or is retried until the policy is exhausted,
// after which the last observed error is returned.
func (c *Client) Do(ctx context.Context, newReq RequestFunc) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return resp, nil
		default:
			se := &StatusError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
			resp.Body.Close()
			if !se.Retryable() {
				return nil, se
			}
			lastErr = se
		}
		if attempt >= c.policy.MaxRetries {
			return nil, lastErr
		}
		if err := c.sleep(ctx, c.policy.Delay(attempt)); err != nil {
			return nil, err
		}
		metrics.IncRequestRetries()
	}
}

// readErrorMessage extracts {"error": "..."} from an error body, best-effort.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	return payload.Error
}
