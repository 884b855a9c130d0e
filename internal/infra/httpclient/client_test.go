package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// recordingSleeper captures requested delays instead of sleeping.
type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func newTestClient(policy Policy) (*Client, *recordingSleeper) {
	rs := &recordingSleeper{}
	c := New(&http.Client{}, policy)
	c.sleep = rs.sleep
	return c, rs
}

func scriptedServer(t *testing.T, script []int, attempts *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := *attempts
		*attempts++
		if i >= len(script) {
			i = len(script) - 1
		}
		code := script[i]
		if code >= 400 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
			return
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte("ok"))
	}))
}

func getFactory(url string) RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	attempts := 0
	srv := scriptedServer(t, []int{200}, &attempts)
	defer srv.Close()

	c, rs := newTestClient(DefaultPolicy())
	resp, err := c.Do(context.Background(), getFactory(srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
	if len(rs.delays) != 0 {
		t.Fatalf("slept %d times, want 0", len(rs.delays))
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	attempts := 0
	srv := scriptedServer(t, []int{500, 500, 500, 500, 200}, &attempts)
	defer srv.Close()

	policy := Policy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 4 * time.Second}
	c, rs := newTestClient(policy)
	resp, err := c.Do(context.Background(), getFactory(srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(rs.delays) != len(want) {
		t.Fatalf("slept %d times, want %d (%v)", len(rs.delays), len(want), rs.delays)
	}
	for i, d := range want {
		if rs.delays[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, rs.delays[i], d)
		}
	}
	if attempts != 5 {
		t.Fatalf("attempts = %d, want 5", attempts)
	}
}

func TestClientErrorFailsFast(t *testing.T) {
	attempts := 0
	srv := scriptedServer(t, []int{404}, &attempts)
	defer srv.Close()

	c, rs := newTestClient(DefaultPolicy())
	_, err := c.Do(context.Background(), getFactory(srv.URL))
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 StatusError", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (404 must not be retried)", attempts)
	}
	if len(rs.delays) != 0 {
		t.Fatalf("slept %d times, want 0", len(rs.delays))
	}
}

func TestRetryableStatusesExhaustPolicy(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
		attempts := 0
		srv := scriptedServer(t, []int{code}, &attempts)

		c, _ := newTestClient(Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
		_, err := c.Do(context.Background(), getFactory(srv.URL))
		srv.Close()

		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != code {
			t.Fatalf("code %d: err = %v, want StatusError", code, err)
		}
		if se.Message != "upstream unavailable" {
			t.Errorf("code %d: message = %q, want server-supplied message", code, se.Message)
		}
		if attempts != 4 {
			t.Errorf("code %d: attempts = %d, want 4 (1 + MaxRetries)", code, attempts)
		}
	}
}

func TestTransportErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // connection refused from here on

	c, rs := newTestClient(Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	_, err := c.Do(context.Background(), getFactory(url))
	if err == nil {
		t.Fatal("expected transport error")
	}
	if len(rs.delays) != 2 {
		t.Fatalf("slept %d times, want 2", len(rs.delays))
	}
}

func TestSleepCancellationStopsRetrying(t *testing.T) {
	attempts := 0
	srv := scriptedServer(t, []int{500}, &attempts)
	defer srv.Close()

	c, rs := newTestClient(DefaultPolicy())
	rs.err = context.Canceled
	_, err := c.Do(context.Background(), getFactory(srv.URL))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxRetries: 10, BaseDelay: 1000 * time.Millisecond, MaxDelay: 10 * time.Second}
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{20, 10 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.retry); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}
