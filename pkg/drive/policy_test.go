package drive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusAttempt(calls *atomic.Int32, statuses ...int) AttemptFunc {
	return func(context.Context) (*http.Response, error) {
		n := int(calls.Add(1)) - 1
		status := statuses[len(statuses)-1]
		if n < len(statuses) {
			status = statuses[n]
		}

		return &http.Response{
			StatusCode: status,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil
	}
}

func TestRetryPolicy_RetriesConfiguredStatuses(t *testing.T) {
	var calls atomic.Int32

	p := retryNoSleep(4)
	resp, err := p.Execute(context.Background(), statusAttempt(&calls, 503, 429, 200))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryPolicy_NeverRetriesDocumentedErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusNotFound} {
		var calls atomic.Int32

		resp, err := retryNoSleep(5).Execute(context.Background(), statusAttempt(&calls, status))
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	}
}

func TestRetryPolicy_ExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32

	resp, err := retryNoSleep(3).Execute(context.Background(), statusAttempt(&calls, 502))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryPolicy_CustomStatuses(t *testing.T) {
	var calls atomic.Int32

	p := &RetryPolicy{MaxAttempts: 3, RetryStatuses: []int{http.StatusConflict}, sleepFunc: noopSleep}
	resp, err := p.Execute(context.Background(), statusAttempt(&calls, 409, 503))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryPolicy_TransportErrorsRetried(t *testing.T) {
	var calls atomic.Int32

	attempt := func(context.Context) (*http.Response, error) {
		calls.Add(1)
		return nil, &TransportError{Operation: "x", Err: errors.New("reset")}
	}

	_, err := retryNoSleep(3).Execute(context.Background(), attempt)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryPolicy_OtherErrorsNotRetried(t *testing.T) {
	for _, e := range []error{
		&AuthError{Err: errors.New("no creds")},
		&CanceledError{Err: context.Canceled},
		&TransportError{Err: ErrCircuitOpen},
		ErrBodyNotReplayable,
	} {
		var calls atomic.Int32

		attempt := func(context.Context) (*http.Response, error) {
			calls.Add(1)
			return nil, e
		}

		_, err := retryNoSleep(3).Execute(context.Background(), attempt)
		assert.ErrorIs(t, err, e)
		assert.Equal(t, int32(1), calls.Load(), "%v", e)
	}
}

func TestRetryPolicy_BackoffGrowsAndHonorsRetryAfter(t *testing.T) {
	var (
		calls  atomic.Int32
		sleeps []time.Duration
	)

	p := &RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		sleepFunc: func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		},
	}

	attempt := func(context.Context) (*http.Response, error) {
		n := calls.Add(1)
		resp := &http.Response{StatusCode: http.StatusServiceUnavailable, Header: make(http.Header), Body: http.NoBody}
		if n == 2 {
			resp.StatusCode = http.StatusTooManyRequests
			resp.Header.Set("Retry-After", "7")
		}

		return resp, nil
	}

	_, err := p.Execute(context.Background(), attempt)
	require.NoError(t, err)
	require.Len(t, sleeps, 3)

	// Randomized intervals stay within the exponential envelope.
	assert.LessOrEqual(t, sleeps[0], 150*time.Millisecond)
	assert.Equal(t, 7*time.Second, sleeps[1])
	assert.LessOrEqual(t, sleeps[2], time.Second+time.Second/2)
}

func TestRetryPolicy_DrainsRetriedResponses(t *testing.T) {
	var closed atomic.Int32

	attempt := func(context.Context) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Header:     make(http.Header),
			Body:       &closeCounter{Reader: strings.NewReader("retry me"), n: &closed},
		}, nil
	}

	resp, err := retryNoSleep(3).Execute(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, int32(2), closed.Load(), "final response stays open")
	resp.Body.Close()
}

type closeCounter struct {
	io.Reader
	n *atomic.Int32
}

func (c *closeCounter) Close() error {
	c.n.Add(1)
	return nil
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		status int
		header string
		want   time.Duration
	}{
		{http.StatusTooManyRequests, "3", 3 * time.Second},
		{http.StatusServiceUnavailable, "1", time.Second},
		{http.StatusBadGateway, "3", 0},
		{http.StatusTooManyRequests, "soon", 0},
		{http.StatusTooManyRequests, "-1", 0},
	}

	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.status, Header: make(http.Header)}
		resp.Header.Set("Retry-After", tt.header)
		assert.Equal(t, tt.want, retryAfter(resp), "%d %s", tt.status, tt.header)
	}
}

func TestBreakerPolicy_OpensAfterFailures(t *testing.T) {
	var calls atomic.Int32

	p := NewBreakerPolicy(BreakerConfig{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Hour})
	attempt := statusAttempt(&calls, 500)

	for range 2 {
		resp, err := p.Execute(context.Background(), attempt)
		require.NoError(t, err, "5xx responses are still returned")
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	}

	assert.Equal(t, "open", p.State())

	_, err := p.Execute(withOperation(context.Background(), OpExists), attempt)
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpExists, te.Operation)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "open breaker does not touch the network")
}

func TestBreakerPolicy_ClientErrorsDoNotTrip(t *testing.T) {
	var calls atomic.Int32

	p := NewBreakerPolicy(BreakerConfig{ConsecutiveFailures: 1})

	for range 3 {
		_, err := p.Execute(context.Background(), statusAttempt(&calls, 400))
		require.NoError(t, err)
	}

	_, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		return nil, &AuthError{Err: errors.New("x")}
	})
	require.Error(t, err)

	assert.Equal(t, "closed", p.State())
}

func TestBreakerPolicy_TransportErrorsTrip(t *testing.T) {
	p := NewBreakerPolicy(BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Hour})

	_, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		return nil, &TransportError{Err: errors.New("refused")}
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "open", p.State())
}

func TestRateLimitPolicy_CanceledWait(t *testing.T) {
	p := NewRateLimitPolicy(0.001, 1)

	var calls atomic.Int32

	_, err := p.Execute(context.Background(), statusAttempt(&calls, 200))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = p.Execute(ctx, statusAttempt(&calls, 200))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var ce *CanceledError
	require.ErrorAs(t, err, &ce, "a wait that would outlast the deadline is a cancellation")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestRateLimitPolicy_DeadlineThroughClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, WithPolicy(OpListDrives, NewRateLimitPolicy(0.001, 1)))

	_, err := client.ListDrives(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = client.ListDrives(ctx)

	var ce *CanceledError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, OpListDrives, ce.Operation)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChain_OrderAndNilSkipping(t *testing.T) {
	var order []string

	mark := func(name string) Policy {
		return PolicyFunc(func(ctx context.Context, attempt AttemptFunc) (*http.Response, error) {
			order = append(order, name)
			return attempt(ctx)
		})
	}

	var calls atomic.Int32

	p := Chain(mark("outer"), nil, mark("inner"))
	_, err := p.Execute(context.Background(), statusAttempt(&calls, 200))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestChain_RetryWrapsBreaker(t *testing.T) {
	var calls atomic.Int32

	p := Chain(
		retryNoSleep(5),
		NewBreakerPolicy(BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Hour}),
	)

	_, err := p.Execute(context.Background(), func(context.Context) (*http.Response, error) {
		calls.Add(1)
		return nil, &TransportError{Err: errors.New("down")}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryPolicy_AgainstServer(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "busy")

			return
		}

		jsonResponse(w, http.StatusOK, `{"exists":true}`)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, WithPolicy(OpExists, retryNoSleep(3)))

	exists, err := client.Exists(context.Background(), "c:/a.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(3), calls.Load())
}
