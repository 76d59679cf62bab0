package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// AttemptFunc performs one send attempt.
type AttemptFunc func(ctx context.Context) (*http.Response, error)

// Policy decides how often and when an attempt runs. Implementations return
// either the final response or an error, never both, and must be safe for
// concurrent use.
type Policy interface {
	Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, attempt AttemptFunc) (*http.Response, error)

// Execute calls f.
func (f PolicyFunc) Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, error) {
	return f(ctx, attempt)
}

// Retry defaults.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
	DefaultMultiplier      = 2.0
)

// DefaultRetryStatuses are retried when RetryPolicy.RetryStatuses is nil.
// 400 and 500 are documented outcomes and never retried by default.
var DefaultRetryStatuses = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryPolicy retries transport failures and configured statuses with
// exponential backoff. Zero fields take the Default* values.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RetryStatuses   []int
	Logger          *slog.Logger

	// sleepFunc waits between attempts; tests replace it.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// Execute runs attempt until it succeeds, fails permanently or the attempt
// budget is spent. Retried responses are drained and closed.
func (p *RetryPolicy) Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, error) {
	b := p.newBackOff()
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	sleep := p.sleepFunc
	if sleep == nil {
		sleep = timeSleep
	}

	for n := 1; ; n++ {
		resp, err := attempt(ctx)

		retry, hint := p.retryable(resp, err)
		if !retry || n >= maxAttempts {
			return resp, err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return resp, err
		}

		if hint > wait {
			wait = hint
		}

		attrs := []any{
			slog.String("operation", operationFrom(ctx)),
			slog.Int("attempt", n),
			slog.Duration("backoff", wait),
		}

		if resp != nil {
			attrs = append(attrs, slog.Int("status", resp.StatusCode))
			drainAndClose(resp.Body)
		} else {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		p.logger().Warn("retrying request", attrs...)

		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

func (p *RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = orDuration(p.InitialInterval, DefaultInitialInterval)
	b.MaxInterval = orDuration(p.MaxInterval, DefaultMaxInterval)
	b.Multiplier = DefaultMultiplier
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}

	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// retryable reports whether an attempt outcome should be retried and any
// server-requested delay.
func (p *RetryPolicy) retryable(resp *http.Response, err error) (bool, time.Duration) {
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && !errors.Is(err, ErrCircuitOpen) {
			return true, 0
		}

		return false, 0
	}

	statuses := p.RetryStatuses
	if statuses == nil {
		statuses = DefaultRetryStatuses
	}

	if !slices.Contains(statuses, resp.StatusCode) {
		return false, 0
	}

	return true, retryAfter(resp)
}

func (p *RetryPolicy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}

// retryAfter parses a Retry-After header in seconds on 429 and 503.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0
	}

	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

func orDuration(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}

	return def
}

// timeSleep waits for d or until ctx is done.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Breaker defaults.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second
)

// BreakerConfig configures a BreakerPolicy.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a probe.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
	Logger           *slog.Logger
}

// errServerStatus marks a 5xx response so the breaker counts it.
var errServerStatus = errors.New("drive: server error status")

// BreakerPolicy stops sending after repeated transport failures or 5xx
// responses until the open timeout elapses.
type BreakerPolicy struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreakerPolicy creates a circuit breaker with its own state.
func NewBreakerPolicy(cfg BreakerConfig) *BreakerPolicy {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = DefaultBreakerFailures
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     orDuration(cfg.OpenTimeout, DefaultBreakerTimeout),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !(errors.Is(err, ErrTransport) || errors.Is(err, errServerStatus))
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &BreakerPolicy{cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the current breaker state name: closed, half-open or open.
func (p *BreakerPolicy) State() string {
	return p.cb.State().String()
}

// Execute runs attempt through the breaker.
func (p *BreakerPolicy) Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		resp, err := attempt(ctx)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}

		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &TransportError{
			Operation: operationFrom(ctx),
			Err:       fmt.Errorf("%w: %w", ErrCircuitOpen, err),
		}
	}

	resp, _ := out.(*http.Response)
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// RateLimitPolicy spaces attempts with a token bucket.
type RateLimitPolicy struct {
	limiter *rate.Limiter
}

// NewRateLimitPolicy allows perSecond attempts per second with the given
// burst. A burst below one is raised to one.
func NewRateLimitPolicy(perSecond float64, burst int) *RateLimitPolicy {
	if burst < 1 {
		burst = 1
	}

	return &RateLimitPolicy{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Execute waits for a token, then runs attempt.
func (p *RateLimitPolicy) Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CanceledError{Operation: operationFrom(ctx), Err: ctxErr}
		}

		// The wait would outlast the deadline.
		return nil, &CanceledError{
			Operation: operationFrom(ctx),
			Err:       fmt.Errorf("%w: rate limiter: %w", context.DeadlineExceeded, err),
		}
	}

	return attempt(ctx)
}

// Chain composes policies, outermost first. Nil entries are skipped.
func Chain(policies ...Policy) Policy {
	kept := make(chain, 0, len(policies))
	for _, p := range policies {
		if p != nil {
			kept = append(kept, p)
		}
	}

	return kept
}

type chain []Policy

func (c chain) Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, error) {
	next := attempt
	for i := len(c) - 1; i >= 0; i-- {
		p, inner := c[i], next
		next = func(ctx context.Context) (*http.Response, error) {
			return p.Execute(ctx, inner)
		}
	}

	return next(ctx)
}

type operationKey struct{}

func withOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// operationFrom returns the operation name the sender stored in ctx.
func operationFrom(ctx context.Context) string {
	name, _ := ctx.Value(operationKey{}).(string)
	return name
}
