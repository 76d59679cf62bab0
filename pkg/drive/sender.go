package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxDrain bounds how much of a discarded body is read so the connection can
// be reused.
const maxDrain = 64 << 10

// send applies defaults and interceptors, then executes req under the
// operation's policy. The caller owns the returned response body.
func (c *Client) send(ctx context.Context, op Operation, req *Request) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CanceledError{Operation: op.name, Err: err}
	}

	c.applyDefaults(req)

	for _, ic := range c.interceptors {
		if err := ic(ctx, op, req); err != nil {
			return nil, fmt.Errorf("drive: %s: interceptor: %w", op.name, err)
		}
	}

	c.logger.Info("sending request",
		slog.String("operation", op.name),
		slog.String("method", req.Method),
		slog.String("path", req.Path),
	)

	ctx = withOperation(ctx, op.name)

	var attempts int
	attempt := func(ctx context.Context) (*http.Response, error) {
		n := attempts
		attempts++

		return c.attempt(ctx, op, req, n)
	}

	var (
		resp *http.Response
		err  error
	)

	if p := c.policyFor(op); p != nil {
		resp, err = p.Execute(ctx, attempt)
	} else {
		resp, err = attempt(ctx)
	}

	if err != nil {
		if resp != nil {
			drainAndClose(resp.Body)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			var ce *CanceledError
			if !errors.As(err, &ce) {
				err = &CanceledError{Operation: op.name, Err: ctxErr}
			}
		}

		c.logger.Error("request failed",
			slog.String("operation", op.name),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	c.logger.Debug("request completed",
		slog.String("operation", op.name),
		slog.Int("status", resp.StatusCode),
		slog.Int("attempts", attempts),
	)

	return resp, nil
}

// applyDefaults adds the API key, User-Agent and api-version unless the
// request already carries them.
func (c *Client) applyDefaults(req *Request) {
	if c.apiKey != "" && req.Header.Get(c.apiKeyHeader) == "" {
		req.Header.Set(c.apiKeyHeader, c.apiKey)
	}

	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.apiVersion != "" {
		if _, ok := req.Query("api-version"); !ok {
			req.SetQuery("api-version", c.apiVersion)
		}
	}
}

// attempt performs one request with no retry. The token is fetched before
// the body is materialized so an auth failure never leaves a body writer
// running.
func (c *Client) attempt(ctx context.Context, op Operation, req *Request, n int) (*http.Response, error) {
	var bearer string

	if c.token != nil {
		tok, err := c.token.Token()
		if err != nil {
			return nil, &AuthError{Operation: op.name, Err: err}
		}

		bearer = "Bearer " + tok
	}

	hreq, err := req.materialize(ctx, c.baseURL, n)
	if err != nil {
		return nil, err
	}

	if bearer != "" {
		hreq.Header.Set("Authorization", bearer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(hreq)
	c.metrics.observe(op.name, resp, err, time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &CanceledError{Operation: op.name, Err: ctxErr}
		}

		return nil, &TransportError{Operation: op.name, Err: err}
	}

	return resp, nil
}

// drainAndClose discards up to maxDrain bytes and closes body.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrain))
	body.Close()
}
