package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// maxErrorBody caps how much of an error or unexpected body is captured.
const maxErrorBody = 64 << 10

const problemMediaType = "application/problem+json"

// decodeValue classifies resp for an operation that returns T. The body is
// always closed. A non-nil error means a documented success body was
// malformed or could not be read.
func decodeValue[T any](op Operation, resp *http.Response) (Result[T], error) {
	defer drainAndClose(resp.Body)

	switch op.outcome.lookup(resp.StatusCode) {
	case shapeValue:
		var v T

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if ce := canceledRead(op, resp, err); ce != nil {
				return Result[T]{}, ce
			}

			return Result[T]{}, &TransportError{Operation: op.name, Err: err}
		}

		if len(bytes.TrimSpace(body)) == 0 {
			return Success(v), nil
		}

		if err := json.Unmarshal(body, &v); err != nil {
			return Result[T]{}, &DecodeError{Operation: op.name, StatusCode: resp.StatusCode, Err: err}
		}

		return Success(v), nil
	case shapeEmpty:
		var zero T
		return Success(zero), nil
	case shapeError:
		return failureResult[T](decodeFailure(op, resp))
	default:
		return failureResult[T](unexpectedStatus(op, resp))
	}
}

// decodeUnit classifies resp for an operation with no success value.
func decodeUnit(op Operation, resp *http.Response) (Result[Unit], error) {
	defer drainAndClose(resp.Body)

	switch op.outcome.lookup(resp.StatusCode) {
	case shapeUnit, shapeEmpty:
		return Success(Unit{}), nil
	case shapeError:
		return failureResult[Unit](decodeFailure(op, resp))
	default:
		return failureResult[Unit](unexpectedStatus(op, resp))
	}
}

// decodeStream classifies a download response. On 200 the returned
// FileResponse owns the body; every other branch closes it.
func decodeStream(op Operation, resp *http.Response) (Result[*FileResponse], error) {
	s := op.outcome.lookup(resp.StatusCode)
	if s == shapeStream {
		return Success(newFileResponse(resp)), nil
	}

	defer drainAndClose(resp.Body)

	switch s {
	case shapeEmpty:
		return Success[*FileResponse](nil), nil
	case shapeError:
		return failureResult[*FileResponse](decodeFailure(op, resp))
	default:
		return failureResult[*FileResponse](unexpectedStatus(op, resp))
	}
}

func failureResult[T any](e StructuredError, err error) (Result[T], error) {
	if err != nil {
		return Result[T]{}, err
	}

	return Failure[T](e), nil
}

// canceledRead returns a CanceledError when a body read failed because the
// request context ended, and nil otherwise.
func canceledRead(op Operation, resp *http.Response, err error) *CanceledError {
	if resp.Request != nil {
		if ctxErr := resp.Request.Context().Err(); ctxErr != nil {
			return &CanceledError{Operation: op.name, Err: ctxErr}
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &CanceledError{Operation: op.name, Err: err}
	}

	return nil
}

// readErrorBody reads up to maxErrorBody bytes. A read cut short by
// cancellation is an error; any other read failure keeps what was read.
func readErrorBody(op Operation, resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		if ce := canceledRead(op, resp, err); ce != nil {
			return nil, ce
		}
	}

	return body, nil
}

// decodeFailure reads a documented error body. The Content-Type selects
// problem details or the error envelope; a body that does not parse as the
// selected shape degrades to UnexpectedStatusError.
func decodeFailure(op Operation, resp *http.Response) (StructuredError, error) {
	body, err := readErrorBody(op, resp)
	if err != nil {
		return nil, err
	}

	if isProblem(resp.Header.Get("Content-Type")) {
		var p ProblemDetails
		if err := json.Unmarshal(body, &p); err == nil {
			if p.Status == 0 {
				p.Status = resp.StatusCode
			}

			return &p, nil
		}

		return newUnexpectedStatus(op, resp, body), nil
	}

	var env errorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &DomainError{ErrorDetail: *env.Error, StatusCode: resp.StatusCode}, nil
	}

	return newUnexpectedStatus(op, resp, body), nil
}

func unexpectedStatus(op Operation, resp *http.Response) (StructuredError, error) {
	body, err := readErrorBody(op, resp)
	if err != nil {
		return nil, err
	}

	return newUnexpectedStatus(op, resp, body), nil
}

func newUnexpectedStatus(op Operation, resp *http.Response, body []byte) *UnexpectedStatusError {
	e := &UnexpectedStatusError{
		Operation:   op.qualified(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}

	trimmed := bytes.TrimSpace(body)

	switch {
	case len(trimmed) == 0:
	case json.Valid(trimmed):
		e.Body = json.RawMessage(trimmed)
	default:
		e.RawBody = strings.ToValidUTF8(string(body), "�")
	}

	return e
}

func isProblem(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return strings.EqualFold(mediaType, problemMediaType)
}
