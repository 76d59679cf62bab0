package drive

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Sentinel errors for failure classification.
// Use errors.Is(err, drive.ErrTransport) to check.
var (
	ErrValidation        = errors.New("drive: invalid argument")
	ErrAuthUnavailable   = errors.New("drive: authentication unavailable")
	ErrTransport         = errors.New("drive: transport failure")
	ErrCanceled          = errors.New("drive: request canceled")
	ErrDecode            = errors.New("drive: malformed response body")
	ErrCircuitOpen       = errors.New("drive: circuit breaker open")
	ErrBodyNotReplayable = errors.New("drive: request body cannot be replayed")
	ErrAPI               = errors.New("drive: api error")
)

// ValidationError reports a required parameter that was missing or malformed.
// No request is sent when it is returned.
type ValidationError struct {
	Operation string
	Param     string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("drive: %s: invalid %s: %v", e.Operation, e.Param, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// AuthError means the credential provider failed to produce a token.
type AuthError struct {
	Operation string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("drive: %s: obtaining token: %v", e.Operation, e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuthUnavailable, e.Err}
}

// TransportError means no HTTP response was obtained: connection failure,
// timeout, TLS failure or an open circuit breaker.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("drive: %s: transport: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// CanceledError means the caller's context ended before a response arrived.
type CanceledError struct {
	Operation string
	Err       error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("drive: %s: request canceled: %v", e.Operation, e.Err)
}

func (e *CanceledError) Unwrap() []error {
	return []error{ErrCanceled, e.Err}
}

// DecodeError means a success status carried a body that does not match the
// documented shape.
type DecodeError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("drive: %s: decoding HTTP %d body: %v", e.Operation, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// StructuredError is a service-reported failure carried inside a Result.
// Implementations are *ProblemDetails, *DomainError and *UnexpectedStatusError.
type StructuredError interface {
	error
	HTTPStatus() int
	structured()
}

// ProblemDetails is an RFC 7807 problem document. Members outside the
// standard five are kept in Extensions.
type ProblemDetails struct {
	Type       string                     `json:"type,omitempty"`
	Title      string                     `json:"title,omitempty"`
	Status     int                        `json:"status,omitempty"`
	Detail     string                     `json:"detail,omitempty"`
	Instance   string                     `json:"instance,omitempty"`
	Extensions map[string]json.RawMessage `json:"-"`
}

func (p *ProblemDetails) Error() string {
	msg := p.Title
	if p.Detail != "" {
		if msg != "" {
			msg += ": "
		}

		msg += p.Detail
	}

	if msg == "" {
		msg = p.Type
	}

	return fmt.Sprintf("drive: problem (HTTP %d): %s", p.Status, msg)
}

// HTTPStatus returns the status recorded in the problem document.
func (p *ProblemDetails) HTTPStatus() int { return p.Status }

func (p *ProblemDetails) structured() {}

type problemFields struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

var problemMembers = []string{"type", "title", "status", "detail", "instance"}

// UnmarshalJSON decodes the standard members and collects the rest.
func (p *ProblemDetails) UnmarshalJSON(data []byte) error {
	var fields problemFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	for _, k := range problemMembers {
		delete(all, k)
	}

	*p = ProblemDetails{
		Type:     fields.Type,
		Title:    fields.Title,
		Status:   fields.Status,
		Detail:   fields.Detail,
		Instance: fields.Instance,
	}

	if len(all) > 0 {
		p.Extensions = all
	}

	return nil
}

// MarshalJSON writes extension members alongside the standard ones.
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extensions)+len(problemMembers))
	for k, v := range p.Extensions {
		out[k] = v
	}

	fields := problemFields{
		Type:     p.Type,
		Title:    p.Title,
		Status:   p.Status,
		Detail:   p.Detail,
		Instance: p.Instance,
	}

	std, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	var stdMap map[string]json.RawMessage
	if err := json.Unmarshal(std, &stdMap); err != nil {
		return nil, err
	}

	for k, v := range stdMap {
		out[k] = v
	}

	return json.Marshal(out)
}

// ErrorDetail is the body of the service's {"error": {...}} envelope.
type ErrorDetail struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	Target     string        `json:"target,omitempty"`
	Details    []ErrorDetail `json:"details,omitempty"`
	InnerError *InnerError   `json:"innererror,omitempty"`
}

// InnerError is a nested, more specific error code.
type InnerError struct {
	Code       string      `json:"code"`
	InnerError *InnerError `json:"innererror,omitempty"`
}

// DomainError is a service failure reported through the error envelope.
type DomainError struct {
	ErrorDetail

	StatusCode int `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("drive: %s (HTTP %d, target %s): %s", e.Code, e.StatusCode, e.Target, e.Message)
	}

	return fmt.Sprintf("drive: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// HTTPStatus returns the status of the response that carried the envelope.
func (e *DomainError) HTTPStatus() int { return e.StatusCode }

func (e *DomainError) structured() {}

// errorResponse is the wire envelope for DomainError.
type errorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// UnexpectedStatusError describes a response whose status is not in the
// operation's documented outcome table. Body holds the captured payload when
// it was valid JSON, RawBody otherwise.
type UnexpectedStatusError struct {
	Operation   string          `json:"operation"`
	StatusCode  int             `json:"statusCode"`
	ContentType string          `json:"contentType,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	RawBody     string          `json:"rawBody,omitempty"`
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("drive: %s: unexpected HTTP status %d", e.Operation, e.StatusCode)
}

// HTTPStatus returns the unexpected status code.
func (e *UnexpectedStatusError) HTTPStatus() int { return e.StatusCode }

func (e *UnexpectedStatusError) structured() {}

// APIError is the error-returning form of a failed Result. Message holds the
// indented JSON rendering of Err.
type APIError struct {
	Err     StructuredError
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive: api error (HTTP %d): %s", e.Err.HTTPStatus(), e.Message)
}

func (e *APIError) Unwrap() []error {
	return []error{ErrAPI, e.Err}
}

// NewAPIError wraps a structured error, serializing it for the message.
func NewAPIError(err StructuredError) *APIError {
	msg := err.Error()
	if data, mErr := json.MarshalIndent(err, "", "  "); mErr == nil {
		msg = string(data)
	}

	return &APIError{Err: err, Message: msg}
}
