package drive

// Unit is the value of a successful operation that returns no data.
type Unit struct{}

// Result is either a success holding a value or a failure holding a
// StructuredError, never both. The zero Result is a success with the zero
// value of T.
type Result[T any] struct {
	value T
	err   StructuredError
}

// Success builds a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure builds a failed Result. err must not be nil.
func Failure[T any](err StructuredError) Result[T] {
	if err == nil {
		panic("drive: Failure called with nil error")
	}

	return Result[T]{err: err}
}

// IsSuccess reports whether the result holds a value.
func (r Result[T]) IsSuccess() bool { return r.err == nil }

// Value returns the success value, or the zero value of T on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the structured error, or nil on success.
func (r Result[T]) Err() StructuredError { return r.err }

// Get returns both halves of the result.
func (r Result[T]) Get() (T, StructuredError) { return r.value, r.err }

// Unwrap converts the output of a Result-returning call into the plain
// (value, error) form. A non-nil err is returned unchanged; a failed Result
// becomes an *APIError.
func Unwrap[T any](r Result[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}

	if r.err != nil {
		var zero T
		return zero, NewAPIError(r.err)
	}

	return r.value, nil
}

// Check is Unwrap for operations that return no value.
func Check(r Result[Unit], err error) error {
	_, err = Unwrap(r, err)
	return err
}
