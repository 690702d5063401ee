package engine

import (
	"context"
	"errors"
	"fmt"
)

// Call-level errors. Per-engine failures are recovered locally by the
// strategies and never surface as these; only systemic failure does.
var (
	// ErrNoEnginesAvailable means zero engines passed the health check at
	// call start.
	ErrNoEnginesAvailable = errors.New("no extraction engines available")

	// ErrAllEnginesFailed means every invoked engine errored or timed out.
	// Distinguishable from partial success, which is not an error.
	ErrAllEnginesFailed = errors.New("all extraction engines failed")

	// ErrEngineUnavailable means a specifically requested engine is down.
	ErrEngineUnavailable = errors.New("extraction engine unavailable")

	// ErrInvalidMode means an unknown processing mode was requested.
	// Caught at startup validation, not at call time.
	ErrInvalidMode = errors.New("invalid processing mode")

	// ErrCancelled means the caller abandoned the call before completion.
	// Strategies return it alongside whatever partial result was gathered.
	// It wraps context.Canceled, so errors.Is(err, context.Canceled) holds.
	ErrCancelled = fmt.Errorf("extraction cancelled: %w", context.Canceled)
)

// CallError wraps one engine invocation failure with its origin.
// It is recovered locally: the engine is dropped from the call and from the
// consensus-weight denominator.
type CallError struct {
	Engine    string
	Timeout   bool
	Cancelled bool
	Err       error
}

func (e *CallError) Error() string {
	if e.Cancelled {
		return fmt.Sprintf("engine %s cancelled: %v", e.Engine, e.Err)
	}
	if e.Timeout {
		return fmt.Sprintf("engine %s timed out: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("engine %s failed: %v", e.Engine, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// NewTimeoutError builds a CallError marking a deadline overrun.
func NewTimeoutError(engine string, err error) *CallError {
	return &CallError{Engine: engine, Timeout: true, Err: err}
}

// NewCancelError builds a CallError for an invocation cut short by caller
// cancellation. Distinct from a timeout: the engine was not too slow, the
// caller walked away.
func NewCancelError(engine string, err error) *CallError {
	return &CallError{Engine: engine, Cancelled: true, Err: err}
}

// NewCallError builds a CallError for an internal engine failure.
func NewCallError(engine string, err error) *CallError {
	return &CallError{Engine: engine, Err: err}
}

// IsTimeout reports whether err is an engine timeout.
func IsTimeout(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Timeout
}

// IsCancelled reports whether err is a cancelled engine invocation.
func IsCancelled(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Cancelled
}
