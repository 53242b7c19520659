package core

import (
	"errors"
	"fmt"
)

// Classified failures for external calls. Callers branch on these with
// errors.Is instead of parsing error text.
var (
	// ErrRateLimited marks a rate-limit rejection from an external service.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrServiceError marks a non-transient failure inside an external service.
	ErrServiceError = errors.New("service error")

	// ErrSchemaMismatch marks structured model output that does not conform
	// to the requested schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrBudgetExceeded is returned when mandatory context alone does not fit
	// the configured context budget. Optional content is always dropped first.
	ErrBudgetExceeded = errors.New("context budget exceeded")

	// ErrSessionTerminated is returned when a step is appended to a session
	// that already reached a terminal status.
	ErrSessionTerminated = errors.New("session terminated")
)

// Recoverable reports whether an external failure is worth retrying with
// backoff. Only rate limits and timeouts qualify.
func Recoverable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// ToolError is the typed failure for tool execution: unknown tool names,
// invalid arguments, or a tool that returned an error. It is recorded as a
// failed step, never raised as a crash.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Message)
}

// MalformedOutputError reports model output that could not be parsed into the
// requested structure, after the corrective re-prompt was already spent.
type MalformedOutputError struct {
	Raw    string
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

func (e *MalformedOutputError) Unwrap() error {
	return ErrSchemaMismatch
}
