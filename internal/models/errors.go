package models

import "errors"

// ErrorKind is the stable, closed set of failure codes surfaced to callers.
// The batch scheduler uses it to discriminate retryable from terminal
// failures, so new kinds must be classified in Retryable below.
type ErrorKind string

const (
	// Resolution failures (input could not be turned into bytes).
	ErrKindUnreachable       ErrorKind = "UNREACHABLE"
	ErrKindTooLarge          ErrorKind = "TOO_LARGE"
	ErrKindMalformedEncoding ErrorKind = "MALFORMED_ENCODING"
	ErrKindNotFound          ErrorKind = "NOT_FOUND"
	ErrKindPermissionDenied  ErrorKind = "PERMISSION_DENIED"

	// Execution failures (remote edit call).
	ErrKindRateLimited        ErrorKind = "RATE_LIMITED"
	ErrKindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	ErrKindTimeout            ErrorKind = "TIMEOUT"
	ErrKindContentPolicy      ErrorKind = "CONTENT_POLICY"
	ErrKindInvalidInput       ErrorKind = "INVALID_INPUT"
	ErrKindAuthFailed         ErrorKind = "AUTH_FAILED"

	// Materialization failures.
	ErrKindDiskSpace   ErrorKind = "DISK_SPACE_ERROR"
	ErrKindPathTooLong ErrorKind = "PATH_TOO_LONG"

	// Scheduler-level.
	ErrKindCancelled ErrorKind = "CANCELLED"
)

// Retryable reports whether a failure of this kind may succeed on a later
// attempt. Only the transient execution failures qualify.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindRateLimited, ErrKindServiceUnavailable, ErrKindTimeout:
		return true
	}
	return false
}

// EditError carries a stable error kind alongside a human-readable message.
type EditError struct {
	Kind    ErrorKind
	Message string
}

func (e *EditError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func NewEditError(kind ErrorKind, message string) *EditError {
	return &EditError{Kind: kind, Message: message}
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. Errors that
// are not EditErrors report SERVICE_UNAVAILABLE so they stay retryable
// rather than silently terminal.
func KindOf(err error) ErrorKind {
	var ee *EditError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ErrKindServiceUnavailable
}
