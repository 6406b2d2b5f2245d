package onboarding

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorInvalidState ErrorCode = "INVALID_STATE"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorConflict     ErrorCode = "CONFLICT"
	ErrorStore        ErrorCode = "STORE_UNAVAILABLE"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error carries a machine-readable code for the protocol endpoints plus a
// short reason for logs. Validation rejections are not Errors; they travel
// inside the snapshot.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("onboarding: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("onboarding: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
