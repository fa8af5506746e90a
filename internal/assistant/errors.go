package assistant

import (
	"errors"
	"fmt"
)

// Kind discriminates the two failure classes of the pipeline.
type Kind int

const (
	// KindUser marks failures caused by the caller's query: unsafe
	// content, empty input, nothing relevant found. Safe to show to the
	// end user; carries no internal data.
	KindUser Kind = iota + 1

	// KindApplication marks upstream or infrastructure failures. The
	// Payload holds the raw diagnostic from the failing service.
	KindApplication
)

// String implements Stringer for log output.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Error is the typed pipeline error. Callers branch on Kind with
// IsUserError/IsApplicationError (or errors.As) instead of runtime type
// checks on exception hierarchies.
type Error struct {
	Kind    Kind
	Message string
	Payload any   // optional diagnostics (flagged categories, raw API error)
	Err     error // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Is/As against the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewUserError creates a KindUser error.
func NewUserError(message string, payload any) *Error {
	return &Error{Kind: KindUser, Message: message, Payload: payload}
}

// NewApplicationError creates a KindApplication error wrapping cause.
func NewApplicationError(message string, payload any, cause error) *Error {
	return &Error{Kind: KindApplication, Message: message, Payload: payload, Err: cause}
}

// IsUserError reports whether err is a pipeline error of KindUser.
func IsUserError(err error) bool {
	return errKind(err) == KindUser
}

// IsApplicationError reports whether err is a pipeline error of
// KindApplication.
func IsApplicationError(err error) bool {
	return errKind(err) == KindApplication
}

func errKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
