package assistant

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	userErr := NewUserError("query is empty", nil)
	appErr := NewApplicationError("embedding query", "status 500", errors.New("status 500"))

	if !IsUserError(userErr) || IsApplicationError(userErr) {
		t.Error("user error misclassified")
	}
	if !IsApplicationError(appErr) || IsUserError(appErr) {
		t.Error("application error misclassified")
	}
	if IsUserError(errors.New("plain")) || IsApplicationError(errors.New("plain")) {
		t.Error("plain error classified as pipeline error")
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewApplicationError("matching sections", nil, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is does not see the cause")
	}
	if got := err.Error(); got != "matching sections: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	// Classification survives wrapping.
	wrapped := fmt.Errorf("handling request: %w", err)
	if !IsApplicationError(wrapped) {
		t.Error("wrapped pipeline error lost its kind")
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := NewUserError("no relevant documentation found for that question", nil)
	if got := err.Error(); got != "no relevant documentation found for that question" {
		t.Errorf("Error() = %q", got)
	}
	if err.Unwrap() != nil {
		t.Error("Unwrap() on causeless error is non-nil")
	}
}

func TestKindString(t *testing.T) {
	if KindUser.String() != "user" || KindApplication.String() != "application" {
		t.Error("Kind.String() mismatch")
	}
	if Kind(0).String() != "unknown" {
		t.Error("zero Kind should be unknown")
	}
}
