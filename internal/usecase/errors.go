package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorValidation   ErrorCode = "VALIDATION_ERROR"
	ErrorNotChestPain ErrorCode = "NOT_CHEST_PAIN"
	ErrorUpstream     ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is returned by every use case that surfaces a failure to the user.
// Message is the user-facing text; Reason is a stable machine-readable tag.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

func validationError(reason, message string) *Error {
	return newError(ErrorValidation, reason, message, nil)
}

// UserMessage returns the text to show for err, falling back to a generic
// message for errors that did not come from a use case.
func UserMessage(err error) string {
	var ue *Error
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return "요청 처리 중 오류가 발생했습니다."
}

// IsCode reports whether err is a use-case error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Code == code
}
