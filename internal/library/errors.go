package library

import (
	"errors"
	"fmt"
)

type ErrCode string

const (
	CodeNotFound              ErrCode = "NOT_FOUND"
	CodeAvailabilityExhausted ErrCode = "AVAILABILITY_EXHAUSTED"
	CodeRenewalLimitExceeded  ErrCode = "RENEWAL_LIMIT_EXCEEDED"
	CodeInvalidState          ErrCode = "INVALID_STATE"
	CodeInvalidInput          ErrCode = "INVALID_INPUT"
	CodeConflict              ErrCode = "CONFLICT"
	CodeBorrowLimitReached    ErrCode = "BORROW_LIMIT_REACHED"
)

// Error is the typed failure every Engine and Catalog operation returns for
// business-rule violations. Infrastructure failures are returned unwrapped.
type Error struct {
	Code ErrCode
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return e.Msg
}

// Is matches on the code alone, so errors.Is(err, ErrNotFound) holds for any
// NOT_FOUND error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNotFound              = &Error{Code: CodeNotFound}
	ErrAvailabilityExhausted = &Error{Code: CodeAvailabilityExhausted}
	ErrRenewalLimitExceeded  = &Error{Code: CodeRenewalLimitExceeded}
	ErrInvalidState          = &Error{Code: CodeInvalidState}
	ErrInvalidInput          = &Error{Code: CodeInvalidInput}
	ErrConflict              = &Error{Code: CodeConflict}
	ErrBorrowLimitReached    = &Error{Code: CodeBorrowLimitReached}
)

func Errorf(code ErrCode, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Code extracts the error code, or "" for errors outside the taxonomy.
func Code(err error) ErrCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
