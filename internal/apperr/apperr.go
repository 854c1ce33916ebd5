package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to map it to behavior
// (HTTP status, retry, rollback).
type Kind int

const (
	KindValidation Kind = iota + 1
	KindPolicyRejection
	KindPersistence
	KindStateConflict
	KindNotFound
)

// Error is the application error type. Reasons and Actions are populated only
// for policy rejections, where the caller must receive the full list rather
// than the first failure.
type Error struct {
	Kind    Kind
	Message string
	Reasons []string
	Actions []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func PolicyRejection(message string, reasons, actions []string) *Error {
	return &Error{Kind: KindPolicyRejection, Message: message, Reasons: reasons, Actions: actions}
}

func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

func StateConflict(format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
