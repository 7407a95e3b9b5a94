package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error into one of the caller-facing conditions
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindNotMember          Kind = "NOT_MEMBER"
	KindAlreadyMember      Kind = "ALREADY_MEMBER"
	KindBanned             Kind = "BANNED"
	KindCapacityExceeded   Kind = "CAPACITY_EXCEEDED"
	KindCreatorCannotLeave Kind = "CREATOR_CANNOT_LEAVE"
	KindInvalidParent      Kind = "INVALID_PARENT"
	KindValidation         Kind = "VALIDATION_FAILED"
	KindConflict           Kind = "CONFLICT"
	KindTransientUpstream  Kind = "TRANSIENT_UPSTREAM"
	KindUnauthenticated    Kind = "UNAUTHORIZED"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Error is a typed, caller-facing error
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an error of the given kind. Package-level sentinels are
// built with New and matched with errors.Is.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation returns a ValidationFailed error with the given message
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Transient wraps a collaborator failure. The caller may retry.
func Transient(operation string, err error) *Error {
	return &Error{Kind: KindTransientUpstream, Message: operation + " is temporarily unavailable", Err: err}
}

// FromUpstream classifies an error returned by an external collaborator.
// Typed errors (not found, validation) pass through unchanged; deadlines
// and transport failures become TransientUpstream.
func FromUpstream(operation string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return Transient(operation, err)
}

// IsTimeout reports whether err was caused by a context deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Message
	}
	return "internal error"
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
