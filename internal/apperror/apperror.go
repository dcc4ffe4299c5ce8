// Package apperror defines the error taxonomy shared by every layer of teamsync.
//
// Each category is a sentinel error. Constructors wrap the sentinel in an *AppError
// that carries a human-readable Message, so callers can both branch on the category
// with errors.Is and show the message to the user.
//
//	UserInputInvalid      → ErrValidation   (rejected before any remote call)
//	RemoteOperationFailed → ErrRemote       (store or identity provider failed)
//	AuthRequired          → ErrAuthRequired (no session for an operation that needs one)
//	NotFound              → ErrNotFound     (unknown invite code, no team to leave)
//	Timeout               → ErrTimeout      (interactive sign-in wait bound exceeded)
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrAuthRequired = errors.New("authentication required")
	ErrTimeout      = errors.New("timeout")
	ErrRemote       = errors.New("remote operation failed")
)

type AppError struct {
	Err     error  // category sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error from a remote call
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the category sentinel and the underlying cause, so
// errors.Is matches either one.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-supplied message, for lookups that
// are not by id (invite codes, "my team").
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// ConflictMessage is Conflict with a caller-supplied message.
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// AuthRequired returns an AppError for an operation invoked without a session.
func AuthRequired(message string) *AppError {
	return &AppError{
		Err:     ErrAuthRequired,
		Message: message,
	}
}

// Timeout returns an AppError for a wait that exceeded its bound.
func Timeout(message string) *AppError {
	return &AppError{
		Err:     ErrTimeout,
		Message: message,
	}
}

// Remote wraps a failed store or identity-provider call.
func Remote(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrRemote,
		Message: message,
		Cause:   cause,
	}
}

// UserMessage returns the message to show a user for err. AppErrors carry
// their own message; anything else falls back to the supplied text.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
