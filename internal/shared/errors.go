package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated indicates a missing, invalid or unverifiable credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated principal lacking the required role or scope.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited indicates the caller exceeded an operation quota.
	ErrRateLimited = errors.New("rate limited")
	// ErrConflict indicates a uniqueness violation at the store.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Error pairs a taxonomy sentinel with a message that is safe to show to callers.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

// Unwrap exposes the sentinel to errors.Is.
func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds a taxonomy error with a formatted display message.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds an ErrValidation error.
func Validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

// Forbidden builds an ErrForbidden error.
func Forbidden(msg string) error { return &Error{Kind: ErrForbidden, Message: msg} }

// NotFound builds an ErrNotFound error.
func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

var kinds = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrValidation,
	ErrNotFound,
	ErrRateLimited,
	ErrConflict,
	ErrInvalidCredentials,
}

// KindOf returns the taxonomy sentinel wrapped by err, or nil for internal errors.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// UserSafeMessage returns a message that can be shown to the caller without
// leaking storage errors or other principals' data.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) && typed.Message != "" {
		return typed.Message
	}
	switch KindOf(err) {
	case ErrUnauthenticated:
		return "authentication required"
	case ErrForbidden:
		return "insufficient permissions"
	case ErrValidation:
		return "invalid input"
	case ErrNotFound:
		return "resource not found"
	case ErrRateLimited:
		return "too many requests, try again later"
	case ErrConflict:
		return "resource already exists"
	case ErrInvalidCredentials:
		return "invalid email or password"
	default:
		return "internal error"
	}
}
