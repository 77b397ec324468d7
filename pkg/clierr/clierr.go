package clierr

import (
	"errors"

	"github.com/habedi/pldl/auth"
	"github.com/habedi/pldl/pkg/validation"
)

// Type categorizes a CLI-facing error for consistent messaging & potential exit codes.
type Type string

const (
	Validation      Type = "validation"
	Unauthenticated Type = "unauthenticated"
	Authorization   Type = "authorization"
	Request         Type = "request"
	Download        Type = "download"
	Internal        Type = "internal"
)

// Error is a structured user-facing error.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// FromError maps input, credential and request failures to a user-facing Error.
// Errors that already are *Error pass through unchanged.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr
	}
	switch {
	case errors.Is(err, validation.ErrInvalidInput):
		return New(Validation, err.Error(), err)
	case errors.Is(err, auth.ErrUnauthenticated):
		return New(Unauthenticated, "Not logged in. Run 'pldl login' first.", err)
	case errors.Is(err, auth.ErrRefreshFailed):
		return New(Unauthenticated, "Session expired and could not be renewed. Run 'pldl login' again.", err)
	case errors.Is(err, auth.ErrAuthorizationRetryExhausted):
		return New(Authorization, "The backend rejected the renewed credentials.", err)
	case errors.Is(err, auth.ErrRequestFailed):
		return New(Request, "Request to the backend failed: "+err.Error(), err)
	default:
		return New(Internal, err.Error(), err)
	}
}

// ExitCode returns the process exit code for an error type.
func (t Type) ExitCode() int {
	switch t {
	case Validation:
		return 2
	case Unauthenticated, Authorization:
		return 3
	case Request, Download:
		return 4
	default:
		return 1
	}
}
