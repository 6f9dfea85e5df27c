package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("Validation Error")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")
	ErrAuthentication = errors.New("authentication failed")
	ErrNoAdmins       = errors.New("no admin accounts exist")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
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

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// InvalidCredentials returns the single, deliberately vague AppError used for
// EVERY credential failure — unknown email, unknown username, wrong password.
//
// WHY ONE MESSAGE FOR ALL THREE?
// If "unknown email" and "wrong password" produced different responses, an
// attacker could enumerate which emails have accounts just by watching the
// error text. Callers that need the real reason for logging get it from the
// wrapped context; the client never does.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrAuthentication,
		Message: "invalid credentials",
	}
}

// NoAdmins returns the distinguishable error raised when an admin login is
// attempted against a store with zero admin accounts. Unlike the generic
// credentials error, the handler surfaces this one with a noAdmins flag so the
// UI can send the operator to the first-run setup flow instead of a dead-end
// "invalid credentials" message.
func NoAdmins() *AppError {
	return &AppError{
		Err:     ErrNoAdmins,
		Message: "no admin accounts exist yet",
	}
}
