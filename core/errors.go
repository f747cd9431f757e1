package core

import (
	"errors"
	"fmt"
)

// ErrAuth means there is no valid identity: wrong credentials or no session.
var ErrAuth = errors.New("authentication failed")

// ErrUnauthorized means a valid identity lacks the required permission.
// Callers must not leak why access was denied.
var ErrUnauthorized = errors.New("unauthorized")

var ErrNotFound = errors.New("not found")

var ErrEmptyPassword = errors.New("refusing to set empty password")

// ValidationError rejects malformed input at the boundary, before any
// persistence attempt.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports a unique-constraint violation, like a taken email.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func Conflictf(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
