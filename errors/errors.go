// Package errors defines the error taxonomy of the feed core.
// Callers match with errors.Is; every message is safe to show to users.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// Validation
	ErrEmptyContent    = fmt.Errorf("message content cannot be empty")
	ErrInvalidPassword = fmt.Errorf("password does not meet complexity requirements")

	// Auth
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")

	// Forbidden
	ErrForbidden = fmt.Errorf("cannot modify another user's message")

	// NotFound
	ErrMessageNotFound = fmt.Errorf("message not found")

	// Storage failures wrap this sentinel with %w so both the kind and
	// the backend cause stay matchable.
	ErrStorage = fmt.Errorf("storage backend failure")

	ErrUserAlreadyExists = fmt.Errorf("user already exists")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)

// Is and As re-export the standard matchers so callers keep a single
// errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
