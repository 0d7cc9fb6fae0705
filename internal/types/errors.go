package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("requested item not found")
	ErrValidation       = errors.New("validation failed")
	ErrConflict         = errors.New("item already exists or conflict")
	ErrUnauthenticated  = errors.New("authentication required or invalid credentials")
	ErrTokenInvalid     = errors.New("token is invalid")
	ErrTokenExpired     = errors.New("token has expired")
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Both login failures are authentication errors; they only differ in message.
var (
	ErrUserNotFound       = fmt.Errorf("user not found: %w", ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthenticated)
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError names the unique field that was already taken.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "username or email already exists"
	}
	return e.Field + " already exists"
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
