// Package apperr defines the error taxonomy shared by the authentication core,
// its persistence layer and the HTTP glue.
//
// Every kind is a sentinel so callers can branch with errors.Is while the
// originating cause stays reachable through the wrapped chain:
//
//	return fmt.Errorf("%w: could not start TLS for LDAP connection: %w", apperr.ErrData, err)
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks missing or invalid directory or auth settings.
	ErrConfig = errors.New("invalid configuration")

	// ErrData marks malformed persisted rows, malformed directory input and
	// directory connection or TLS setup failures.
	ErrData = errors.New("invalid data")

	// ErrInvalidCredentials is returned for a wrong password, an unknown user
	// or a disabled account. The message never tells which one.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrDuplicateInsert is returned when an insert violates a unique constraint.
	ErrDuplicateInsert = errors.New("duplicate insert")

	// ErrLoginCancelled matches any *LoginCancelledError.
	ErrLoginCancelled = errors.New("login cancelled")

	// ErrNotAuthenticated is returned by operations that need a logged-in session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// LoginCancelledError is returned when a login listener vetoes a login.
type LoginCancelledError struct {
	Reason string
}

func (e *LoginCancelledError) Error() string {
	return fmt.Sprintf("%s: %s", ErrLoginCancelled, e.Reason)
}

// Is reports whether target is ErrLoginCancelled.
func (e *LoginCancelledError) Is(target error) bool {
	return target == ErrLoginCancelled
}

// Config wraps cause (may be nil) as a configuration error.
func Config(msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrConfig, msg)
	}

	return fmt.Errorf("%w: %s: %w", ErrConfig, msg, cause)
}

// Data wraps cause (may be nil) as a data error.
func Data(msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrData, msg)
	}

	return fmt.Errorf("%w: %s: %w", ErrData, msg, cause)
}

// DuplicateInsert wraps cause as a unique constraint violation.
func DuplicateInsert(msg string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrDuplicateInsert, msg, cause)
}
