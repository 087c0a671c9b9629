// Package login provides the HTTP handlers of the password login.
package login

import "errors"

var (
	// ErrInvalidFormData is returned when the submitted login form cannot be parsed.
	ErrInvalidFormData = errors.New("invalid form data")

	// ErrInvalidCredentials is the message of every rejected login; it does
	// not tell which part was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInternalServerError is returned for unexpected failures during the login.
	ErrInternalServerError = errors.New("internal server error")
)
