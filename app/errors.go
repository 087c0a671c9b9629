package app

import "errors"

var (
	// ErrUserNotFound is returned when a command names an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned by user add for an existing username.
	ErrUsernameTaken = errors.New("username taken")
	// ErrUnknownRole is returned for roles missing from the hierarchy.
	ErrUnknownRole = errors.New("unknown role")
	// ErrPasswordMismatch is returned when the repeated password differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
)
