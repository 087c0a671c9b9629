package auth

import "errors"

var (
	// ErrDirectoryDomain is the cause of a configuration error when ldap.domain is missing or malformed.
	ErrDirectoryDomain = errors.New("ldap.domain must be a hostname")

	// ErrDirectoryHost is the cause of a configuration error when ldap.host is missing or malformed.
	ErrDirectoryHost = errors.New("ldap.host must be a hostname or ip address")

	// ErrBindTemplate is the cause of a configuration error for a malformed ldap.bind template.
	ErrBindTemplate = errors.New("ldap.bind must contain exactly one %s and no other verbs")

	// ErrNotEmail is the cause of a data error when a username has no local@domain form.
	ErrNotEmail = errors.New("username is not of the form local@domain")

	// ErrUnknownRole is the cause of a configuration error when a role inherits an undefined role.
	ErrUnknownRole = errors.New("role inherits an undefined role")
)
