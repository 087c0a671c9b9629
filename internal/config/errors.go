package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrAuthExpiresNotSet error if the session ttl was not chosen explicitly.
	ErrAuthExpiresNotSet = errors.New("config auth.expires must be set to the session ttl in seconds")

	// ErrAuthSecretTooShort error if the cookie signing secret is missing or weak.
	ErrAuthSecretTooShort = errors.New("config auth.secret must be at least 32 characters")

	// ErrLDAPDomainNotSet error if directory mode is on without a domain.
	ErrLDAPDomainNotSet = errors.New("config ldap.domain must be a hostname when ldap.enabled is set")

	// ErrLDAPHostNotSet error if directory mode is on without a server.
	ErrLDAPHostNotSet = errors.New("config ldap.host must be set when ldap.enabled is set")

	// ErrUnknownRole error if a role hierarchy entry inherits an undefined role.
	ErrUnknownRole = errors.New("config roles references an undefined role")
)
