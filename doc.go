// Package main provides the entry point of authgate, a session
// authentication and role based access gateway. It authenticates users
// against local password hashes or an LDAP directory, keeps sessions in
// signed cookies backed by revocable tokens stored in a SQL database or
// Redis, and guards routes by role. Users, roles and context overrides are
// managed through the CLI.
package main
