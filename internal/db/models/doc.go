// Package models contains the gorm model definitions for the authentication schema:
// roles, users, per-context role overrides and session tokens.
package models
