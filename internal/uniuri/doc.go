// Package uniuri generates cryptographically secure random strings used as
// session tokens. Characters are drawn without modulo bias from crypto/rand.
package uniuri
