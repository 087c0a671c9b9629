package auth

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/apperr"
)

// DefaultDirectoryTimeout bounds dial and bind when LDAPConfig.Timeout is unset.
const DefaultDirectoryTimeout = 10 * time.Second

// LDAPConfig holds directory authentication configuration.
type LDAPConfig struct {
	// Enabled turns directory verification on.
	Enabled bool
	// Domain is the e-mail domain handled by the directory, e.g. "example.com".
	Domain string
	// Host is the directory server hostname or IP address.
	Host string
	// Port is the directory server port, 0 for the scheme default.
	Port int
	// Bind is the bind DN template; %s is replaced with the local part of the username.
	Bind string
	// StartTLS upgrades the connection before binding.
	StartTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// Timeout bounds dial and bind.
	Timeout time.Duration
}

// DirectoryConn is the part of an LDAP connection the verifier uses.
// *ldap.Conn satisfies it.
type DirectoryConn interface {
	StartTLS(config *tls.Config) error
	Bind(username, password string) error
	Close() error
}

// DirectoryDialer opens directory connections.
type DirectoryDialer interface {
	Dial(ctx context.Context, uri string, timeout time.Duration) (DirectoryConn, error)
}

// LDAPDialer dials with github.com/go-ldap/ldap/v3.
type LDAPDialer struct{}

// Dial connects to uri. The timeout applies to the dial and to every later request.
func (LDAPDialer) Dial(ctx context.Context, uri string, timeout time.Duration) (DirectoryConn, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	conn, err := ldap.DialURL(uri, ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	conn.SetTimeout(timeout)

	return conn, nil
}

// DirectoryVerifier verifies passwords with an LDAP simple bind.
type DirectoryVerifier struct {
	config   LDAPConfig
	dialer   DirectoryDialer
	validate *validator.Validate
}

// NewDirectoryVerifier returns a verifier. A nil dialer uses LDAPDialer.
func NewDirectoryVerifier(config LDAPConfig, dialer DirectoryDialer) *DirectoryVerifier {
	if dialer == nil {
		dialer = LDAPDialer{}
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultDirectoryTimeout
	}

	return &DirectoryVerifier{
		config:   config,
		dialer:   dialer,
		validate: validator.New(),
	}
}

// Enabled reports whether directory verification is configured on.
func (v *DirectoryVerifier) Enabled() bool {
	return v != nil && v.config.Enabled
}

// Domain returns the configured directory domain. A missing or malformed
// domain is a configuration error.
func (v *DirectoryVerifier) Domain() (string, error) {
	if v.config.Domain == "" || v.validate.Var(v.config.Domain, "hostname_rfc1123") != nil {
		return "", apperr.Config("invalid ldap.domain "+strconv.Quote(v.config.Domain), ErrDirectoryDomain)
	}

	return v.config.Domain, nil
}

// Verify binds to the directory as username. It returns false without error
// when directory mode is off, the username belongs to another domain or the
// bind is rejected. Misconfiguration is a configuration error; a malformed
// username, a failed connect or a failed TLS upgrade is a data error.
func (v *DirectoryVerifier) Verify(ctx context.Context, username, password string) (bool, error) {
	if !v.Enabled() {
		return false, nil
	}

	want, err := v.Domain()
	if err != nil {
		return false, err
	}

	local, domain, err := splitEmail(username)
	if err != nil {
		return false, err
	}

	if !strings.EqualFold(domain, want) {
		return false, nil
	}

	if v.config.Host == "" || v.validate.Var(v.config.Host, "hostname_rfc1123|ip") != nil {
		return false, apperr.Config("invalid ldap.host "+strconv.Quote(v.config.Host), ErrDirectoryHost)
	}

	dn, err := expandBindTemplate(v.config.Bind, ldap.EscapeDN(local))
	if err != nil {
		return false, err
	}

	// an empty password would be an anonymous bind
	if password == "" {
		return false, nil
	}

	conn, err := v.dialer.Dial(ctx, v.uri(), v.config.Timeout)
	if err != nil {
		return false, apperr.Data("could not connect to LDAP server "+v.config.Host, err)
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if v.config.StartTLS {
		err = conn.StartTLS(&tls.Config{
			InsecureSkipVerify: v.config.SkipVerify, //nolint:gosec // opt-in for test directories
			ServerName:         v.config.Host,
			MinVersion:         tls.VersionTLS12,
		})
		if err != nil {
			return false, apperr.Data("could not start TLS for LDAP connection", err)
		}
	}

	if err = conn.Bind(dn, password); err != nil {
		log.Debug().Err(err).Str("dn", dn).Msg("ldap bind rejected")

		return false, nil
	}

	return true, nil
}

func (v *DirectoryVerifier) uri() string {
	if v.config.Port > 0 {
		return "ldap://" + net.JoinHostPort(v.config.Host, strconv.Itoa(v.config.Port))
	}

	return "ldap://" + v.config.Host
}

// splitEmail splits local@domain at the last @.
func splitEmail(username string) (local, domain string, err error) {
	i := strings.LastIndexByte(username, '@')
	if i <= 0 || i == len(username)-1 {
		return "", "", apperr.Data("could not split username "+strconv.Quote(username), ErrNotEmail)
	}

	return username[:i], username[i+1:], nil
}

// expandBindTemplate substitutes local into the single %s of tmpl.
// %% is the only other verb allowed.
func expandBindTemplate(tmpl, local string) (string, error) {
	var (
		b     strings.Builder
		verbs int
	)

	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			b.WriteByte(tmpl[i])
			continue
		}

		if i+1 == len(tmpl) {
			return "", apperr.Config("trailing % in ldap.bind", ErrBindTemplate)
		}

		i++

		switch tmpl[i] {
		case '%':
			b.WriteByte('%')
		case 's':
			verbs++

			b.WriteString(local)
		default:
			return "", apperr.Config("unsupported verb %"+string(tmpl[i])+" in ldap.bind", ErrBindTemplate)
		}
	}

	if verbs != 1 {
		return "", apperr.Config("ldap.bind has "+strconv.Itoa(verbs)+" %s placeholders", ErrBindTemplate)
	}

	return b.String(), nil
}
