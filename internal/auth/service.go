package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/uniuri"
)

const (
	// DefaultSubject is the token slot of browser sessions.
	DefaultSubject = "web"

	// DefaultLoginExpiry is how far a login pushes User.Expires forward.
	DefaultLoginExpiry = 24 * time.Hour
)

// Config holds the session settings of a Service.
type Config struct {
	// TokenTTL is the lifetime of issued tokens. Required.
	TokenTTL time.Duration
	// LoginExpiry is the forward offset of User.Expires on login.
	LoginExpiry time.Duration
	// Subject is the default token slot.
	Subject string
	// Context names the active authorization scope of new sessions, if any.
	Context string
}

// Service provides authentication and authorization functionality.
// It is built once at startup; sessions created from it are per request.
type Service struct {
	users     UserStore
	tokens    TokenStore
	resolver  *Resolver
	hierarchy *Hierarchy
	directory *DirectoryVerifier
	validate  *validator.Validate
	config    Config
	now       func() time.Time

	onLogin  []LoginListener
	onLogout []LogoutListener
}

// Option customizes a Service.
type Option func(*Service)

// WithDirectory enables directory password verification.
func WithDirectory(d *DirectoryVerifier) Option {
	return func(s *Service) { s.directory = d }
}

// WithHierarchy replaces the default role hierarchy.
func WithHierarchy(h *Hierarchy) Option {
	return func(s *Service) { s.hierarchy = h }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new auth service.
func NewService(users UserStore, contexts ContextStore, tokens TokenStore, cfg Config, opts ...Option) (*Service, error) {
	if cfg.TokenTTL <= 0 {
		return nil, apperr.Config("the session ttl (auth.expires) must be set", nil)
	}

	if cfg.LoginExpiry <= 0 {
		cfg.LoginExpiry = DefaultLoginExpiry
	}

	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}

	s := &Service{
		users:     users,
		tokens:    tokens,
		resolver:  NewResolver(contexts),
		hierarchy: DefaultHierarchy(),
		validate:  validator.New(),
		config:    cfg,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Hierarchy returns the role hierarchy.
func (s *Service) Hierarchy() *Hierarchy {
	return s.hierarchy
}

// Resolver returns the role resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Subject returns the default token subject.
func (s *Service) Subject() string {
	return s.config.Subject
}

// TokenTTL returns the lifetime of issued tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.config.TokenTTL
}

// NewSession returns an anonymous session for subject ("" for the default)
// scoped to the configured context.
func (s *Service) NewSession(subject string) *Session {
	return s.NewSessionWithContext(subject, NewContext(s.config.Context))
}

// NewSessionWithContext returns an anonymous session scoped to c (may be nil).
func (s *Service) NewSessionWithContext(subject string, c *Context) *Session {
	if subject == "" {
		subject = s.config.Subject
	}

	return &Session{svc: s, subject: subject, context: c}
}

// Issued describes a freshly issued token.
type Issued struct {
	Token    string
	Subject  string
	UserID   uint64
	Checksum string
	Expires  time.Time
}

// Session is the authentication state of one request: anonymous until a
// Login or Resume succeeds. It is not safe for concurrent use.
type Session struct {
	svc     *Service
	subject string
	context *Context
	user    *models.User
}

// IsLoggedIn reports whether the session is authenticated.
func (s *Session) IsLoggedIn() bool {
	return s != nil && s.user != nil
}

// User returns the authenticated user or nil.
func (s *Session) User() *models.User {
	return s.user
}

// Subject returns the token slot of the session.
func (s *Session) Subject() string {
	return s.subject
}

// Context returns the authorization scope of the session, may be nil.
func (s *Session) Context() *Context {
	return s.context
}

// Role returns the effective role of the authenticated user.
func (s *Session) Role(ctx context.Context) (string, error) {
	if s.user == nil {
		return "", apperr.ErrNotAuthenticated
	}

	return s.svc.resolver.EffectiveRole(ctx, s.user, s.context)
}

// Login authenticates username with password. Unknown users, wrong
// passwords and disabled accounts all fail with apperr.ErrInvalidCredentials.
// A listener veto fails with *apperr.LoginCancelledError. The session is
// anonymous after any failure.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.user = nil

	err := s.login(ctx, username, password)

	var cancelled *apperr.LoginCancelledError

	switch {
	case err == nil:
		loginsTotal.WithLabelValues(resultSuccess).Inc()
	case errors.Is(err, apperr.ErrInvalidCredentials):
		loginsTotal.WithLabelValues(resultInvalid).Inc()
	case errors.As(err, &cancelled):
		loginsTotal.WithLabelValues(resultCancelled).Inc()
	default:
		loginsTotal.WithLabelValues(resultError).Inc()
	}

	return err
}

func (s *Session) login(ctx context.Context, username, password string) error {
	qualified, ok, err := s.svc.QualifyUsername(username)
	if err != nil {
		return err
	}

	if !ok {
		return apperr.ErrInvalidCredentials
	}

	u, err := s.svc.users.FindByUsername(ctx, qualified)
	if err != nil {
		return err
	}

	if u == nil {
		log.Debug().Str("username", qualified).Msg("login for unknown user")

		return apperr.ErrInvalidCredentials
	}

	ok, err = s.svc.VerifyPassword(ctx, u, password)
	if err != nil {
		return err
	}

	if !ok {
		log.Debug().Uint64("user_id", u.ID).Msg("login with wrong password")

		return apperr.ErrInvalidCredentials
	}

	now := s.svc.now()

	if u.IsDisabled(now) {
		log.Info().Uint64("user_id", u.ID).Msg("login for disabled user")

		return apperr.ErrInvalidCredentials
	}

	expires := now.Add(s.svc.config.LoginExpiry)
	u.Expires = &expires

	if err = s.svc.users.Save(ctx, u); err != nil {
		return err
	}

	reason, cancel := s.svc.emitLogin(ctx, LoginEvent{
		User:    u,
		Subject: s.subject,
		Context: s.context,
		At:      now,
	})
	if cancel {
		log.Info().Uint64("user_id", u.ID).Str("reason", reason).Msg("login cancelled")

		return &apperr.LoginCancelledError{Reason: reason}
	}

	s.user = u

	log.Info().Uint64("user_id", u.ID).Str("subject", s.subject).Msg("user logged in")

	return nil
}

// Logout ends an authenticated session: it clears User.Expires, removes the
// token of the session subject and notifies logout listeners. Logging out
// an anonymous session does nothing.
func (s *Session) Logout(ctx context.Context) error {
	u := s.user
	if u == nil {
		return nil
	}

	u.Expires = nil

	if err := s.svc.users.Save(ctx, u); err != nil {
		return err
	}

	if err := s.svc.tokens.Remove(ctx, u.ID, s.subject); err != nil {
		return err
	}

	s.user = nil

	s.svc.emitLogout(ctx, LogoutEvent{User: u, Subject: s.subject, At: s.svc.now()})

	log.Info().Uint64("user_id", u.ID).Str("subject", s.subject).Msg("user logged out")

	return nil
}

// Resume restores the session from a token of the session subject and the
// checksum issued with it. A missing or expired token, a vanished user or
// a checksum mismatch leave the session anonymous without error.
func (s *Session) Resume(ctx context.Context, token, checksum string) (bool, error) {
	s.user = nil

	ok, err := s.resume(ctx, token, checksum)

	switch {
	case err != nil:
		resumesTotal.WithLabelValues(resultError).Inc()
	case ok:
		resumesTotal.WithLabelValues(resultSuccess).Inc()
	default:
		resumesTotal.WithLabelValues(resultInvalid).Inc()
	}

	return ok, err
}

func (s *Session) resume(ctx context.Context, token, checksum string) (bool, error) {
	if token == "" {
		return false, nil
	}

	t, err := s.svc.tokens.Find(ctx, s.subject, token)
	if err != nil {
		return false, err
	}

	now := s.svc.now()

	if t == nil || t.IsExpired(now) {
		return false, nil
	}

	u, err := s.svc.users.FindByID(ctx, t.UserID)
	if err != nil {
		return false, err
	}

	if u == nil {
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(u.Checksum(now)), []byte(checksum)) != 1 {
		log.Debug().Uint64("user_id", u.ID).Msg("session checksum mismatch")

		return false, nil
	}

	s.user = u

	return true, nil
}

// IssueToken stores a new random token for the authenticated user under
// subject ("" for the session subject), replacing the previous one.
func (s *Session) IssueToken(ctx context.Context, subject string) (Issued, error) {
	if s.user == nil {
		return Issued{}, apperr.ErrNotAuthenticated
	}

	if subject == "" {
		subject = s.subject
	}

	token, err := uniuri.NewToken()
	if err != nil {
		return Issued{}, apperr.Data("could not generate token", err)
	}

	now := s.svc.now()
	t := &models.Token{
		UserID:  s.user.ID,
		Subject: subject,
		Token:   token,
		Expires: now.Add(s.svc.config.TokenTTL),
	}

	if err = s.svc.tokens.Save(ctx, t); err != nil {
		return Issued{}, err
	}

	tokensIssuedTotal.Inc()

	return Issued{
		Token:    token,
		Subject:  subject,
		UserID:   s.user.ID,
		Checksum: s.user.Checksum(now),
		Expires:  t.Expires,
	}, nil
}
