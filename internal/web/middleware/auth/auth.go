package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	authsvc "github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/web/session"
)

const (
	// LocalSession is the fiber.Locals key of the *auth.Session.
	LocalSession = "session"
	// LocalUserID is the fiber.Locals key of the authenticated user id.
	LocalUserID = "user_id"
	// LocalUser is the fiber.Locals key of the authenticated *models.User.
	LocalUser = "user"
)

// Config of the middleware.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	Next func(c *fiber.Ctx) bool

	Service *authsvc.Service
	Gate    *authsvc.Gate
	Codec   *session.Codec
}

// New returns the authentication middleware.
func New(cfg Config) fiber.Handler {
	if cfg.Service == nil || cfg.Gate == nil || cfg.Codec == nil {
		panic("auth middleware: service, gate and codec are required")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		s, err := restore(c, cfg)
		if err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("failed to restore session")

			return fiber.ErrInternalServerError
		}

		c.Locals(LocalSession, s)

		if u := s.User(); u != nil {
			c.Locals(LocalUserID, u.ID)
			c.Locals(LocalUser, u)
		}

		req := request{c: c, policy: cfg.Gate.Policy()}

		d, err := cfg.Gate.Decide(c.UserContext(), req, s)
		if err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("failed to decide access")

			return fiber.ErrInternalServerError
		}

		switch a := cfg.Gate.Resolve(d, req); a.Kind {
		case authsvc.Proceed:
			return c.Next()
		case authsvc.Redirect:
			return c.Redirect(a.Location, fiber.StatusFound)
		case authsvc.Deny:
			return fiber.ErrForbidden
		default:
			return fiber.ErrUnauthorized
		}
	}
}

// restore returns the session of the request cookie, anonymous when there
// is no valid one. An unusable cookie is cleared.
func restore(c *fiber.Ctx, cfg Config) (*authsvc.Session, error) {
	raw := c.Cookies(cfg.Codec.CookieName())
	if raw == "" {
		return cfg.Service.NewSession(""), nil
	}

	claims, err := cfg.Codec.Parse(raw)
	if err != nil {
		log.Debug().Err(err).Msg("discarding session cookie")
		c.Cookie(cfg.Codec.Expired())

		return cfg.Service.NewSession(""), nil
	}

	s := cfg.Service.NewSession(claims.Subject)

	ok, err := s.Resume(c.UserContext(), claims.Token, claims.Checksum)
	if err != nil {
		return nil, err
	}

	if !ok || s.User().ID != claims.UserID {
		c.Cookie(cfg.Codec.Expired())

		return cfg.Service.NewSession(claims.Subject), nil
	}

	return s, nil
}

// SessionFrom returns the session stored by the middleware, or nil.
func SessionFrom(c *fiber.Ctx) *authsvc.Session {
	s, _ := c.Locals(LocalSession).(*authsvc.Session)

	return s
}

type request struct {
	c      *fiber.Ctx
	policy *authsvc.Policy
}

func (r request) Method() string {
	return r.c.Method()
}

func (r request) Path() string {
	return r.c.Path()
}

func (r request) Query() string {
	return string(r.c.Request().URI().QueryString())
}

func (r request) RouteArgument(name string) (string, bool) {
	if name != authsvc.RouteArgument {
		return "", false
	}

	return r.policy.MatchRoute(r.c.Path())
}
