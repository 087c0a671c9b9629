// Package logout provides the logout handler.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/web/handler"
	"github.com/authgate/authgate/internal/web/handler/login"
	authmiddleware "github.com/authgate/authgate/internal/web/middleware/auth"
	"github.com/authgate/authgate/internal/web/session"
)

// Path is the path of the logout handler.
const Path = handler.AuthPath + "/logout"

// Service is the logout handler service.
type Service struct {
	codec *session.Codec
}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() {
		return handler.ErrNilDeps
	}

	s.codec = deps.Codec

	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)

	return nil
}

// Logout ends the session, clears the cookie and sends the client to the login page.
func (s *Service) Logout(c *fiber.Ctx) error {
	if sess := authmiddleware.SessionFrom(c); sess.IsLoggedIn() {
		if err := sess.Logout(c.UserContext()); err != nil {
			log.Error().Err(err).Msg("failed to logout")

			return fiber.ErrInternalServerError
		}
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Cookie(s.codec.Expired())

	return c.Redirect(login.Path, fiber.StatusSeeOther)
}
