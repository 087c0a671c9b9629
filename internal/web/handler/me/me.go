// Package me returns the authenticated user and its effective role.
package me

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/web/handler"
	authmiddleware "github.com/authgate/authgate/internal/web/middleware/auth"
)

// Path is the path of the me handler.
const Path = handler.AuthPath + "/me"

// Service is the me handler service.
type Service struct{}

// Response is the JSON body of Get.
type Response struct {
	ID          uint64  `json:"id"`
	Username    string  `json:"username"`
	NameFirst   *string `json:"name_first,omitempty"`
	NameLast    *string `json:"name_last,omitempty"`
	Role        string  `json:"role"`
	DefaultRole string  `json:"default_role"`
	Subject     string  `json:"subject"`
	Context     string  `json:"context,omitempty"`
}

// Init initializes the me handler.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() {
		return handler.ErrNilDeps
	}

	app.Get(Path, s.Get)

	return nil
}

// Get returns the current user.
func (s *Service) Get(c *fiber.Ctx) error {
	sess := authmiddleware.SessionFrom(c)
	if !sess.IsLoggedIn() {
		return fiber.ErrUnauthorized
	}

	role, err := sess.Role(c.UserContext())
	if err != nil {
		log.Error().Err(err).Uint64("user_id", sess.User().ID).Msg("failed to resolve role")

		return fiber.ErrInternalServerError
	}

	u := sess.User()
	res := Response{
		ID:          u.ID,
		Username:    u.Username,
		NameFirst:   u.NameFirst,
		NameLast:    u.NameLast,
		Role:        role,
		DefaultRole: u.RoleID,
		Subject:     sess.Subject(),
	}

	if ctx := sess.Context(); ctx != nil {
		res.Context = ctx.Name
	}

	c.Set(fiber.HeaderCacheControl, "no-store")

	return c.JSON(res)
}
