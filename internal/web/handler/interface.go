package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/db/store"
	"github.com/authgate/authgate/internal/web/session"
)

// Deps are the shared dependencies every handler is initialized with.
type Deps struct {
	Config *config.Config
	Auth   *auth.Service
	Codec  *session.Codec

	// Users backs the administration API.
	Users *store.Users
}

// Valid reports whether all dependencies are set.
func (d Deps) Valid() bool {
	return d.Config != nil && d.Auth != nil && d.Codec != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps Deps) error
}
