package login

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/web/handler"
	authmiddleware "github.com/authgate/authgate/internal/web/middleware/auth"
	"github.com/authgate/authgate/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = handler.AuthPath + "/login"
)

// Service is the login handler service.
type Service struct {
	auth     *auth.Service
	codec    *session.Codec
	validate *validator.Validate
}

// Form is the login request, sent as form or JSON.
type Form struct {
	Username string `form:"username" json:"username" validate:"required,max=255"`
	Password string `form:"password" json:"password" validate:"required"`
	// Return is the relative URL to continue with after login.
	Return string `form:"return" json:"return"`
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() {
		return handler.ErrNilDeps
	}

	s.auth = deps.Auth
	s.codec = deps.Codec
	s.validate = validator.New()

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, s.Get)
		router.Post(handler.RootPath, s.Post)
	})

	return nil
}

// Get describes how to log in.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"login":  Path,
		"fields": []string{"username", "password", "return"},
		"return": SafeReturn(c.Query("return")),
	})
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")

	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	form.Username = strings.TrimSpace(form.Username)

	if err := s.validate.Struct(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	sess := authmiddleware.SessionFrom(c)
	if sess == nil {
		sess = s.auth.NewSession("")
	}

	ctx := c.UserContext()

	if err := sess.Login(ctx, form.Username, form.Password); err != nil {
		var cancelled *apperr.LoginCancelledError

		switch {
		case errors.Is(err, apperr.ErrInvalidCredentials):
			return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidCredentials.Error())
		case errors.As(err, &cancelled):
			return fiber.NewError(fiber.StatusUnauthorized, cancelled.Reason)
		default:
			log.Error().Err(err).Str("username", form.Username).Msg("login failed")

			return fiber.NewError(fiber.StatusInternalServerError, ErrInternalServerError.Error())
		}
	}

	issued, err := sess.IssueToken(ctx, "")
	if err != nil {
		log.Error().Err(err).Uint64("user_id", sess.User().ID).Msg("failed to issue token")

		return fiber.NewError(fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	raw, err := s.codec.Issue(issued)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", issued.UserID).Msg("failed to sign session")

		return fiber.NewError(fiber.StatusInternalServerError, ErrInternalServerError.Error())
	}

	c.Cookie(s.codec.Cookie(raw, issued.Expires))
	c.Locals(authmiddleware.LocalUserID, issued.UserID)

	if ret := SafeReturn(form.Return); ret != "" {
		return c.Redirect(ret, fiber.StatusSeeOther)
	}

	return c.JSON(fiber.Map{
		"user_id":  issued.UserID,
		"username": sess.User().Username,
		"subject":  issued.Subject,
		"expires":  issued.Expires,
	})
}

// SafeReturn returns ret when it is a local absolute path, "" otherwise.
func SafeReturn(ret string) string {
	if !strings.HasPrefix(ret, "/") || strings.HasPrefix(ret, "//") || strings.HasPrefix(ret, "/\\") {
		return ""
	}

	return ret
}
