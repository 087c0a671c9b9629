// Package user provides the JSON user administration API.
package user

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/db/store"
	"github.com/authgate/authgate/internal/web/handler"
	authmiddleware "github.com/authgate/authgate/internal/web/middleware/auth"
)

const (
	// Path is the base path for user management.
	Path = handler.RootPath + "admin/users"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
	// MaxPageSize caps the pageSize query parameter.
	MaxPageSize = 100
)

var (
	// ErrInvalidID is returned for a non numeric user id.
	ErrInvalidID = errors.New("invalid user id")
	// ErrSelf is returned when an admin tries to remove or disable the own account.
	ErrSelf = errors.New("refusing to change the own account")
	// ErrOutranked is returned when the target role is above the caller's role.
	ErrOutranked = errors.New("role exceeds your own")
)

// Service provides CRUD operations for users.
type Service struct {
	users     *store.Users
	hierarchy *auth.Hierarchy
	validator *validator.Validate
}

// View is the JSON representation of a user.
type View struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	NameFirst *string    `json:"name_first,omitempty"`
	NameLast  *string    `json:"name_last,omitempty"`
	Role      string     `json:"role"`
	Disabled  *time.Time `json:"disabled,omitempty"`
	Expires   *time.Time `json:"expires,omitempty"`
	Password  bool       `json:"password"`
}

// Input is the body of Create.
type Input struct {
	Username  string `json:"username" form:"username" validate:"required,email,max=255"`
	Password  string `json:"password" form:"password"`
	Role      string `json:"role" form:"role"`
	NameFirst string `json:"name_first" form:"name_first" validate:"max=255"`
	NameLast  string `json:"name_last" form:"name_last" validate:"max=255"`
}

// Page is the body of List.
type Page struct {
	Users      []View `json:"users"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalItems int64  `json:"total_items"`
	TotalPages int    `json:"total_pages"`
}

// Init registers routes. Access is guarded by the route policy of Path.
func (s *Service) Init(app *fiber.App, deps handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Users == nil {
		return handler.ErrNilDeps
	}

	s.users = deps.Users
	s.hierarchy = deps.Auth.Hierarchy()
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Post(Path, s.Create)
	app.Get(Path+"/:id", s.Get)
	app.Post(Path+"/:id/disable", s.Disable)
	app.Post(Path+"/:id/enable", s.Enable)
	app.Delete(Path+"/:id", s.Delete)

	return nil
}

// NewView converts a user.
func NewView(u *models.User) View {
	return View{
		ID:        u.ID,
		Username:  u.Username,
		NameFirst: u.NameFirst,
		NameLast:  u.NameLast,
		Role:      u.RoleID,
		Disabled:  u.Disabled,
		Expires:   u.Expires,
		Password:  u.Password != nil,
	}
}

// List shows users with simple pagination and search.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	users, total, err := s.users.Page(c.UserContext(), strings.TrimSpace(c.Query("search")), pageSize, (page-1)*pageSize)
	if err != nil {
		log.Error().Err(err).Msg("query users failed")

		return fiber.ErrInternalServerError
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	out := Page{
		Users:      make([]View, 0, len(users)),
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}

	for i := range users {
		out.Users = append(out.Users, NewView(&users[i]))
	}

	return c.JSON(out)
}

// Get returns one user.
func (s *Service) Get(c *fiber.Ctx) error {
	u, err := s.load(c)
	if err != nil {
		return err
	}

	return c.JSON(NewView(u))
}

// Create adds a user.
func (s *Service) Create(c *fiber.Ctx) error {
	in := new(Input)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid form data")
	}

	in.Username = strings.TrimSpace(in.Username)

	if err := s.validator.Struct(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if in.Role == "" {
		in.Role = models.RoleUser
	}

	if !s.hierarchy.Known(in.Role) {
		return fiber.NewError(fiber.StatusBadRequest, "unknown role "+in.Role)
	}

	if err := s.authorize(c, in.Role); err != nil {
		return err
	}

	u := models.NewUser(in.Username)
	u.RoleID = in.Role

	if in.NameFirst != "" {
		u.NameFirst = &in.NameFirst
	}

	if in.NameLast != "" {
		u.NameLast = &in.NameLast
	}

	if err := u.SetPassword(in.Password); err != nil {
		log.Error().Err(err).Msg("failed to hash password")

		return fiber.ErrInternalServerError
	}

	if err := s.users.Save(c.UserContext(), u); err != nil {
		if errors.Is(err, apperr.ErrDuplicateInsert) {
			return fiber.NewError(fiber.StatusConflict, "username taken")
		}

		log.Error().Err(err).Str("username", u.Username).Msg("failed to create user")

		return fiber.ErrInternalServerError
	}

	log.Info().Uint64("user_id", u.ID).Str("role", u.RoleID).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(NewView(u))
}

// Disable disables a user immediately, ending its sessions.
func (s *Service) Disable(c *fiber.Ctx) error {
	return s.update(c, func(u *models.User) {
		now := time.Now()
		u.Disabled = &now
	})
}

// Enable re-enables a user.
func (s *Service) Enable(c *fiber.Ctx) error {
	return s.update(c, func(u *models.User) {
		u.Disabled = nil
	})
}

// Delete removes a user with its tokens and context roles.
func (s *Service) Delete(c *fiber.Ctx) error {
	u, err := s.load(c)
	if err != nil {
		return err
	}

	if isSelf(c, u) {
		return fiber.NewError(fiber.StatusForbidden, ErrSelf.Error())
	}

	if err = s.authorize(c, u.RoleID); err != nil {
		return err
	}

	if err = s.users.Remove(c.UserContext(), u.ID); err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to delete user")

		return fiber.ErrInternalServerError
	}

	log.Info().Uint64("user_id", u.ID).Msg("user deleted")

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Service) update(c *fiber.Ctx, change func(u *models.User)) error {
	u, err := s.load(c)
	if err != nil {
		return err
	}

	if isSelf(c, u) {
		return fiber.NewError(fiber.StatusForbidden, ErrSelf.Error())
	}

	if err = s.authorize(c, u.RoleID); err != nil {
		return err
	}

	change(u)

	if err = s.users.Save(c.UserContext(), u); err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to update user")

		return fiber.ErrInternalServerError
	}

	return c.JSON(NewView(u))
}

func (s *Service) load(c *fiber.Ctx) (*models.User, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, ErrInvalidID.Error())
	}

	u, err := s.users.FindByID(c.UserContext(), id)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", id).Msg("failed to load user")

		return nil, fiber.ErrInternalServerError
	}

	if u == nil {
		return nil, fiber.ErrNotFound
	}

	return u, nil
}

// authorize fails unless the caller's effective role satisfies role.
func (s *Service) authorize(c *fiber.Ctx, role string) error {
	sess := authmiddleware.SessionFrom(c)
	if sess == nil || !sess.IsLoggedIn() {
		return fiber.ErrUnauthorized
	}

	have, err := sess.Role(c.UserContext())
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve caller role")

		return fiber.ErrInternalServerError
	}

	if !s.hierarchy.Satisfies(have, role) {
		log.Warn().Str("role", have).Str("target", role).Msg("user administration above own role")

		return fiber.NewError(fiber.StatusForbidden, ErrOutranked.Error())
	}

	return nil
}

func isSelf(c *fiber.Ctx, u *models.User) bool {
	id, ok := c.Locals(authmiddleware.LocalUserID).(uint64)

	return ok && id == u.ID
}
