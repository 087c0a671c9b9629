package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authsvc "github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/db/store"
	authmiddleware "github.com/authgate/authgate/internal/web/middleware/auth"
	"github.com/authgate/authgate/internal/web/session"
)

var errStore = errors.New("store unavailable")

type failingContexts struct{}

func (failingContexts) FindRole(context.Context, uint64, string) (string, error) {
	return "", errStore
}

type env struct {
	svc   *authsvc.Service
	codec *session.Codec
	user  *models.User
}

func newEnv(t *testing.T, contexts authsvc.ContextStore, cfg authsvc.Config) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}, &models.Context{}, &models.Token{}))

	for _, r := range models.DefaultRoles {
		require.NoError(t, db.Create(&models.Role{ID: r}).Error)
	}

	users := store.NewUsers(db)
	if contexts == nil {
		contexts = store.NewContexts(db)
	}

	cfg.TokenTTL = time.Hour

	svc, err := authsvc.NewService(users, contexts, store.NewTokens(db), cfg)
	require.NoError(t, err)

	codec, err := session.NewCodec("0123456789abcdef0123456789abcdef", "sid", true)
	require.NoError(t, err)

	u := models.NewUser("carol@example.com")
	require.NoError(t, u.SetPassword("secret"))
	require.NoError(t, users.Save(context.Background(), u))

	return &env{svc: svc, codec: codec, user: u}
}

// cookie logs the user in and returns the signed session cookie.
func (e *env) cookie(t *testing.T) *http.Cookie {
	t.Helper()

	ctx := context.Background()
	s := e.svc.NewSession("")

	require.NoError(t, s.Login(ctx, "carol@example.com", "secret"))

	issued, err := s.IssueToken(ctx, "")
	require.NoError(t, err)

	raw, err := e.codec.Issue(issued)
	require.NoError(t, err)

	return &http.Cookie{Name: e.codec.CookieName(), Value: raw}
}

func (e *env) app(required string, next func(*fiber.Ctx) bool) *fiber.App {
	app := fiber.New()
	gate := authsvc.NewGate(authsvc.NewPolicy(required, nil), e.svc.Hierarchy(), "")

	app.Use(authmiddleware.New(authmiddleware.Config{Next: next, Service: e.svc, Gate: gate, Codec: e.codec}))
	app.Get("/", func(c *fiber.Ctx) error {
		s := authmiddleware.SessionFrom(c)
		if !s.IsLoggedIn() {
			return c.SendString("anonymous")
		}

		id, _ := c.Locals(authmiddleware.LocalUserID).(uint64)
		u, _ := c.Locals(authmiddleware.LocalUser).(*models.User)

		if u == nil || id != u.ID {
			return fiber.ErrTeapot
		}

		return c.SendString(u.Username)
	})

	return app
}

func get(t *testing.T, app *fiber.App, cookie *http.Cookie) (int, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(b)
}

func TestStoresSessionInLocals(t *testing.T) {
	e := newEnv(t, nil, authsvc.Config{})
	app := e.app("", nil)

	code, body := get(t, app, e.cookie(t))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "carol@example.com", body)

	code, body = get(t, app, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "anonymous", body)
}

func TestUnauthorizedWithoutLoginURL(t *testing.T) {
	e := newEnv(t, nil, authsvc.Config{})

	code, _ := get(t, e.app("true", nil), nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestForbiddenForInsufficientRole(t *testing.T) {
	e := newEnv(t, nil, authsvc.Config{})

	code, _ := get(t, e.app(models.RoleAdmin, nil), e.cookie(t))
	assert.Equal(t, http.StatusForbidden, code)
}

func TestNextSkipsGate(t *testing.T) {
	e := newEnv(t, nil, authsvc.Config{})

	code, body := get(t, e.app("true", func(*fiber.Ctx) bool { return true }), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "anonymous", body)
}

func TestRoleLookupFailureIsServerError(t *testing.T) {
	e := newEnv(t, failingContexts{}, authsvc.Config{Context: "tenant"})

	code, _ := get(t, e.app("true", nil), e.cookie(t))
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestGarbageCookieIsCleared(t *testing.T) {
	e := newEnv(t, nil, authsvc.Config{})
	app := e.app("", nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: e.codec.CookieName(), Value: "garbage"})

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, resp.Cookies(), 1)
	assert.Empty(t, resp.Cookies()[0].Value)
}
