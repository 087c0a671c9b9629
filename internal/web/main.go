// Package web assembles the fiber application: access log, authentication
// middleware, the auth handlers and the optional metrics endpoint.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/config"
	fiberlogger "github.com/authgate/authgate/internal/logger/adapter/fiber"
	"github.com/authgate/authgate/internal/web/handler"
	adminuser "github.com/authgate/authgate/internal/web/handler/admin/user"
	"github.com/authgate/authgate/internal/web/handler/login"
	"github.com/authgate/authgate/internal/web/handler/logout"
	"github.com/authgate/authgate/internal/web/handler/me"
	authmiddleware "github.com/authgate/authgate/internal/web/middleware/auth"
)

const (
	// HealthPath answers load balancer checks, 503 while shutting down.
	HealthPath = "/health"
	// MetricsPath exposes prometheus metrics when enabled.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service and blocks until it stops.
func (s *Service) Start() error {
	addr := s.cfg.Webserver.Domain + ":" + strconv.Itoa(s.cfg.Webserver.Port)

	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates the web service. The user administration API is only
// mounted when deps.Users is set.
func New(deps handler.Deps) (*Service, error) {
	if !deps.Valid() {
		return nil, handler.ErrNilDeps
	}

	cfg, svc, codec := deps.Config, deps.Auth, deps.Codec

	title := cfg.Title
	if title == "" {
		title = "authgate"
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192, //nolint:mnd
			AppName:        title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			ErrorHandler:   errorHandler,
		},
	)

	service := &Service{
		App:          app,
		cfg:          cfg,
		fastShutDown: cfg.DevMode || cfg.Webserver.ShutDownTime <= 0,
	}
	service.alive.Store(true)

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:            cfg.Log,
		CacheControlError: fiberlogger.ConfigDefault.CacheControlError,
		SkipURI:           HealthPath,
		Principal:         principal,
	}))

	// registered ahead of the auth middleware, so always public
	app.Get(HealthPath, service.health)

	gate := auth.NewGate(auth.NewPolicy(cfg.Auth.Required, Routes(cfg.Auth.Routes)), svc.Hierarchy(), cfg.Auth.URL)

	app.Use(authmiddleware.New(authmiddleware.Config{
		Service: svc,
		Gate:    gate,
		Codec:   codec,
	}))

	handlers := []handler.Service{new(login.Service), new(logout.Service), new(me.Service)}
	if deps.Users != nil {
		handlers = append(handlers, new(adminuser.Service))
	}

	for _, h := range handlers {
		if err := h.Init(app, deps); err != nil {
			return nil, err
		}
	}

	if cfg.Webserver.Metrics {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Get(handler.RootPath, func(c *fiber.Ctx) error {
		return c.Redirect(me.Path)
	})

	return service, nil
}

// Routes returns the configured route requirements. Unless configured
// otherwise the login and logout pages are public and the user
// administration needs the admin role.
func Routes(configured map[string]string) map[string]string {
	routes := map[string]string{
		login.Path:     "false",
		logout.Path:    "false",
		adminuser.Path: auth.RoleAdmin,
	}

	for prefix, marker := range configured {
		routes[prefix] = marker
	}

	return routes
}

func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("ok")
}

// errorHandler answers with a JSON error body; 5xx details stay in the log.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := http.StatusText(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")

		msg = http.StatusText(code)
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// principal adds the session user to the access log line.
func principal(c *fiber.Ctx, e *zerolog.Event) {
	s := authmiddleware.SessionFrom(c)
	if s == nil || !s.IsLoggedIn() {
		return
	}

	e.Uint64("user_id", s.User().ID).Str("subject", s.Subject())
}
