// Package daemon wires configuration, storage, the auth service and the
// web service together and runs them.
package daemon

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/db/dsn"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/db/store"
	"github.com/authgate/authgate/internal/events/amqp"
	"github.com/authgate/authgate/internal/logger/adapter/stdlogger"
	"github.com/authgate/authgate/internal/tokenstore/redis"
	"github.com/authgate/authgate/internal/web"
	"github.com/authgate/authgate/internal/web/handler"
	"github.com/authgate/authgate/internal/web/session"
)

const (
	// TokenStoreDB keeps tokens in the database.
	TokenStoreDB = "db"
	// TokenStoreRedis keeps tokens in redis.
	TokenStoreRedis = "redis"
)

// TokenStore is an auth.TokenStore that can drop expired tokens.
type TokenStore interface {
	auth.TokenStore
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	webService *web.Service
	tokens     TokenStore
	cron       *cron.Cron
	closers    []func() error
}

// OpenDB connects to the configured database, migrates the schema and
// seeds the roles of h.
func OpenDB(ctx context.Context, cfg *config.Config, h *auth.Hierarchy) (*gorm.DB, error) {
	db, err := dsn.Open(cfg.DB, cfg.DevMode)
	if err != nil {
		return nil, err
	}

	if err = db.WithContext(ctx).AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Context{},
		&models.Token{},
	); err != nil {
		return nil, apperr.Data("failed to migrate database", err)
	}

	if err = seed(ctx, db, h); err != nil {
		return nil, err
	}

	return db, nil
}

// Hierarchy builds the role hierarchy from the roles section.
func Hierarchy(cfg *config.Config) (*auth.Hierarchy, error) {
	if len(cfg.Roles) == 0 {
		return auth.DefaultHierarchy(), nil
	}

	return auth.NewHierarchy(cfg.Roles)
}

// OpenTokenStore returns the configured token store and its close function.
func OpenTokenStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (TokenStore, func() error, error) {
	switch cfg.Auth.TokenStore {
	case TokenStoreRedis:
		s, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil
	case TokenStoreDB, "":
		return store.NewTokens(db), func() error { return nil }, nil
	default:
		return nil, nil, apperr.Config("unknown token store "+cfg.Auth.TokenStore, nil)
	}
}

// NewAuthService builds the auth service on db and tokens.
func NewAuthService(cfg *config.Config, db *gorm.DB, tokens auth.TokenStore, h *auth.Hierarchy) (*auth.Service, error) {
	directory := auth.NewDirectoryVerifier(auth.LDAPConfig{
		Enabled:    cfg.LDAP.Enabled,
		Domain:     cfg.LDAP.Domain,
		Host:       cfg.LDAP.Host,
		Port:       cfg.LDAP.Port,
		Bind:       cfg.LDAP.Bind,
		StartTLS:   cfg.LDAP.StartTLS,
		SkipVerify: cfg.LDAP.SkipVerify,
		Timeout:    time.Duration(cfg.LDAP.Timeout) * time.Second,
	}, auth.LDAPDialer{})

	return auth.NewService(
		store.NewUsers(db),
		store.NewContexts(db),
		tokens,
		auth.Config{
			TokenTTL:    cfg.Auth.TTL(),
			LoginExpiry: cfg.Auth.LoginExpiry,
			Subject:     cfg.Auth.Subject,
			Context:     cfg.Auth.Context,
		},
		auth.WithDirectory(directory),
		auth.WithHierarchy(h),
	)
}

// PruneTokens removes expired tokens and logs how many were dropped.
func PruneTokens(ctx context.Context, tokens TokenStore) (int64, error) {
	n, err := tokens.Prune(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	log.Info().Int64("tokens", n).Msg("pruned expired tokens")

	return n, nil
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, apperr.Config("config is nil", nil)
	}

	d := &Daemon{cfg: cfg}

	if err := d.build(ctx); err != nil {
		d.close()

		return nil, err
	}

	return d, nil
}

// build opens every resource of the daemon. Whatever was opened before a
// failure is registered in d.closers.
func (d *Daemon) build(ctx context.Context) error {
	cfg := d.cfg

	h, err := Hierarchy(cfg)
	if err != nil {
		return err
	}

	if d.db, err = OpenDB(ctx, cfg, h); err != nil {
		return err
	}

	d.closers = append(d.closers, closeDB(d.db))

	tokens, closeTokens, err := OpenTokenStore(ctx, cfg, d.db)
	if err != nil {
		return err
	}

	d.tokens = tokens
	d.closers = append(d.closers, closeTokens)

	svc, err := NewAuthService(cfg, d.db, tokens, h)
	if err != nil {
		return err
	}

	if cfg.AMQP.Enabled {
		publisher, dialErr := amqp.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if dialErr != nil {
			return dialErr
		}

		svc.OnLogin(publisher.LoginListener())
		svc.OnLogout(publisher.LogoutListener())
		d.closers = append(d.closers, publisher.Close)
	}

	codec, err := session.NewCodec(cfg.Auth.Secret, cfg.Auth.CookieName, cfg.DevMode)
	if err != nil {
		return apperr.Config("invalid session settings", err)
	}

	d.webService, err = web.New(handler.Deps{
		Config: cfg,
		Auth:   svc,
		Codec:  codec,
		Users:  store.NewUsers(d.db),
	})
	if err != nil {
		return err
	}

	if cfg.Prune.Enabled {
		return d.schedulePrune()
	}

	return nil
}

func closeDB(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err //nolint:wrapcheck
		}

		return sqlDB.Close() //nolint:wrapcheck
	}
}

func (d *Daemon) schedulePrune() error {
	l := stdlogger.NewComponent("cron")
	d.cron = cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l)))

	_, err := d.cron.AddFunc(d.cfg.Prune.Schedule, func() {
		if _, err := PruneTokens(context.Background(), d.tokens); err != nil {
			log.Error().Err(err).Msg("failed to prune tokens")
		}
	})
	if err != nil {
		return apperr.Config("invalid prune schedule "+d.cfg.Prune.Schedule, err)
	}

	return nil
}

// Start runs the web service until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	if d.cron != nil {
		d.cron.Start()
	}

	errs := make(chan error, 1)

	go func() {
		errs <- d.webService.Start()
	}()

	go d.webService.WaitShutdown()

	err := <-errs

	if d.cron != nil {
		<-d.cron.Stop().Done()
	}

	d.close()

	return err
}

// close releases resources in reverse order of opening.
func (d *Daemon) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}

	d.closers = nil
}
