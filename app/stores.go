package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/daemon"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/db/store"
)

type stores struct {
	db        *gorm.DB
	users     *store.Users
	contexts  *store.Contexts
	hierarchy *auth.Hierarchy
}

func openStores(ctx context.Context) (*stores, error) {
	h, err := daemon.Hierarchy(&cfg)
	if err != nil {
		return nil, err
	}

	db, err := daemon.OpenDB(ctx, &cfg, h)
	if err != nil {
		return nil, err
	}

	return &stores{
		db:        db,
		users:     store.NewUsers(db),
		contexts:  store.NewContexts(db),
		hierarchy: h,
	}, nil
}

func (s *stores) user(ctx context.Context, username string) (*models.User, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	return u, nil
}

func (s *stores) role(role string) error {
	if !s.hierarchy.Known(role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}

	return nil
}

func (s *stores) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
