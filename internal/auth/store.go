package auth

import (
	"context"

	"github.com/authgate/authgate/internal/db/models"
)

// UserStore loads and persists users. Find methods return nil, nil when
// nothing matches.
type UserStore interface {
	FindByID(ctx context.Context, id uint64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Save(ctx context.Context, u *models.User) error
}

// ContextStore loads per context role overrides. FindRole returns "" when
// the user has no override in the context.
type ContextStore interface {
	FindRole(ctx context.Context, userID uint64, context string) (string, error)
}

// TokenStore persists session tokens. Save replaces the token of the same
// user and subject; Find returns nil, nil when nothing matches.
type TokenStore interface {
	Find(ctx context.Context, subject, token string) (*models.Token, error)
	Save(ctx context.Context, t *models.Token) error
	Remove(ctx context.Context, userID uint64, subject string) error
}
