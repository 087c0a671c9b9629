package auth

import (
	"context"
	"time"

	"github.com/authgate/authgate/internal/db/models"
)

// User is the capability set of an account. *models.User satisfies it.
// VerifyPassword checks the local hash only; Service.VerifyPassword adds
// the directory.
type User interface {
	AuthID() uint64
	AuthRole() string
	VerifyPassword(password string) bool
	IsDisabled(now time.Time) bool
}

var _ User = (*models.User)(nil)

// Context is an authorization scope in which a user may hold a role other
// than the default one. The resolved user and role are cached on the value,
// so a Context belongs to a single request and is not safe for concurrent use.
type Context struct {
	// Name identifies the scope, e.g. a tenant or resource key.
	Name string
	// UserID is the user RoleID was resolved for, nil until resolved.
	UserID *uint64
	// RoleID is the override role, nil when the user has none in this scope.
	RoleID *string
}

// NewContext returns an unresolved context. An empty name returns nil.
func NewContext(name string) *Context {
	if name == "" {
		return nil
	}

	return &Context{Name: name}
}

// Resolver computes effective roles.
type Resolver struct {
	contexts ContextStore
}

// NewResolver returns a resolver reading overrides from contexts.
func NewResolver(contexts ContextStore) *Resolver {
	return &Resolver{contexts: contexts}
}

// EffectiveRole returns the role of user within c, falling back to the
// user's default role when c is nil or holds no override.
func (r *Resolver) EffectiveRole(ctx context.Context, user User, c *Context) (string, error) {
	if c == nil {
		return user.AuthRole(), nil
	}

	if err := r.resolve(ctx, c, user.AuthID()); err != nil {
		return "", err
	}

	if c.RoleID != nil && *c.RoleID != "" {
		return *c.RoleID, nil
	}

	return user.AuthRole(), nil
}

// resolve loads the override of userID unless c is already bound to it.
func (r *Resolver) resolve(ctx context.Context, c *Context, userID uint64) error {
	if c.UserID != nil && *c.UserID == userID {
		return nil
	}

	c.UserID = nil
	c.RoleID = nil

	role, err := r.contexts.FindRole(ctx, userID, c.Name)
	if err != nil {
		return err
	}

	c.UserID = &userID

	if role != "" {
		c.RoleID = &role
	}

	return nil
}
