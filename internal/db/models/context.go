package models

import (
	"strings"

	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/apperr"
)

// Context assigns a user a role within a named authorization scope,
// overriding the user's default role there.
type Context struct {
	// UserID is the user the override applies to.
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`
	// Name is the authorization scope, e.g. a tenant or resource key.
	Name string `gorm:"column:context;primaryKey;size:255"`
	// RoleID is the role of the user within the scope.
	RoleID string `gorm:"column:role_id;size:255;not null"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Role Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT" json:"-"`
}

// TableName specifies the database table name for the Context model.
func (Context) TableName() string {
	return "contexts"
}

// AfterFind normalizes a loaded row.
func (c *Context) AfterFind(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.RoleID = strings.TrimSpace(c.RoleID)

	if c.Name == "" {
		return apperr.Data("the context must be specified", nil)
	}

	return nil
}
