package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/authgate/authgate/internal/db/models"
)

// Contexts reads and writes per context role overrides.
type Contexts struct {
	db *gorm.DB
}

// NewContexts returns a context override store on db.
func NewContexts(db *gorm.DB) *Contexts {
	return &Contexts{db: db}
}

// FindRole returns the role assigned to userID in name, or "" when there is none.
func (s *Contexts) FindRole(ctx context.Context, userID uint64, name string) (string, error) {
	if s.db == nil {
		return "", ErrDBNil
	}

	var c models.Context

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND context = ?", userID, name).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}

	if err != nil {
		return "", translate("could not load context", err)
	}

	return c.RoleID, nil
}

// Assign sets the role of userID in name, replacing an earlier assignment.
func (s *Contexts) Assign(ctx context.Context, userID uint64, name, role string) error {
	if s.db == nil {
		return ErrDBNil
	}

	row := models.Context{UserID: userID, Name: name, RoleID: role}

	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "context"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id"}),
		}).
		Create(&row).Error

	return translate("could not assign context role", err)
}

// Unassign removes the override of userID in name.
func (s *Contexts) Unassign(ctx context.Context, userID uint64, name string) error {
	if s.db == nil {
		return ErrDBNil
	}

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND context = ?", userID, name).
		Delete(&models.Context{}).Error

	return translate("could not unassign context role", err)
}
