// Package store persists users, context overrides and tokens with gorm.
//
// Lookups that find nothing return nil without error. Every other failure is
// mapped onto apperr: unique violations to ErrDuplicateInsert, anything else
// to ErrData.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/db/models"
)

// Users reads and writes models.User rows.
type Users struct {
	db *gorm.DB
}

// NewUsers returns a user store on db.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByID returns the user with id, or nil.
func (s *Users) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, translate("could not load user", err)
	}

	return &u, nil
}

// FindByUsername returns the user named username, or nil.
func (s *Users) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, translate("could not load user", err)
	}

	return &u, nil
}

// Save inserts u when it has no ID yet and assigns the generated ID,
// otherwise it updates every column of the existing row.
func (s *Users) Save(ctx context.Context, u *models.User) error {
	if s.db == nil {
		return ErrDBNil
	}

	if err := u.Validate(); err != nil {
		return err
	}

	tx := s.db.WithContext(ctx).Omit(clause.Associations)

	if u.ID == 0 {
		return translate("could not insert user", tx.Create(u).Error)
	}

	res := tx.Select("*").Updates(u)
	if res.Error != nil {
		return translate("could not update user", res.Error)
	}

	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows for an update without changes
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", u.ID).Count(&n).Error; err != nil {
		return translate("could not update user", err)
	}

	if n == 0 {
		return apperr.Data("could not update user "+strconv.FormatUint(u.ID, 10), ErrUserGone)
	}

	return nil
}

// Remove deletes the user with id. Tokens go with it.
func (s *Users) Remove(ctx context.Context, id uint64) error {
	if s.db == nil {
		return ErrDBNil
	}

	return translate("could not remove user", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Context{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	}))
}

// List returns all users ordered by username.
func (s *Users) List(ctx context.Context) ([]models.User, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var users []models.User

	if err := s.db.WithContext(ctx).Order("username").Find(&users).Error; err != nil {
		return nil, translate("could not list users", err)
	}

	return users, nil
}

// Page returns one page of users, newest first, whose username contains
// search (case insensitive), together with the total number of matches.
func (s *Users) Page(ctx context.Context, search string, limit, offset int) ([]models.User, int64, error) {
	if s.db == nil {
		return nil, 0, ErrDBNil
	}

	var (
		users []models.User
		total int64
		tx    = s.db.WithContext(ctx).Model(&models.User{})
	)

	if search != "" {
		tx = tx.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	// reusable for count and find
	tx = tx.Session(&gorm.Session{})

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, translate("could not count users", err)
	}

	if err := tx.Order("id DESC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, translate("could not list users", err)
	}

	return users, total, nil
}
