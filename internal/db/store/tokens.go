package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/authgate/authgate/internal/db/models"
)

// Tokens reads and writes session tokens.
type Tokens struct {
	db *gorm.DB
}

// NewTokens returns a token store on db.
func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// Find returns the token row matching subject and token, or nil.
func (s *Tokens) Find(ctx context.Context, subject, token string) (*models.Token, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var t models.Token

	err := s.db.WithContext(ctx).
		Where("subject = ? AND token = ?", subject, token).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, translate("could not load token", err)
	}

	return &t, nil
}

// Save replaces the token of (t.UserID, t.Subject) atomically.
func (s *Tokens) Save(ctx context.Context, t *models.Token) error {
	if s.db == nil {
		return ErrDBNil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND subject = ?", t.UserID, t.Subject).
			Delete(&models.Token{}).Error; err != nil {
			return err
		}

		return tx.Omit(clause.Associations).Create(t).Error
	})

	return translate("could not save token", err)
}

// Remove deletes the token of userID for subject, if any.
func (s *Tokens) Remove(ctx context.Context, userID uint64, subject string) error {
	if s.db == nil {
		return ErrDBNil
	}

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND subject = ?", userID, subject).
		Delete(&models.Token{}).Error

	return translate("could not remove token", err)
}

// Prune deletes every token expired at now and returns how many were removed.
func (s *Tokens) Prune(ctx context.Context, now time.Time) (int64, error) {
	if s.db == nil {
		return 0, ErrDBNil
	}

	res := s.db.WithContext(ctx).Where("expires <= ?", now).Delete(&models.Token{})
	if res.Error != nil {
		return 0, translate("could not prune tokens", res.Error)
	}

	return res.RowsAffected, nil
}
