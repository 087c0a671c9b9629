package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/apperr"
)

// Token is the active session token of a user for one subject.
// A token is never updated in place, only replaced.
type Token struct {
	// UserID is the owner of the token.
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`
	// Subject is a caller chosen session or device slot.
	Subject string `gorm:"primaryKey;size:255"`
	// Token is the opaque credential presented by later requests.
	Token string `gorm:"size:255;not null;index"`
	// Expires is when the token stops being accepted.
	Expires time.Time `gorm:"not null;index"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the database table name for the Token model.
func (Token) TableName() string {
	return "tokens"
}

// AfterFind normalizes a loaded row and rejects rows missing required fields.
func (t *Token) AfterFind(_ *gorm.DB) error {
	t.Subject = strings.TrimSpace(t.Subject)
	t.Token = strings.TrimSpace(t.Token)

	switch {
	case t.UserID == 0:
		return apperr.Data("the user_id must be specified", nil)
	case t.Subject == "":
		return apperr.Data("the subject must be specified", nil)
	case t.Token == "":
		return apperr.Data("the token must be specified", nil)
	case t.Expires.IsZero():
		return apperr.Data("the datetime expires must be specified", nil)
	}

	return nil
}

// IsExpired reports whether the token is no longer valid at now.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.Expires)
}
