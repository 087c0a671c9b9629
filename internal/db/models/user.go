package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/authgate/authgate/internal/apperr"
)

// checksumDateLayout is the granularity of the expiry part of a checksum.
const checksumDateLayout = "2006-01-02"

// ErrUsernameNotEmail is the cause of the data error for a username that is
// not an e-mail address.
var ErrUsernameNotEmail = errors.New("username must be an e-mail address")

var validate = validator.New() //nolint:gochecknoglobals

// User represents an account that can log in.
type User struct {
	// ID is the unique identifier, zero until the user is first persisted.
	ID uint64 `gorm:"primaryKey"`
	// Username is the login name, always a full e-mail address. Directory
	// logins with a bare local part are qualified before lookup.
	Username string `gorm:"unique;size:255;not null"`
	// Password is the Argon2id (or legacy bcrypt) hash. Nil disables password login.
	Password *string `gorm:"size:255" json:"-"`
	// NameFirst is the optional given name.
	NameFirst *string `gorm:"column:name_first;size:255"`
	// NameLast is the optional family name.
	NameLast *string `gorm:"column:name_last;size:255"`
	// RoleID is the default role of the user.
	RoleID string `gorm:"column:role_id;size:255;not null;default:user"`
	// Role is the referenced role (enforced with a foreign key constraint).
	Role Role `gorm:"foreignKey:RoleID;references:ID;constraint:OnDelete:RESTRICT,OnUpdate:CASCADE" json:"-"`
	// Disabled disables the account once it lies in the past.
	Disabled *time.Time
	// Expires is refreshed on login and cleared on logout.
	Expires *time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// NewUser returns an unsaved user with the default role.
func NewUser(username string) *User {
	return &User{
		Username: strings.TrimSpace(username),
		RoleID:   RoleUser,
	}
}

// AfterFind normalizes a loaded row and rejects rows missing required fields.
func (u *User) AfterFind(_ *gorm.DB) error {
	u.Username = strings.TrimSpace(u.Username)
	u.RoleID = strings.TrimSpace(u.RoleID)

	return u.Validate()
}

// Validate reports a data error if a required field is empty or the
// username is not an e-mail address.
func (u *User) Validate() error {
	if u.Username == "" {
		return apperr.Data("the username must be specified", nil)
	}

	if validate.Var(u.Username, "email") != nil {
		return apperr.Data("invalid username "+strconv.Quote(u.Username), ErrUsernameNotEmail)
	}

	if u.RoleID == "" {
		return apperr.Data("the role must be specified", nil)
	}

	return nil
}

// AuthID returns the user ID.
func (u *User) AuthID() uint64 {
	return u.ID
}

// AuthRole returns the default role of the user.
func (u *User) AuthRole() string {
	return u.RoleID
}

// IsDisabled reports whether the account is disabled at now.
func (u *User) IsDisabled(now time.Time) bool {
	return u.Disabled != nil && !u.Disabled.After(now)
}

// RequiresMFA always reports false: multi-factor authentication is not supported.
func (u *User) RequiresMFA() bool {
	return false
}

// HashPassword hashes a plaintext password using Argon2id with the default parameters.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams) //nolint:wrapcheck
}

// SetPassword replaces the stored hash. An empty password disables password login.
func (u *User) SetPassword(password string) error {
	u.Password = nil

	if password == "" {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	u.Password = &hash

	return nil
}

// VerifyPassword compares a plaintext password against the stored hash in
// constant time. A missing hash or an unknown hash format never matches.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == nil || *u.Password == "" {
		return false
	}

	hash := *u.Password

	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		match, err := argon2id.ComparePasswordAndHash(password, hash)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to verify password")
			return false
		}

		return match
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	default:
		log.Warn().Uint64("user_id", u.ID).Msg("unsupported password hash format")
		return false
	}
}

// Checksum fingerprints the security relevant fields of the user as seen at now.
// A changed password, a newly disabled account or an expired login all change it.
func (u *User) Checksum(now time.Time) string {
	var b strings.Builder

	b.WriteString(strconv.FormatUint(u.ID, 10))

	if u.Password != nil {
		b.WriteString(*u.Password)
	}

	if u.Disabled == nil || now.Before(*u.Disabled) {
		b.WriteString("enabled")
	} else {
		b.WriteString("disabled")
	}

	if u.Expires != nil && now.Before(*u.Expires) {
		b.WriteString(u.Expires.UTC().Format(checksumDateLayout))
	} else {
		b.WriteString("expired")
	}

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}
