package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate/internal/apperr"
)

func TestVerifyPassword(t *testing.T) {
	user := NewUser("a@example.com")
	require.NoError(t, user.SetPassword("secret"))

	assert.True(t, user.VerifyPassword("secret"))
	assert.False(t, user.VerifyPassword("wrong"))
	assert.False(t, user.VerifyPassword(""))
}

func TestVerifyPassword_LegacyBcrypt(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	// hashes written by other stacks use the $2y$ prefix
	hash := "$2y$" + string(raw[4:])
	user := &User{Username: "a@example.com", RoleID: RoleUser, Password: &hash}

	assert.True(t, user.VerifyPassword("secret"))
	assert.False(t, user.VerifyPassword("wrong"))
}

func TestVerifyPassword_NoHash(t *testing.T) {
	empty := ""
	unknown := "plaintext"

	for _, hash := range []*string{nil, &empty, &unknown} {
		user := &User{Username: "a@example.com", RoleID: RoleUser, Password: hash}
		assert.False(t, user.VerifyPassword("plaintext"))
	}
}

func TestSetPassword_EmptyDisablesPasswordLogin(t *testing.T) {
	user := NewUser("a@example.com")
	require.NoError(t, user.SetPassword("secret"))
	require.NotNil(t, user.Password)

	require.NoError(t, user.SetPassword(""))
	assert.Nil(t, user.Password)
}

func TestIsDisabled(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		disabled *time.Time
		want     bool
	}{
		{"never disabled", nil, false},
		{"disabled in the past", &past, true},
		{"disabled exactly now", &now, true},
		{"disabled in the future", &future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &User{Disabled: tt.disabled}
			assert.Equal(t, tt.want, user.IsDisabled(now))
		})
	}
}

func TestChecksum(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expires := now.Add(24 * time.Hour)
	hash := "$argon2id$v=19$m=65536,t=1,p=2$c2FsdA$aGFzaA"

	base := func() *User {
		return &User{ID: 7, Username: "a@example.com", RoleID: RoleUser, Password: &hash, Expires: &expires}
	}

	sum := base().Checksum(now)
	assert.Len(t, sum, 64)
	assert.Equal(t, sum, base().Checksum(now), "checksum must be deterministic")

	otherHash := hash + "x"
	changed := base()
	changed.Password = &otherHash
	assert.NotEqual(t, sum, changed.Checksum(now), "password change")

	disabled := base()
	disabled.Disabled = &now
	assert.NotEqual(t, sum, disabled.Checksum(now), "account disabled")

	loggedOut := base()
	loggedOut.Expires = nil
	assert.NotEqual(t, sum, loggedOut.Checksum(now), "login expired")

	assert.NotEqual(t, sum, base().Checksum(expires), "expiry reached")

	other := base()
	other.ID = 8
	assert.NotEqual(t, sum, other.Checksum(now), "different user")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewUser("a@example.com").Validate())

	err := (&User{RoleID: RoleUser}).Validate()
	assert.ErrorIs(t, err, apperr.ErrData)

	err = (&User{Username: "a@example.com"}).Validate()
	assert.ErrorIs(t, err, apperr.ErrData)

	for _, name := range []string{"bob", "bob@", "@example.com", "bob example.com"} {
		err = NewUser(name).Validate()
		assert.ErrorIs(t, err, apperr.ErrData, name)
		assert.ErrorIs(t, err, ErrUsernameNotEmail, name)
	}
}

func TestTokenIsExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, (&Token{Expires: now.Add(-time.Second)}).IsExpired(now))
	assert.True(t, (&Token{Expires: now}).IsExpired(now))
	assert.False(t, (&Token{Expires: now.Add(time.Second)}).IsExpired(now))
}
