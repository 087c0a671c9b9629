package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/db/models"
)

const testConfigTOML = `
title = "authgate-test"

[webserver]
port = 8080
url = "http://localhost:8080"

[db]
gorm_engine = "sqlite"
path = "%DB%"

[auth]
expires = 900
secret = "0123456789abcdef0123456789abcdef"

[log]
loglevel = "error"
`

func configDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	toml := strings.ReplaceAll(testConfigTOML, "%DB%", filepath.ToSlash(filepath.Join(dir, "authgate.db")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.toml"), []byte(toml), 0o600))

	return dir
}

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()

	// flag values outlive a single Execute
	userRole = models.RoleUser
	userFirst = ""
	userLast = ""
	userNoPassword = false
	userDisableAt = ""

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))

	err := rootCmd.Execute()

	return out.String(), err
}

func loadUser(t *testing.T, username string) *models.User {
	t.Helper()

	s, err := openStores(context.Background())
	require.NoError(t, err)

	defer s.close()

	u, err := s.user(context.Background(), username)
	require.NoError(t, err)

	return u
}

func TestUserLifecycle(t *testing.T) {
	dir := configDir(t)

	out, err := run(t, dir, "secret\nsecret\n", "user", "add", "erin@example.com", "--role", "admin", "--first", "Erin")
	require.NoError(t, err)
	assert.Contains(t, out, "created user erin@example.com")

	u := loadUser(t, "erin@example.com")
	assert.Equal(t, models.RoleAdmin, u.RoleID)
	require.NotNil(t, u.NameFirst)
	assert.Equal(t, "Erin", *u.NameFirst)
	assert.True(t, u.VerifyPassword("secret"))

	_, err = run(t, dir, "x\nx\n", "user", "add", "erin@example.com")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = run(t, dir, "", "user", "disable", "erin@example.com")
	require.NoError(t, err)
	assert.NotNil(t, loadUser(t, "erin@example.com").Disabled)

	_, err = run(t, dir, "", "user", "enable", "erin@example.com")
	require.NoError(t, err)
	assert.Nil(t, loadUser(t, "erin@example.com").Disabled)

	_, err = run(t, dir, "changed\nchanged\n", "user", "passwd", "erin@example.com")
	require.NoError(t, err)
	assert.True(t, loadUser(t, "erin@example.com").VerifyPassword("changed"))

	_, err = run(t, dir, "", "user", "role", "erin@example.com", models.RoleSuper)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuper, loadUser(t, "erin@example.com").RoleID)

	out, err = run(t, dir, "", "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "erin@example.com\tsuper\tenabled")

	_, err = run(t, dir, "", "user", "remove", "erin@example.com")
	require.NoError(t, err)

	_, err = run(t, dir, "", "user", "remove", "erin@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserAddValidation(t *testing.T) {
	dir := configDir(t)

	_, err := run(t, dir, "a\nb\n", "user", "add", "frank@example.com")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = run(t, dir, "", "user", "add", "frank@example.com", "--role", "root", "--no-password")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = run(t, dir, "secret\nsecret\n", "user", "add", "frank")
	assert.ErrorIs(t, err, models.ErrUsernameNotEmail)

	_, err = run(t, dir, "", "user", "add", "frank@example.com", "--no-password")
	require.NoError(t, err)
	assert.Nil(t, loadUser(t, "frank@example.com").Password)

	_, err = run(t, dir, "", "user", "role", "frank@example.com", "root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestContextCommands(t *testing.T) {
	dir := configDir(t)

	_, err := run(t, dir, "", "user", "add", "gina@example.com", "--no-password")
	require.NoError(t, err)

	out, err := run(t, dir, "", "context", "set", "gina@example.com", "tenant-a", models.RoleAdmin)
	require.NoError(t, err)
	assert.Contains(t, out, "role admin in context tenant-a")

	s, err := openStores(context.Background())
	require.NoError(t, err)

	role, err := s.contexts.FindRole(context.Background(), loadUser(t, "gina@example.com").ID, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)
	s.close()

	_, err = run(t, dir, "", "context", "unset", "gina@example.com", "tenant-a")
	require.NoError(t, err)

	_, err = run(t, dir, "", "context", "set", "gina@example.com", "tenant-a", "root")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestTokenPruneAndConfigDump(t *testing.T) {
	dir := configDir(t)

	out, err := run(t, dir, "", "token", "prune")
	require.NoError(t, err)
	assert.Equal(t, "pruned 0 tokens\n", out)

	out, err = run(t, dir, "", "config", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, `"Title": "authgate-test"`)
	assert.NotContains(t, out, "0123456789abcdef0123456789abcdef")
}

func TestMissingConfig(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "config", "dump")
	require.Error(t, err)
}
