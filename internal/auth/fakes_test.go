package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/db/models"
)

var errBoom = errors.New("boom")

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	byID   map[uint64]models.User
	nextID uint64
	saves  int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]models.User{}}
}

func (m *memUsers) FindByID(_ context.Context, id uint64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	return &u, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.Username == username {
			return &u, nil
		}
	}

	return nil, nil //nolint:nilnil
}

func (m *memUsers) Save(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++

	if u.ID == 0 {
		for _, other := range m.byID {
			if other.Username == u.Username {
				return apperr.DuplicateInsert("username taken", errBoom)
			}
		}

		m.nextID++
		u.ID = m.nextID
	}

	m.byID[u.ID] = *u

	return nil
}

// memContexts is an in-memory ContextStore counting lookups.
type memContexts struct {
	roles   map[uint64]map[string]string
	lookups int
	err     error
}

func (m *memContexts) FindRole(_ context.Context, userID uint64, name string) (string, error) {
	m.lookups++

	if m.err != nil {
		return "", m.err
	}

	return m.roles[userID][name], nil
}

type tokenKey struct {
	userID  uint64
	subject string
}

// memTokens is an in-memory TokenStore.
type memTokens struct {
	rows map[tokenKey]models.Token
}

func newMemTokens() *memTokens {
	return &memTokens{rows: map[tokenKey]models.Token{}}
}

func (m *memTokens) Find(_ context.Context, subject, token string) (*models.Token, error) {
	for _, t := range m.rows {
		if t.Subject == subject && t.Token == token {
			return &t, nil
		}
	}

	return nil, nil //nolint:nilnil
}

func (m *memTokens) Save(_ context.Context, t *models.Token) error {
	m.rows[tokenKey{t.UserID, t.Subject}] = *t

	return nil
}

func (m *memTokens) Remove(_ context.Context, userID uint64, subject string) error {
	delete(m.rows, tokenKey{userID, subject})

	return nil
}

// fakeConn records directory calls.
type fakeConn struct {
	startTLSErr error
	bindErr     error
	boundDN     string
	startedTLS  bool
	closed      bool
}

func (c *fakeConn) StartTLS(*tls.Config) error {
	c.startedTLS = true

	return c.startTLSErr
}

func (c *fakeConn) Bind(dn, _ string) error {
	c.boundDN = dn

	return c.bindErr
}

func (c *fakeConn) Close() error {
	c.closed = true

	return nil
}

// fakeDialer hands out conn or fails with err.
type fakeDialer struct {
	conn  *fakeConn
	err   error
	uri   string
	dials int
}

func (d *fakeDialer) Dial(_ context.Context, uri string, _ time.Duration) (DirectoryConn, error) {
	d.dials++
	d.uri = uri

	if d.err != nil {
		return nil, d.err
	}

	return d.conn, nil
}

// bcryptHash returns a cheap hash for tests.
func bcryptHash(t *testing.T, password string) *string {
	t.Helper()

	raw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	h := string(raw)

	return &h
}

// fixedClock is a settable clock.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time {
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}
