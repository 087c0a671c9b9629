package redis_test

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/tokenstore/redis"
)

const prefix = "ag"

func newStore(t *testing.T) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	s, err := redis.Open(context.Background(), config.Redis{Addr: mr.Addr(), Prefix: prefix})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s, mr
}

func token(uid uint64, subject, tok string, expires time.Time) *models.Token {
	return &models.Token{UserID: uid, Subject: subject, Token: tok, Expires: expires}
}

func TestSaveFind(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Minute).UTC().Truncate(time.Second)

	require.NoError(t, s.Save(ctx, token(1, "web", "first", exp)))

	got, err := s.Find(ctx, "web", "first")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(1), got.UserID)
	assert.Equal(t, "web", got.Subject)
	assert.True(t, exp.Equal(got.Expires))

	owner, err := mr.Get(prefix + ":token-owner:1:web")
	require.NoError(t, err)
	assert.Equal(t, "first", owner)
	assert.Positive(t, mr.TTL(prefix+":token:web:first"))

	got, err = s.Find(ctx, "web", "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Find(ctx, "api", "first")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveReplacesPerSubject(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Minute)

	require.NoError(t, s.Save(ctx, token(1, "web", "first", exp)))
	require.NoError(t, s.Save(ctx, token(1, "api", "other", exp)))
	require.NoError(t, s.Save(ctx, token(1, "web", "second", exp)))

	got, err := s.Find(ctx, "web", "first")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Find(ctx, "web", "second")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = s.Find(ctx, "api", "other")
	require.NoError(t, err)
	assert.NotNil(t, got, "other subjects are untouched")
}

func TestSaveConcurrentLeavesOneToken(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Minute)

	const logins = 8

	var wg sync.WaitGroup

	errs := make(chan error, logins)

	for i := range logins {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- s.Save(ctx, token(1, "web", "tok"+strconv.Itoa(i), exp))
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var tokens []string

	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, prefix+":token:web:") {
			tokens = append(tokens, k)
		}
	}

	require.Len(t, tokens, 1)

	owner, err := mr.Get(prefix + ":token-owner:1:web")
	require.NoError(t, err)
	assert.Equal(t, prefix+":token:web:"+owner, tokens[0])
}

func TestSaveExpiredDropsToken(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, token(1, "web", "first", time.Now().Add(time.Minute))))
	require.NoError(t, s.Save(ctx, token(1, "web", "late", time.Now().Add(-time.Second))))

	got, err := s.Find(ctx, "web", "first")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Find(ctx, "web", "late")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.False(t, mr.Exists(prefix+":token-owner:1:web"))
}

func TestTokensExpireWithTTL(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, token(1, "web", "first", time.Now().Add(time.Minute))))

	mr.FastForward(2 * time.Minute)

	got, err := s.Find(ctx, "web", "first")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.Prune(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindRejectsBrokenRows(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(prefix+":token:web:garbage", "{not json"))
	require.NoError(t, mr.Set(prefix+":token:web:partial", `{"UserID":0,"Subject":"web","Token":"partial"}`))

	_, err := s.Find(ctx, "web", "garbage")
	assert.ErrorIs(t, err, apperr.ErrData)

	_, err = s.Find(ctx, "web", "partial")
	assert.ErrorIs(t, err, apperr.ErrData)
}

func TestRemove(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, token(1, "web", "first", time.Now().Add(time.Minute))))
	require.NoError(t, s.Remove(ctx, 1, "web"))

	got, err := s.Find(ctx, "web", "first")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, mr.Keys())

	// nothing left to remove
	require.NoError(t, s.Remove(ctx, 1, "web"))
}

func TestServerFailureIsDataError(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	mr.SetError("server down")

	_, err := s.Find(ctx, "web", "first")
	assert.ErrorIs(t, err, apperr.ErrData)

	err = s.Save(ctx, token(1, "web", "first", time.Now().Add(time.Minute)))
	assert.ErrorIs(t, err, apperr.ErrData)

	err = s.Remove(ctx, 1, "web")
	assert.ErrorIs(t, err, apperr.ErrData)
}

func TestNewOnClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	s := redis.New(client, "")

	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(context.Background(), token(2, "web", "x", time.Now().Add(time.Minute))))
	assert.True(t, mr.Exists(redis.DefaultPrefix+":token:web:x"))
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := redis.Open(ctx, config.Redis{Addr: "127.0.0.1:1"})
	assert.ErrorIs(t, err, apperr.ErrData)
}
