// Package redis stores session tokens in Redis. Expiry is delegated to key TTLs.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/db/models"
	"github.com/authgate/authgate/internal/logger/adapter/stdlogger"
)

const (
	// DefaultPrefix is used when no key prefix is configured.
	DefaultPrefix = "authgate"

	maxTxRetries = 100
)

// ErrContention is returned when a token could not be swapped because other
// clients kept changing it.
var ErrContention = errors.New("token changed concurrently too often")

// Store is a token store backed by Redis.
type Store struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
}

// Open connects to the Redis server described by cfg and pings it.
func Open(ctx context.Context, cfg config.Redis) (*Store, error) {
	goredis.SetLogger(stdlogger.NewComponent("redis").Context())

	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, apperr.Data("could not connect to redis at "+cfg.Addr, err)
	}

	return New(client, cfg.Prefix), nil
}

// New returns a store on an existing client.
func New(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close() //nolint:wrapcheck
}

func (s *Store) tokenKey(subject, token string) string {
	return s.prefix + ":token:" + subject + ":" + token
}

func (s *Store) ownerKey(userID uint64, subject string) string {
	return s.prefix + ":token-owner:" + strconv.FormatUint(userID, 10) + ":" + subject
}

// Find returns the token matching subject and token, or nil.
func (s *Store) Find(ctx context.Context, subject, token string) (*models.Token, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(subject, token)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, apperr.Data("could not load token", err)
	}

	var t models.Token
	if err = json.Unmarshal(raw, &t); err != nil {
		return nil, apperr.Data("could not decode token", err)
	}

	if t.UserID == 0 || t.Subject == "" || t.Token == "" || t.Expires.IsZero() {
		return nil, apperr.Data("stored token is incomplete", nil)
	}

	return &t, nil
}

// Save replaces the token of (t.UserID, t.Subject). The owner key is
// watched, so concurrent saves for one pair leave exactly one live token.
func (s *Store) Save(ctx context.Context, t *models.Token) error {
	owner := s.ownerKey(t.UserID, t.Subject)
	ttl := t.Expires.Sub(s.now())

	body, err := json.Marshal(t)
	if err != nil {
		return apperr.Data("could not encode token", err)
	}

	err = s.watch(ctx, owner, func(tx *goredis.Tx) error {
		old, err := tx.Get(ctx, owner).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if old != "" {
				pipe.Del(ctx, s.tokenKey(t.Subject, old))
			}

			if ttl <= 0 {
				pipe.Del(ctx, owner)

				return nil
			}

			pipe.Set(ctx, s.tokenKey(t.Subject, t.Token), body, ttl)
			pipe.Set(ctx, owner, t.Token, ttl)

			return nil
		})

		return err
	})
	if err != nil {
		return apperr.Data("could not save token", err)
	}

	return nil
}

// Remove deletes the token of userID for subject, if any.
func (s *Store) Remove(ctx context.Context, userID uint64, subject string) error {
	owner := s.ownerKey(userID, subject)

	err := s.watch(ctx, owner, func(tx *goredis.Tx) error {
		old, err := tx.Get(ctx, owner).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}

		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, s.tokenKey(subject, old), owner)

			return nil
		})

		return err
	})
	if err != nil {
		return apperr.Data("could not remove token", err)
	}

	return nil
}

// watch runs fn in an optimistic transaction on key, retrying while another
// client changes key in between.
func (s *Store) watch(ctx context.Context, key string, fn func(tx *goredis.Tx) error) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, fn, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err //nolint:wrapcheck
		}

		if ctx.Err() != nil {
			return ctx.Err() //nolint:wrapcheck
		}
	}

	return ErrContention
}

// Prune is a no-op: Redis expires keys on its own.
func (s *Store) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}
