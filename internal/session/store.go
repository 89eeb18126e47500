// Package session stores opaque login tokens in Redis with a TTL. A token
// maps to a user id; expiry is handled by Redis, nothing is swept here.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"papertrade/internal/errs"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Store {
	return &Store{rdb: rdb, ttl: ttl, log: log}
}

// Create mints a token for userID and stores it with the configured TTL.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errs.Wrap(errs.KindPersistence, err, "generate session token")
	}
	token := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, key(token), userID, s.ttl).Err(); err != nil {
		return "", errs.Wrap(errs.KindPersistence, err, "store session")
	}
	return token, nil
}

// UserID resolves a token to the user id it was minted for.
func (s *Store) UserID(ctx context.Context, token string) (string, error) {
	id, err := s.rdb.Get(ctx, key(token)).Result()
	if err == redis.Nil {
		return "", errs.New(errs.KindValidation, "invalid or expired session")
	}
	if err != nil {
		return "", errs.Wrap(errs.KindPersistence, err, "look up session")
	}
	return id, nil
}

// Destroy removes the token. Destroying an unknown token is not an error.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, key(token)).Err(); err != nil {
		return errs.Wrap(errs.KindPersistence, err, "destroy session")
	}
	s.log.Debugf("session destroyed")
	return nil
}

func key(token string) string { return "session:" + token }
