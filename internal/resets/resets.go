// Package resets stores password-reset tokens in Redis. Keys carry a TTL, so
// expiry is handled server-side and no cleanup job is needed.
package resets

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/crypto"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/errs"
)

const keyPrefix = "pwreset:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns a token store, or nil when no Redis client is configured;
// callers treat a nil store as "flow disabled".
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		return nil
	}
	return &Store{client: client, ttl: ttl}
}

// Create mints a reset token for the user and stores only its hash. The raw
// token is returned exactly once.
func (s *Store) Create(ctx context.Context, userID int64) (string, error) {
	token, err := crypto.NewResetToken()
	if err != nil {
		return "", err
	}
	key := keyPrefix + crypto.HashToken(token)
	if err := s.client.Set(ctx, key, strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume resolves a raw token to the user it was minted for and deletes it,
// so a token is usable at most once.
func (s *Store) Consume(ctx context.Context, token string) (int64, error) {
	key := keyPrefix + crypto.HashToken(token)
	value, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, errs.ErrInvalidToken
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errs.ErrInvalidToken
	}
	return userID, nil
}
