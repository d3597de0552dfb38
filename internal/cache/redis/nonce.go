package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const noncePrefix = "signal-market:login-nonce:"

// NonceStore keeps single-use login challenges in Redis so every replica
// accepts a challenge issued by any other, and exactly once.
type NonceStore struct {
	rdb    *redis.Client
	prefix string
}

// NewNonceStore creates a NonceStore.
func NewNonceStore(rdb *redis.Client) *NonceStore {
	return &NonceStore{rdb: rdb, prefix: noncePrefix}
}

// Put stores nonce for ttl.
func (s *NonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, s.prefix+nonce, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis: store nonce: %w", err)
	}
	if !ok {
		return fmt.Errorf("redis: nonce %s already issued", nonce)
	}
	return nil
}

// Take deletes nonce and reports whether it was still live. DEL is atomic,
// so concurrent logins with the same nonce see true at most once.
func (s *NonceStore) Take(ctx context.Context, nonce string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.prefix+nonce).Result()
	if err != nil {
		return false, fmt.Errorf("redis: take nonce: %w", err)
	}
	return n == 1, nil
}
