// Package redis provides a ledger writer lock shared across processes.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"signal-market/internal/ledger"
)

// unlockLua deletes the lock key only if it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// extendLua renews the lock key's expiry only while it holds the caller's
// token.
const extendLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

const defaultLockKey = "lock:signal-market:ledger"

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
}

// NewClient creates a go-redis client and pings it.
func NewClient(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	rdb := redis.NewClient(clientOptions(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

func clientOptions(cfg ClientConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Locker implements ledger.Locker with SETNX and a token-checked unlock.
// Writers in the same process queue on a local lock first so only one of
// them polls Redis at a time. While held, the key's expiry is renewed every
// ttl/3, so the ttl only bounds how long a crashed holder blocks others.
type Locker struct {
	rdb      *redis.Client
	key      string
	ttl      time.Duration
	retry    time.Duration
	local    *ledger.LocalLocker
	unlockSc *redis.Script
	extendSc *redis.Script
	log      logrus.FieldLogger
}

// NewLocker creates a Locker. ttl bounds how long a crashed holder can
// block other writers.
func NewLocker(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Locker{
		rdb:      rdb,
		key:      defaultLockKey,
		ttl:      ttl,
		retry:    25 * time.Millisecond,
		local:    ledger.NewLocalLocker(),
		unlockSc: redis.NewScript(unlockLua),
		extendSc: redis.NewScript(extendLua),
		log:      log,
	}
}

// Lock blocks until the distributed lock is held or ctx is done.
func (l *Locker) Lock(ctx context.Context) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx)
	if err != nil {
		return nil, err
	}

	token := uuid.New().String()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("redis: acquire lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(token, stop, done)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		close(stop)
		<-done

		// The caller's context may already be cancelled.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.unlockSc.Run(unlockCtx, l.rdb, []string{l.key}, token).Err()
		unlockLocal()
	}, nil
}

// keepAlive extends the key until stop is closed. It gives up when the key
// no longer holds token, which means exclusion was already lost.
func (l *Locker) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := l.extendSc.Run(ctx, l.rdb, []string{l.key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			// Transient; the next tick retries while the key is still live.
			l.log.WithError(err).Warn("Ledger lock renewal failed")
		case n == 0:
			l.log.WithField("key", l.key).Error("Ledger lock lost before release")
			return
		}
	}
}

var _ ledger.Locker = (*Locker)(nil)
