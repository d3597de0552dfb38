package redis

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// These tests need a live server; set REDIS_ADDR to run them.
func newTestLocker(t *testing.T, ttl time.Duration) *Locker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := NewClient(context.Background(), ClientConfig{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	l := NewLocker(rdb, ttl, log)
	l.key = "lock:test:" + t.Name()
	return l
}

func TestLockerMutualExclusion(t *testing.T) {
	l := newTestLocker(t, 5*time.Second)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
}

func TestLockerHonoursContext(t *testing.T) {
	l := newTestLocker(t, 5*time.Second)

	unlock, err := l.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx); err == nil {
		t.Fatal("second Lock succeeded while held")
	}
}

func TestLockerRenewsWhileHeld(t *testing.T) {
	l := newTestLocker(t, 300*time.Millisecond)

	unlock, err := l.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// A second process shares the key but not the local lock.
	other := NewLocker(l.rdb, l.ttl, l.log)
	other.key = l.key

	// Hold well past the ttl; the key must still be ours.
	time.Sleep(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := other.Lock(ctx); err == nil {
		t.Fatal("second Lock succeeded after ttl while first holder was live")
	}
	if pttl := l.rdb.PTTL(context.Background(), l.key).Val(); pttl <= 0 {
		t.Fatalf("lock key ttl = %s, want positive", pttl)
	}

	unlock()
	if n := l.rdb.Exists(context.Background(), l.key).Val(); n != 0 {
		t.Fatalf("lock key survived unlock")
	}
}
