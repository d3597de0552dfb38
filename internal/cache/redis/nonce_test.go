package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNonceStoreSingleUse(t *testing.T) {
	l := newTestLocker(t, time.Second)
	store := NewNonceStore(l.rdb)
	store.prefix = "nonce:test:" + t.Name() + ":"
	ctx := context.Background()

	nonce := uuid.New().String()
	if err := store.Put(ctx, nonce, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, nonce, time.Minute); err == nil {
		t.Fatal("second Put of the same nonce succeeded")
	}

	ok, err := store.Take(ctx, nonce)
	if err != nil || !ok {
		t.Fatalf("Take = %v, %v; want true", ok, err)
	}
	if ok, _ := store.Take(ctx, nonce); ok {
		t.Fatal("nonce taken twice")
	}

	short := uuid.New().String()
	if err := store.Put(ctx, short, 50*time.Millisecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if ok, _ := store.Take(ctx, short); ok {
		t.Fatal("expired nonce accepted")
	}
}
