package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"signal-market/internal/access"
	"signal-market/internal/custody"
	"signal-market/internal/database/dbtest"
	"signal-market/internal/ledger"
)

const (
	testOwner = "0x52908400098527886E0F7030069857D2E4169EE7"
	alice     = "0x00000000000000000000000000000000000A11CE"
	bob       = "0x0000000000000000000000000000000000000B0B"
	carol     = "0x00000000000000000000000000000000000CA201"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	ctx        context.Context
	clock      *testClock
	state      *ledger.State
	access     *access.Control
	vault      *custody.Vault
	markets    *MarketService
	positions  *PositionService
	payouts    *PayoutService
	queries    *QueryService
	settlement *SettlementService
	events     *recordingPublisher
}

type recordedEvent struct {
	marketID uint64
	kind     string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(marketID uint64, kind string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{marketID: marketID, kind: kind})
}

func (p *recordingPublisher) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.kind == kind {
			n++
		}
	}
	return n
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	log := logrus.New()
	log.SetOutput(io.Discard)

	db := dbtest.New(t)
	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	state := ledger.New(db, log, ledger.WithClock(clock.Now))

	ac, err := access.New(ctx, state, testOwner, log)
	if err != nil {
		t.Fatalf("access.New: %v", err)
	}

	events := &recordingPublisher{}
	vault := custody.NewVault(db, log)
	positions := NewPositionService(state, events)
	payouts := NewPayoutService(state)

	return &testEnv{
		ctx:        ctx,
		clock:      clock,
		state:      state,
		access:     ac,
		vault:      vault,
		markets:    NewMarketService(state, ac, events),
		positions:  positions,
		payouts:    payouts,
		queries:    NewQueryService(state, ac),
		settlement: NewSettlementService(state, positions, payouts, vault, events),
		events:     events,
	}
}

// createMarket opens a market that closes in one day.
func (e *testEnv) createMarket(t *testing.T, question string) uint64 {
	t.Helper()
	id, err := e.markets.CreateMarket(e.ctx, testOwner, question, e.clock.Now().Add(24*time.Hour).Unix())
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	return id
}
