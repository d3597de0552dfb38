package handlers

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"signal-market/internal/access"
	"signal-market/internal/auth"
	"signal-market/internal/custody"
	"signal-market/internal/database/dbtest"
	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
	"signal-market/internal/models"
	"signal-market/internal/services"
	"signal-market/internal/wallet"
)

var (
	owner = wallet.MustCanonical("0x52908400098527886e0f7030069857d2e4169ee7")
	alice = wallet.MustCanonical("0x00000000000000000000000000000000000a11ce")
	bob   = wallet.MustCanonical("0x0000000000000000000000000000000000000b0b")
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	clock  *fakeClock
}

func newTestServer(t *testing.T, faucetEnabled bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.InitJWT("handler-test-secret")

	log := logrus.New()
	log.SetOutput(io.Discard)

	db := dbtest.New(t)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	state := ledger.New(db, log, ledger.WithClock(clock.Now))

	ac, err := access.New(context.Background(), state, owner, log)
	if err != nil {
		t.Fatalf("access.New: %v", err)
	}

	vault := custody.NewVault(db, log)
	markets := services.NewMarketService(state, ac, nil)
	positions := services.NewPositionService(state, nil)
	payouts := services.NewPayoutService(state)
	queries := services.NewQueryService(state, ac)
	settlement := services.NewSettlementService(state, positions, payouts, vault, nil)

	rt := &Router{
		Log:       log,
		Auth:      NewAuthHandler(services.NewAuthService(state, "Sign in to signal-market", time.Minute, nil)),
		Users:     NewUserHandler(services.NewUserService(state, ac)),
		Markets:   NewMarketHandler(markets, payouts, queries),
		Positions: NewPositionHandler(settlement, positions, payouts, queries),
		Vault:     NewVaultHandler(vault, faucetEnabled, fixedpoint.Amount(1_000_000_000)),
		Admin:     NewAdminHandler(ac),
	}
	return &testServer{t: t, engine: rt.Engine(), clock: clock}
}

func (s *testServer) token(addr string) string {
	s.t.Helper()
	token, err := auth.GenerateToken(&models.User{ID: 1, WalletAddress: addr, Chain: models.ChainEVM})
	if err != nil {
		s.t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Reason  string          `json:"reason"`
	Token   string          `json:"token"`
}

func (s *testServer) do(method, path, as string, body any) (int, apiResponse) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(as))
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func (s *testServer) expect(method, path, as string, body any, wantStatus int, wantReason string) apiResponse {
	s.t.Helper()
	status, resp := s.do(method, path, as, body)
	if status != wantStatus || resp.Reason != wantReason {
		s.t.Fatalf("%s %s: got %d %q (%s), want %d %q", method, path, status, resp.Reason, resp.Error, wantStatus, wantReason)
	}
	return resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestMarketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, true)
	deadline := s.clock.Now().Add(time.Hour).Unix()

	s.expect(http.MethodPost, "/api/markets", alice, gin.H{"question": "Rain?", "deadline": deadline}, http.StatusForbidden, "UNAUTHORIZED")
	s.expect(http.MethodPost, "/api/markets", owner, gin.H{"question": "  ", "deadline": deadline}, http.StatusBadRequest, "EMPTY_QUESTION")

	resp := s.expect(http.MethodPost, "/api/markets", owner, gin.H{"question": "Rain?", "deadline": deadline}, http.StatusCreated, "")
	market := decode[models.MarketView](t, resp.Data)
	if market.ID != 0 || market.Status != models.MarketStatusActive {
		t.Fatalf("unexpected market: %+v", market)
	}

	s.expect(http.MethodPost, "/api/vault/faucet", alice, gin.H{"amount": "1000000"}, http.StatusOK, "")
	s.expect(http.MethodPost, "/api/vault/faucet", bob, gin.H{"amount": "3000000"}, http.StatusOK, "")
	s.expect(http.MethodPost, "/api/vault/faucet", bob, gin.H{"amount": "1000000001"}, http.StatusBadRequest, "INVALID_AMOUNT")

	s.expect(http.MethodPost, "/api/markets/0/bets", alice, gin.H{"side": 0, "amount": "1000000"}, http.StatusCreated, "")
	s.expect(http.MethodPost, "/api/markets/0/bets", alice, gin.H{"side": 0, "amount": "1"}, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS")
	s.expect(http.MethodPost, "/api/markets/0/bets", bob, gin.H{"side": 1, "amount": "3000000"}, http.StatusCreated, "")
	s.expect(http.MethodPost, "/api/markets/0/bets", bob, gin.H{"side": 2, "amount": "1"}, http.StatusBadRequest, "INVALID_SIDE")
	s.expect(http.MethodPost, "/api/markets/0/bets", bob, gin.H{"side": 0, "amount": "0"}, http.StatusBadRequest, "INVALID_AMOUNT")
	s.expect(http.MethodPost, "/api/markets/7/bets", bob, gin.H{"side": 0, "amount": "1"}, http.StatusNotFound, "MARKET_NOT_FOUND")

	resp = s.expect(http.MethodGet, "/api/markets/0/odds", "", nil, http.StatusOK, "")
	if odds := decode[models.Odds](t, resp.Data); odds.Yes != 25 || odds.No != 75 {
		t.Fatalf("odds = %+v, want 25/75", odds)
	}
	resp = s.expect(http.MethodGet, "/api/markets/0/payout?side=0&amount=1000000", "", nil, http.StatusOK, "")
	if got := decode[struct {
		Payout fixedpoint.Amount `json:"payout"`
	}](t, resp.Data); got.Payout != 4_000_000 {
		t.Fatalf("preview payout = %s, want 4000000", got.Payout.Micros())
	}

	s.expect(http.MethodPost, "/api/markets/0/resolve", owner, gin.H{"outcome": true}, http.StatusConflict, "TOO_EARLY")
	s.expect(http.MethodPost, "/api/markets/0/claim", alice, nil, http.StatusConflict, "NOT_RESOLVED")

	s.clock.Advance(2 * time.Hour)
	s.expect(http.MethodPost, "/api/vault/faucet", alice, gin.H{"amount": "5"}, http.StatusOK, "")
	// Rejected after the deadline before any funds move.
	s.expect(http.MethodPost, "/api/markets/0/bets", alice, gin.H{"side": 0, "amount": "5"}, http.StatusConflict, "MARKET_NOT_ACTIVE")
	// bob staked everything; the ledger reason still wins over funding.
	s.expect(http.MethodPost, "/api/markets/0/bets", bob, gin.H{"side": 1, "amount": "5"}, http.StatusConflict, "MARKET_NOT_ACTIVE")

	resp = s.expect(http.MethodPost, "/api/markets/0/resolve", owner, gin.H{"outcome": true}, http.StatusOK, "")
	if m := decode[models.MarketView](t, resp.Data); m.Status != models.MarketStatusResolved || !m.Outcome {
		t.Fatalf("resolved market = %+v", m)
	}
	s.expect(http.MethodPost, "/api/markets/0/resolve", owner, gin.H{"outcome": false}, http.StatusConflict, "ALREADY_RESOLVED")

	resp = s.expect(http.MethodGet, "/api/markets/0/can-claim/"+alice, "", nil, http.StatusOK, "")
	if got := decode[map[string]bool](t, resp.Data); !got["canClaim"] {
		t.Fatal("alice should be able to claim")
	}

	s.expect(http.MethodPost, "/api/markets/0/claim", bob, nil, http.StatusConflict, "NOT_WINNER")
	resp = s.expect(http.MethodPost, "/api/markets/0/claim", alice, nil, http.StatusOK, "")
	if claim := decode[models.Claim](t, resp.Data); claim.Payout != 4_000_000 {
		t.Fatalf("claim payout = %s, want 4000000", claim.Payout.Micros())
	}
	s.expect(http.MethodPost, "/api/markets/0/claim", alice, nil, http.StatusConflict, "ALREADY_CLAIMED")

	resp = s.expect(http.MethodGet, "/api/vault/balance", alice, nil, http.StatusOK, "")
	if got := decode[struct {
		Available fixedpoint.Amount `json:"available"`
	}](t, resp.Data); got.Available != 4_000_005 {
		t.Fatalf("alice balance = %s, want 4000005", got.Available.Micros())
	}

	resp = s.expect(http.MethodGet, "/api/markets/0/positions/"+alice, "", nil, http.StatusOK, "")
	if pos := decode[models.PositionView](t, resp.Data); !pos.Claimed || pos.Amount != 1_000_000 {
		t.Fatalf("alice position = %+v", pos)
	}

	resp = s.expect(http.MethodGet, "/api/stats", "", nil, http.StatusOK, "")
	if stats := decode[models.PlatformStats](t, resp.Data); stats.TotalVolume != 4_000_000 || stats.ResolvedMarkets != 1 || stats.UniqueTraders != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestReadEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.expect(http.MethodGet, "/api/owner", "", nil, http.StatusOK, "")
	if got := decode[map[string]string](t, resp.Data); got["owner"] != owner {
		t.Fatalf("owner = %q, want %q", got["owner"], owner)
	}
	resp = s.expect(http.MethodGet, "/api/markets/counter", "", nil, http.StatusOK, "")
	if got := decode[map[string]uint64](t, resp.Data); got["marketCounter"] != 0 {
		t.Fatalf("counter = %d, want 0", got["marketCounter"])
	}

	s.expect(http.MethodGet, "/api/markets/0", "", nil, http.StatusNotFound, "MARKET_NOT_FOUND")
	s.expect(http.MethodGet, "/api/markets/abc", "", nil, http.StatusBadRequest, "BAD_REQUEST")
	s.expect(http.MethodGet, "/api/markets?status=bogus", "", nil, http.StatusBadRequest, "BAD_REQUEST")
	s.expect(http.MethodGet, "/api/users/not-an-address/positions", "", nil, http.StatusBadRequest, "INVALID_ADDRESS")
	s.expect(http.MethodGet, "/api/markets/0/payout?side=0&amount=-5", "", nil, http.StatusBadRequest, "INVALID_AMOUNT")

	resp = s.expect(http.MethodGet, "/api/users/"+alice+"/portfolio", "", nil, http.StatusOK, "")
	if p := decode[models.Portfolio](t, resp.Data); p.TotalBets != 0 || p.WinRate != "0.00" {
		t.Fatalf("empty portfolio = %+v", p)
	}
}

func TestAuthAndFaucetGates(t *testing.T) {
	s := newTestServer(t, false)

	status, _ := s.do(http.MethodPost, "/api/markets", "", gin.H{"question": "Q?", "deadline": 1})
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: status %d, want 401", status)
	}
	s.expect(http.MethodPost, "/api/vault/faucet", alice, gin.H{"amount": "1"}, http.StatusForbidden, "FAUCET_DISABLED")
}

func TestWalletLoginIsSingleUse(t *testing.T) {
	s := newTestServer(t, false)

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	resp := s.expect(http.MethodGet, "/auth/message", "", nil, http.StatusOK, "")
	challenge := decode[services.LoginChallenge](t, resp.Data)
	sig, err := ethcrypto.Sign(wallet.PersonalHash([]byte(challenge.Message)), key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	body := gin.H{
		"wallet_address": addr,
		"signature":      "0x" + hex.EncodeToString(sig),
		"nonce":          challenge.Nonce,
	}

	resp = s.expect(http.MethodPost, "/auth/wallet", "", body, http.StatusOK, "")
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}
	s.expect(http.MethodPost, "/auth/wallet", "", body, http.StatusUnauthorized, "INVALID_NONCE")

	delete(body, "nonce")
	s.expect(http.MethodPost, "/auth/wallet", "", body, http.StatusBadRequest, "BAD_REQUEST")
}

func TestTransferOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t, false)

	s.expect(http.MethodPost, "/api/admin/owner", alice, gin.H{"new_owner": alice}, http.StatusForbidden, "UNAUTHORIZED")
	s.expect(http.MethodPost, "/api/admin/owner", owner, gin.H{"new_owner": "nope"}, http.StatusBadRequest, "INVALID_ADDRESS")
	s.expect(http.MethodPost, "/api/admin/owner", owner, gin.H{"new_owner": alice}, http.StatusOK, "")

	resp := s.expect(http.MethodGet, "/api/owner", "", nil, http.StatusOK, "")
	if got := decode[map[string]string](t, resp.Data); got["owner"] != alice {
		t.Fatalf("owner = %q, want %q", got["owner"], alice)
	}
	s.expect(http.MethodGet, "/api/admin/logs", owner, nil, http.StatusForbidden, "UNAUTHORIZED")
	s.expect(http.MethodGet, "/api/admin/logs", alice, nil, http.StatusOK, "")
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{ledger.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
		{ledger.ErrNoPosition, http.StatusNotFound, "NO_POSITION"},
		{ledger.ErrSideMismatch, http.StatusConflict, "SIDE_MISMATCH"},
		{ledger.ErrInvalidDeadline, http.StatusBadRequest, "INVALID_DEADLINE"},
		{custody.ErrInsufficientFunds, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
		{services.ErrInvalidNonce, http.StatusUnauthorized, "INVALID_NONCE"},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		status, reason := errorStatus(tt.err)
		if status != tt.status || reason != tt.reason {
			t.Errorf("errorStatus(%v) = %d %s, want %d %s", tt.err, status, reason, tt.status, tt.reason)
		}
	}
}
