package services

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"signal-market/internal/models"
	"signal-market/internal/wallet"
)

func signEVM(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := ethcrypto.Sign(wallet.PersonalHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return "0x" + hex.EncodeToString(sig)
}

func TestProcessWalletLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.state, "Sign in to signal-market", time.Minute, nil)

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := svc.Challenge(env.ctx)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if !strings.Contains(challenge.Message, challenge.Nonce) {
		t.Fatalf("challenge message %q does not carry nonce %q", challenge.Message, challenge.Nonce)
	}
	if !challenge.ExpiresAt.Equal(env.clock.Now().Add(time.Minute)) {
		t.Fatalf("ExpiresAt = %v", challenge.ExpiresAt)
	}
	sigHex := signEVM(t, key, challenge.Message)

	first, err := svc.ProcessWalletLogin(env.ctx, strings.ToLower(addr), sigHex, challenge.Nonce)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if first.WalletAddress != addr || first.Chain != models.ChainEVM || first.Nickname == "" {
		t.Fatalf("unexpected user: %+v", first)
	}

	env.clock.Advance(30 * time.Second)
	next, err := svc.Challenge(env.ctx)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if next.Nonce == challenge.Nonce {
		t.Fatal("challenge nonce reused")
	}
	second, err := svc.ProcessWalletLogin(env.ctx, addr, signEVM(t, key, next.Message), next.Nonce)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.ID != first.ID || second.Nickname != first.Nickname {
		t.Fatalf("second login created a new user: %+v vs %+v", second, first)
	}

	got, err := svc.GetUserByID(env.ctx, first.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !got.LastLoginAt.Equal(env.clock.Now()) {
		t.Fatalf("LastLoginAt = %v, want %v", got.LastLoginAt, env.clock.Now())
	}
}

func TestWalletLoginRejectsReplay(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.state, "Sign in to signal-market", time.Minute, nil)

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := svc.Challenge(env.ctx)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	sigHex := signEVM(t, key, challenge.Message)

	if _, err := svc.ProcessWalletLogin(env.ctx, addr, sigHex, challenge.Nonce); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ProcessWalletLogin(env.ctx, addr, sigHex, challenge.Nonce); !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("replayed login: expected ErrInvalidNonce, got %v", err)
	}

	// A signature over the bare message is not a credential.
	bare := signEVM(t, key, "Sign in to signal-market")
	fresh, _ := svc.Challenge(env.ctx)
	if _, err := svc.ProcessWalletLogin(env.ctx, addr, bare, fresh.Nonce); !errors.Is(err, wallet.ErrBadSignature) {
		t.Fatalf("bare signature: expected ErrBadSignature, got %v", err)
	}
	if _, err := svc.ProcessWalletLogin(env.ctx, addr, bare, ""); !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("empty nonce: expected ErrInvalidNonce, got %v", err)
	}

	// A rejected signature does not spend the nonce for its rightful owner.
	other, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherAddr := ethcrypto.PubkeyToAddress(other.PublicKey).Hex()
	if _, err := svc.ProcessWalletLogin(env.ctx, otherAddr, signEVM(t, key, fresh.Message), fresh.Nonce); !errors.Is(err, wallet.ErrBadSignature) {
		t.Fatalf("wrong signer: expected ErrBadSignature, got %v", err)
	}
	if _, err := svc.ProcessWalletLogin(env.ctx, addr, signEVM(t, key, fresh.Message), fresh.Nonce); err != nil {
		t.Fatalf("login after rejected attempt: %v", err)
	}
}

func TestWalletLoginRejectsExpiredNonce(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAuthService(env.state, "Sign in to signal-market", time.Minute, nil)

	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	challenge, err := svc.Challenge(env.ctx)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	env.clock.Advance(2 * time.Minute)

	if _, err := svc.ProcessWalletLogin(env.ctx, addr, signEVM(t, key, challenge.Message), challenge.Nonce); !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
}
