package access

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"signal-market/internal/database/dbtest"
	"signal-market/internal/ledger"
	"signal-market/internal/repository"
	"signal-market/internal/wallet"
)

const owner = "0x52908400098527886E0F7030069857D2E4169EE7"

var newOwner = wallet.MustCanonical("0x0000000000000000000000000000000000000b0b")

func newTestState(t *testing.T) *ledger.State {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return ledger.New(dbtest.New(t), log)
}

func TestOwnerPinnedOnFirstBoot(t *testing.T) {
	ctx := context.Background()
	state := newTestState(t)
	log := state.Log()

	// Configured in lower case; stored canonically.
	c, err := New(ctx, state, "0x52908400098527886e0f7030069857d2e4169ee7", log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Owner() != owner {
		t.Fatalf("Owner = %s, want %s", c.Owner(), owner)
	}

	// A later boot with a different configured owner keeps the stored one.
	again, err := New(ctx, state, newOwner, log)
	if err != nil {
		t.Fatalf("New (second boot): %v", err)
	}
	if again.Owner() != owner {
		t.Fatalf("Owner after reboot = %s, want %s", again.Owner(), owner)
	}
}

func TestNewRejectsInvalidOwner(t *testing.T) {
	if _, err := New(context.Background(), newTestState(t), "not-an-address", logrus.New()); !errors.Is(err, ledger.ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestRequireOwner(t *testing.T) {
	ctx := context.Background()
	state := newTestState(t)
	c, err := New(ctx, state, owner, state.Log())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	repo := state.Read(ctx)

	if err := c.RequireOwner(ctx, repo, owner); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	for _, caller := range []string{"", newOwner, "0x52908400098527886e0f7030069857d2e4169ee7"} {
		if err := c.RequireOwner(ctx, repo, caller); !errors.Is(err, ledger.ErrUnauthorized) {
			t.Errorf("caller %q: expected ErrUnauthorized, got %v", caller, err)
		}
	}
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	state := newTestState(t)
	c, err := New(ctx, state, owner, state.Log())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.TransferOwnership(ctx, newOwner, newOwner); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("non-owner transfer: expected ErrUnauthorized, got %v", err)
	}
	if c.Owner() != owner {
		t.Fatalf("failed transfer changed owner to %s", c.Owner())
	}

	if err := c.TransferOwnership(ctx, owner, newOwner); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if c.Owner() != newOwner {
		t.Fatalf("Owner = %s, want %s", c.Owner(), newOwner)
	}

	err = state.Mutate(ctx, func(repo *repository.Repository) error {
		if err := c.RequireOwner(ctx, repo, owner); !errors.Is(err, ledger.ErrUnauthorized) {
			t.Errorf("previous owner still authorized: %v", err)
		}
		return c.RequireOwner(ctx, repo, newOwner)
	})
	if err != nil {
		t.Fatalf("new owner rejected: %v", err)
	}

	if _, err := c.AuditLog(ctx, owner, 10); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Fatalf("previous owner read audit log: %v", err)
	}
	logs, err := c.AuditLog(ctx, newOwner, 10)
	if err != nil {
		t.Fatalf("AuditLog: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "transfer_ownership" {
		t.Fatalf("admin logs = %+v", logs)
	}
}
