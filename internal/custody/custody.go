// Package custody moves stable-value funds in and out of the market's
// custody. The ledger only does accounting; custody holds the money.
package custody

import (
	"context"

	"github.com/google/uuid"

	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
)

// ErrInsufficientFunds is returned when a collect exceeds the payer's
// available balance.
var ErrInsufficientFunds = ledger.ErrInsufficientFunds

// Custody is the collaborator that collects stakes and releases payouts.
// Each method returns an opaque reference to the movement it recorded.
// Release is idempotent per claimID.
type Custody interface {
	Collect(ctx context.Context, from string, amount fixedpoint.Amount, marketID uint64) (string, error)
	Refund(ctx context.Context, to string, amount fixedpoint.Amount, marketID uint64) (string, error)
	Release(ctx context.Context, claimID uuid.UUID, to string, amount fixedpoint.Amount, marketID uint64) (string, error)
}
