package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
	"signal-market/internal/models"
	"signal-market/internal/repository"
)

// PayoutService computes proportional payouts and settles claims exactly
// once.
type PayoutService struct {
	state *ledger.State
}

// NewPayoutService creates a new payout service
func NewPayoutService(state *ledger.State) *PayoutService {
	return &PayoutService{state: state}
}

// ComputePayout returns floor(amount * pool / sidePool) against the pools
// of m as they stand. A side nobody has backed pays 1:1.
func ComputePayout(m *models.Market, side models.Side, amount fixedpoint.Amount) (fixedpoint.Amount, error) {
	sidePool := m.SidePool(side)
	if sidePool.IsZero() {
		return amount, nil
	}
	pool, err := m.Pool()
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulDiv(amount, pool, sidePool)
}

// CalculatePayout previews the payout of a stake of amount on side. Before
// resolution the pools are live and the result is not a guarantee.
func (s *PayoutService) CalculatePayout(ctx context.Context, marketID uint64, side models.Side, amount fixedpoint.Amount) (fixedpoint.Amount, error) {
	if !side.Valid() {
		return 0, ledger.ErrInvalidSide
	}
	m, err := s.state.Read(ctx).GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ledger.ErrMarketNotFound
		}
		return 0, err
	}
	payout, err := ComputePayout(m, side, amount)
	if err != nil {
		return 0, ledger.ErrAmountOverflow
	}
	return payout, nil
}

// CanClaim reports whether user holds an unclaimed winning position on a
// resolved market. Unknown markets report false.
func (s *PayoutService) CanClaim(ctx context.Context, user string, marketID uint64) (bool, error) {
	repo := s.state.Read(ctx)
	m, err := repo.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if m.Status != models.MarketStatusResolved {
		return false, nil
	}
	p, err := repo.GetPosition(ctx, marketID, user)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.IsWinningSide(p.Side) && !p.Claimed, nil
}

// ClaimPayout settles the caller's winning position. The position is marked
// claimed and a receipt written in one transaction; the returned receipt
// carries the payout the custody layer must then release.
func (s *PayoutService) ClaimPayout(ctx context.Context, caller string, marketID uint64) (*models.Claim, error) {
	start := time.Now()
	var claim *models.Claim

	err := s.state.Mutate(ctx, func(repo *repository.Repository) error {
		m, err := repo.GetMarket(ctx, marketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ledger.ErrMarketNotFound
			}
			return err
		}
		if m.Status != models.MarketStatusResolved {
			return ledger.ErrNotResolved
		}
		p, err := repo.GetPosition(ctx, marketID, caller)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ledger.ErrNoPosition
			}
			return err
		}
		if !m.IsWinningSide(p.Side) {
			return ledger.ErrNotWinner
		}
		if p.Claimed {
			return ledger.ErrAlreadyClaimed
		}

		payout, err := ComputePayout(m, p.Side, p.Amount)
		if err != nil {
			return ledger.ErrAmountOverflow
		}

		// Mark first; the flip only succeeds for one caller.
		ok, err := repo.MarkClaimed(ctx, marketID, caller)
		if err != nil {
			return fmt.Errorf("mark claimed: %w", err)
		}
		if !ok {
			return ledger.ErrAlreadyClaimed
		}

		claim = &models.Claim{
			MarketID:    marketID,
			UserAddress: caller,
			Side:        p.Side,
			Stake:       p.Amount,
			Payout:      payout,
			ClaimedAt:   s.state.Now().Unix(),
		}
		if err := repo.CreateClaim(ctx, claim); err != nil {
			return fmt.Errorf("write claim receipt: %w", err)
		}
		return nil
	})

	fields := logrus.Fields{"market_id": marketID, "user": caller}
	if claim != nil {
		fields["amount"] = claim.Payout.String()
	}
	recordOperation(s.state.Log(), "claim_payout", start, fields, err)
	if err != nil {
		return nil, err
	}
	return claim, nil
}
