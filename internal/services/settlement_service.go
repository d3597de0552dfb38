package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"signal-market/internal/custody"
	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
	"signal-market/internal/metrics"
	"signal-market/internal/models"
	"signal-market/internal/ws"
)

// ErrPayoutPending is returned when a claim was settled in the ledger but
// custody did not release the funds. ReleasePending retries it.
var ErrPayoutPending = errors.New("payout recorded but not yet released")

// SettlementService pairs ledger accounting with custody movements. Stakes
// are collected before the bet is accounted; payouts are released after
// the claim is marked.
type SettlementService struct {
	state     *ledger.State
	positions *PositionService
	payouts   *PayoutService
	custody   custody.Custody
	events    EventPublisher
}

// NewSettlementService creates a new settlement service
func NewSettlementService(state *ledger.State, positions *PositionService, payouts *PayoutService, c custody.Custody, events EventPublisher) *SettlementService {
	return &SettlementService{
		state:     state,
		positions: positions,
		payouts:   payouts,
		custody:   c,
		events:    publisherOrNoop(events),
	}
}

// PlaceBet collects amount from caller and accounts the bet. Ledger
// preconditions are checked before any funds move, so a rejected bet
// reports its ledger reason even when the caller is unfunded. If the ledger
// still rejects the bet after collection the stake is refunded.
func (s *SettlementService) PlaceBet(ctx context.Context, caller string, marketID uint64, side models.Side, amount fixedpoint.Amount) (*models.Position, error) {
	if err := s.positions.ValidateBet(ctx, caller, marketID, side, amount); err != nil {
		return nil, err
	}

	if _, err := s.custody.Collect(ctx, caller, amount, marketID); err != nil {
		return nil, err
	}

	position, err := s.positions.PlaceBet(ctx, caller, marketID, side, amount)
	if err != nil {
		// The refund must not be cancelled along with the request.
		if _, rerr := s.custody.Refund(context.WithoutCancel(ctx), caller, amount, marketID); rerr != nil {
			s.state.Log().WithFields(logrus.Fields{
				"market_id": marketID,
				"user":      caller,
				"amount":    amount.String(),
			}).WithError(rerr).Error("Refund of rejected stake failed")
			return nil, fmt.Errorf("%w (refund failed: %v)", err, rerr)
		}
		return nil, err
	}
	return position, nil
}

// ClaimPayout marks the caller's winning position claimed, then releases
// the payout from custody.
func (s *SettlementService) ClaimPayout(ctx context.Context, caller string, marketID uint64) (*models.Claim, error) {
	claim, err := s.payouts.ClaimPayout(ctx, caller, marketID)
	if err != nil {
		return nil, err
	}
	if err := s.release(context.WithoutCancel(ctx), claim); err != nil {
		return claim, ErrPayoutPending
	}
	return claim, nil
}

// ReleasePending retries payouts of claims custody has not released yet.
func (s *SettlementService) ReleasePending(ctx context.Context, limit int) (int, error) {
	claims, err := s.state.Read(ctx).ListPendingClaims(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending claims: %w", err)
	}
	released := 0
	for _, claim := range claims {
		if err := s.release(ctx, claim); err != nil {
			continue
		}
		released++
	}
	return released, nil
}

func (s *SettlementService) release(ctx context.Context, claim *models.Claim) error {
	entry := s.state.Log().WithFields(logrus.Fields{
		"market_id": claim.MarketID,
		"user":      claim.UserAddress,
		"amount":    claim.Payout.String(),
	})

	ref, err := s.custody.Release(ctx, claim.ID, claim.UserAddress, claim.Payout, claim.MarketID)
	if err != nil {
		entry.WithError(err).Error("Payout release failed")
		return err
	}
	if err := s.state.Read(ctx).SetClaimPayoutRef(ctx, claim.ID, ref); err != nil {
		// Release is idempotent per claim; the next ReleasePending run
		// records the reference without paying twice.
		entry.WithError(err).Error("Failed to record payout reference")
	}
	claim.PayoutRef = ref

	units, _ := claim.Payout.Decimal().Float64()
	metrics.RecordPayout(units)
	s.events.Publish(claim.MarketID, ws.EventPayoutClaimed, claim)
	entry.WithField("payout_ref", ref).Info("Payout released")
	return nil
}
