package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
	"signal-market/internal/metrics"
	"signal-market/internal/models"
	"signal-market/internal/repository"
	"signal-market/internal/ws"
)

// PositionService handles business logic for user positions
type PositionService struct {
	state  *ledger.State
	events EventPublisher
}

// NewPositionService creates a new position service
func NewPositionService(state *ledger.State, events EventPublisher) *PositionService {
	return &PositionService{state: state, events: publisherOrNoop(events)}
}

// BetPlaced is published after a stake is accounted.
type BetPlaced struct {
	User     string            `json:"user"`
	Side     models.Side       `json:"side"`
	Amount   fixedpoint.Amount `json:"amount"`
	TotalYes fixedpoint.Amount `json:"totalYes"`
	TotalNo  fixedpoint.Amount `json:"totalNo"`
}

// PlaceBet accounts a stake of amount on side for caller. The position and
// the side pool are incremented in the same transaction. The stake itself
// must already be in custody.
func (s *PositionService) PlaceBet(ctx context.Context, caller string, marketID uint64, side models.Side, amount fixedpoint.Amount) (*models.Position, error) {
	start := time.Now()
	var (
		position *models.Position
		market   *models.Market
	)

	err := s.state.Mutate(ctx, func(repo *repository.Repository) error {
		now := s.state.Now()
		m, p, err := checkBet(ctx, repo, now, caller, marketID, side, amount)
		if err != nil {
			return err
		}

		if p.Amount, err = p.Amount.Add(amount); err != nil {
			return ledger.ErrAmountOverflow
		}
		if side == models.SideYes {
			m.TotalYes, err = m.TotalYes.Add(amount)
		} else {
			m.TotalNo, err = m.TotalNo.Add(amount)
		}
		if err != nil {
			return ledger.ErrAmountOverflow
		}
		if _, err := m.Pool(); err != nil {
			return ledger.ErrAmountOverflow
		}
		p.Timestamp = now.Unix()

		if err := repo.UpsertPosition(ctx, p); err != nil {
			return fmt.Errorf("save position: %w", err)
		}
		if err := repo.UpdateMarketPools(ctx, marketID, m.TotalYes, m.TotalNo); err != nil {
			return fmt.Errorf("update pools: %w", err)
		}
		position, market = p, m
		return nil
	})

	recordOperation(s.state.Log(), "place_bet", start, logrus.Fields{
		"market_id": marketID,
		"user":      caller,
		"side":      side.String(),
		"amount":    amount.String(),
	}, err)
	if err != nil {
		return nil, err
	}

	units, _ := amount.Decimal().Float64()
	metrics.RecordStake(units)
	s.events.Publish(marketID, ws.EventBetPlaced, BetPlaced{
		User:     caller,
		Side:     side,
		Amount:   amount,
		TotalYes: market.TotalYes,
		TotalNo:  market.TotalNo,
	})
	return position, nil
}

// ValidateBet runs the preconditions of PlaceBet against committed state
// without taking the writer lock. PlaceBet re-checks them authoritatively.
func (s *PositionService) ValidateBet(ctx context.Context, caller string, marketID uint64, side models.Side, amount fixedpoint.Amount) error {
	_, _, err := checkBet(ctx, s.state.Read(ctx), s.state.Now(), caller, marketID, side, amount)
	return err
}

// checkBet returns the market and the caller's position (a fresh one when
// none exists yet) if a bet may be placed, in precedence order of failure.
func checkBet(ctx context.Context, repo *repository.Repository, now time.Time, caller string, marketID uint64, side models.Side, amount fixedpoint.Amount) (*models.Market, *models.Position, error) {
	m, err := repo.GetMarket(ctx, marketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ledger.ErrMarketNotFound
		}
		return nil, nil, err
	}
	if !m.AcceptsBets(now) {
		return nil, nil, ledger.ErrMarketNotActive
	}
	if amount.IsZero() {
		return nil, nil, ledger.ErrInvalidAmount
	}
	if !side.Valid() {
		return nil, nil, ledger.ErrInvalidSide
	}

	p, err := repo.GetPosition(ctx, marketID, caller)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		p = &models.Position{MarketID: marketID, UserAddress: caller, Side: side}
	case err != nil:
		return nil, nil, err
	case p.Side != side:
		return nil, nil, ledger.ErrSideMismatch
	}
	return m, p, nil
}

// GetUserPositions returns every position held by user.
func (s *PositionService) GetUserPositions(ctx context.Context, user string) ([]models.PositionView, error) {
	positions, err := s.state.Read(ctx).ListUserPositions(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user positions: %w", err)
	}
	views := make([]models.PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, models.NewPositionView(p))
	}
	return views, nil
}
