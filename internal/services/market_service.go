package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"signal-market/internal/access"
	"signal-market/internal/ledger"
	"signal-market/internal/metrics"
	"signal-market/internal/models"
	"signal-market/internal/repository"
	"signal-market/internal/ws"
)

// MarketService owns market creation, closure and resolution.
type MarketService struct {
	state  *ledger.State
	access *access.Control
	events EventPublisher
}

// NewMarketService creates a new market service
func NewMarketService(state *ledger.State, ac *access.Control, events EventPublisher) *MarketService {
	return &MarketService{
		state:  state,
		access: ac,
		events: publisherOrNoop(events),
	}
}

// CreateMarket opens a new market and returns its id. Only the owner may
// create markets.
func (s *MarketService) CreateMarket(ctx context.Context, caller, question string, deadline int64) (uint64, error) {
	start := time.Now()
	var market models.Market

	err := s.state.Mutate(ctx, func(repo *repository.Repository) error {
		if err := s.access.RequireOwner(ctx, repo, caller); err != nil {
			return err
		}
		if strings.TrimSpace(question) == "" {
			return ledger.ErrEmptyQuestion
		}
		now := s.state.Now()
		if deadline <= now.Unix() {
			return ledger.ErrInvalidDeadline
		}

		id, err := repo.CountMarkets(ctx)
		if err != nil {
			return err
		}
		market = models.Market{
			ID:        id,
			Question:  question,
			Deadline:  deadline,
			Status:    models.MarketStatusActive,
			CreatedBy: caller,
			CreatedAt: now.Unix(),
		}
		return repo.CreateMarket(ctx, &market)
	})

	recordOperation(s.state.Log(), "create_market", start, logrus.Fields{
		"caller":    caller,
		"market_id": market.ID,
		"deadline":  deadline,
	}, err)
	if err != nil {
		return 0, err
	}

	s.events.Publish(market.ID, ws.EventMarketCreated, models.NewMarketView(&market, s.state.Now()))
	return market.ID, nil
}

// ResolveMarket sets the outcome of a market whose deadline has passed.
// Only the owner may resolve, and only once.
func (s *MarketService) ResolveMarket(ctx context.Context, caller string, marketID uint64, outcome bool) error {
	start := time.Now()
	var market *models.Market

	err := s.state.Mutate(ctx, func(repo *repository.Repository) error {
		if err := s.access.RequireOwner(ctx, repo, caller); err != nil {
			return err
		}
		m, err := repo.GetMarket(ctx, marketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ledger.ErrMarketNotFound
			}
			return err
		}
		if m.Status == models.MarketStatusResolved {
			return ledger.ErrAlreadyResolved
		}
		now := s.state.Now()
		if !m.DeadlinePassed(now) {
			return ledger.ErrTooEarly
		}

		side := models.SideFromOutcome(outcome)
		resolvedAt := now.Unix()
		if err := repo.ResolveMarket(ctx, marketID, side, resolvedAt); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ledger.ErrAlreadyResolved
			}
			return err
		}
		m.Status = models.MarketStatusResolved
		m.Outcome = &side
		m.ResolvedAt = &resolvedAt
		market = m
		return nil
	})

	recordOperation(s.state.Log(), "resolve_market", start, logrus.Fields{
		"caller":    caller,
		"market_id": marketID,
		"outcome":   outcome,
	}, err)
	if err != nil {
		return err
	}

	s.events.Publish(marketID, ws.EventMarketResolved, models.NewMarketView(market, s.state.Now()))
	return nil
}

// CloseExpired persists Closed on every Active market whose deadline has
// passed and returns their ids.
func (s *MarketService) CloseExpired(ctx context.Context) ([]uint64, error) {
	var closed []uint64
	err := s.state.Mutate(ctx, func(repo *repository.Repository) error {
		ids, err := repo.CloseExpiredMarkets(ctx, s.state.Now().Unix())
		closed = ids
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(closed) > 0 {
		metrics.RecordMarketsClosed(len(closed))
		s.state.Log().WithField("market_ids", closed).Info("Closed expired markets")
	}
	for _, id := range closed {
		s.events.Publish(id, ws.EventMarketClosed, nil)
	}
	return closed, nil
}
