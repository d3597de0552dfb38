package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"signal-market/internal/access"
	"signal-market/internal/fixedpoint"
	"signal-market/internal/ledger"
	"signal-market/internal/models"
	"signal-market/internal/repository"
)

// Portfolio position statuses.
const (
	PortfolioActive  = "active"
	PortfolioWon     = "won"
	PortfolioLost    = "lost"
	PortfolioClaimed = "claimed"
)

// QueryService answers read-only questions about the ledger. It never
// takes the writer lock.
type QueryService struct {
	state  *ledger.State
	access *access.Control
}

// NewQueryService creates a new query service
func NewQueryService(state *ledger.State, ac *access.Control) *QueryService {
	return &QueryService{state: state, access: ac}
}

// Owner returns the owner address.
func (s *QueryService) Owner() string {
	return s.access.Owner()
}

// MarketCounter returns the number of markets created so far.
func (s *QueryService) MarketCounter(ctx context.Context) (uint64, error) {
	return s.state.Read(ctx).CountMarkets(ctx)
}

// GetMarket returns the canonical view of a market.
func (s *QueryService) GetMarket(ctx context.Context, id uint64) (models.MarketView, error) {
	m, err := s.getMarket(ctx, id)
	if err != nil {
		return models.MarketView{}, err
	}
	return models.NewMarketView(m, s.state.Now()), nil
}

// GetUserPosition returns user's position on a market, or the zero view
// when user holds none.
func (s *QueryService) GetUserPosition(ctx context.Context, user string, marketID uint64) (models.PositionView, error) {
	if _, err := s.getMarket(ctx, marketID); err != nil {
		return models.PositionView{}, err
	}
	p, err := s.state.Read(ctx).GetPosition(ctx, marketID, user)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.PositionView{MarketID: marketID}, nil
		}
		return models.PositionView{}, err
	}
	return models.NewPositionView(p), nil
}

// ImpliedOdds returns each side's share of the pool in whole percent,
// rounded half up. An empty pool reads 50/50.
func (s *QueryService) ImpliedOdds(ctx context.Context, id uint64) (models.Odds, error) {
	m, err := s.getMarket(ctx, id)
	if err != nil {
		return models.Odds{}, err
	}
	return ImpliedOdds(m)
}

// ImpliedOdds computes the odds of m.
func ImpliedOdds(m *models.Market) (models.Odds, error) {
	pool, err := m.Pool()
	if err != nil {
		return models.Odds{}, err
	}
	if pool.IsZero() {
		return models.Odds{Yes: 50, No: 50}, nil
	}
	yes, err := fixedpoint.RoundPercent(m.TotalYes, pool)
	if err != nil {
		return models.Odds{}, err
	}
	no, err := fixedpoint.RoundPercent(m.TotalNo, pool)
	if err != nil {
		return models.Odds{}, err
	}
	return models.Odds{Yes: yes, No: no}, nil
}

// ListMarkets pages through markets in id order, optionally filtered by
// effective status.
func (s *QueryService) ListMarkets(ctx context.Context, status *models.MarketStatus, limit, offset int) ([]models.MarketView, error) {
	now := s.state.Now()
	markets, err := s.state.Read(ctx).ListMarkets(ctx, repository.MarketFilter{
		Status: status,
		Now:    now.Unix(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	views := make([]models.MarketView, 0, len(markets))
	for _, m := range markets {
		views = append(views, models.NewMarketView(m, now))
	}
	return views, nil
}

// Stats aggregates every market.
func (s *QueryService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	repo := s.state.Read(ctx)
	markets, err := repo.ListMarkets(ctx, repository.MarketFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	traders, err := repo.CountTraders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count traders: %w", err)
	}

	now := s.state.Now()
	stats := &models.PlatformStats{
		TotalMarkets:  uint64(len(markets)),
		UniqueTraders: traders,
	}
	for _, m := range markets {
		pool, err := m.Pool()
		if err != nil {
			return nil, err
		}
		if stats.TotalVolume, err = stats.TotalVolume.Add(pool); err != nil {
			return nil, err
		}
		switch m.EffectiveStatus(now) {
		case models.MarketStatusActive:
			stats.ActiveMarkets++
			if stats.TVLLocked, err = stats.TVLLocked.Add(pool); err != nil {
				return nil, err
			}
		case models.MarketStatusResolved:
			stats.ResolvedMarkets++
		}
	}
	return stats, nil
}

// Portfolio summarises user's positions. Unresolved positions are valued
// at their live payout preview, won positions at their final payout and
// lost positions at zero.
func (s *QueryService) Portfolio(ctx context.Context, user string) (*models.Portfolio, error) {
	repo := s.state.Read(ctx)
	positions, err := repo.ListUserPositions(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user positions: %w", err)
	}
	ids := make([]uint64, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.MarketID)
	}
	markets, err := repo.GetMarketsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get markets: %w", err)
	}

	now := s.state.Now()
	out := &models.Portfolio{
		User:      user,
		Positions: make([]models.PortfolioPosition, 0, len(positions)),
	}
	var won, resolved int
	for _, p := range positions {
		m, ok := markets[p.MarketID]
		if !ok {
			continue
		}

		row := models.PortfolioPosition{
			Market: models.NewMarketView(m, now),
			Side:   p.Side,
			Amount: p.Amount,
		}
		if m.Status == models.MarketStatusResolved {
			resolved++
			if m.IsWinningSide(p.Side) {
				won++
				row.Status = PortfolioWon
				if p.Claimed {
					row.Status = PortfolioClaimed
				}
				if row.PotentialPayout, err = ComputePayout(m, p.Side, p.Amount); err != nil {
					return nil, err
				}
			} else {
				row.Status = PortfolioLost
			}
		} else {
			out.ActiveBets++
			row.Status = PortfolioActive
			if row.PotentialPayout, err = ComputePayout(m, p.Side, p.Amount); err != nil {
				return nil, err
			}
		}

		if out.TotalDeposited, err = out.TotalDeposited.Add(p.Amount); err != nil {
			return nil, err
		}
		if out.CurrentValue, err = out.CurrentValue.Add(row.PotentialPayout); err != nil {
			return nil, err
		}
		out.Positions = append(out.Positions, row)
	}

	out.TotalBets = len(out.Positions)
	out.TotalPnL = int64(out.CurrentValue) - int64(out.TotalDeposited)
	out.TotalPnLPercent = percent(decimal.NewFromInt(out.TotalPnL), decimal.NewFromInt(int64(out.TotalDeposited)))
	out.WinRate = percent(decimal.NewFromInt(int64(won)), decimal.NewFromInt(int64(resolved)))
	return out, nil
}

func (s *QueryService) getMarket(ctx context.Context, id uint64) (*models.Market, error) {
	m, err := s.state.Read(ctx).GetMarket(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ledger.ErrMarketNotFound
		}
		return nil, err
	}
	return m, nil
}

// percent returns 100*part/whole with two decimals, "0.00" when whole is 0.
func percent(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0.00"
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).StringFixed(2)
}
