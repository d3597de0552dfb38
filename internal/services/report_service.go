package services

import (
	"context"
	"fmt"

	"signal-market/internal/ledger"
	"signal-market/internal/models"
)

// ReportService builds settlement reports of resolved markets and tracks
// which have been archived.
type ReportService struct {
	state *ledger.State
}

func NewReportService(state *ledger.State) *ReportService {
	return &ReportService{state: state}
}

// Unarchived returns resolved markets whose report has not been archived.
func (s *ReportService) Unarchived(ctx context.Context, limit int) ([]*models.Market, error) {
	return s.state.Read(ctx).ListUnarchivedResolved(ctx, limit)
}

// Build computes the settlement report of a resolved market from its frozen
// pools and positions.
func (s *ReportService) Build(ctx context.Context, m *models.Market) (*models.SettlementReport, error) {
	if m.Status != models.MarketStatusResolved || m.Outcome == nil {
		return nil, ledger.ErrNotResolved
	}
	pool, err := m.Pool()
	if err != nil {
		return nil, err
	}

	positions, err := s.state.Read(ctx).ListMarketPositions(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list positions of market %d: %w", m.ID, err)
	}

	report := &models.SettlementReport{
		MarketID:    m.ID,
		Question:    m.Question,
		Deadline:    m.Deadline,
		Outcome:     *m.Outcome == models.SideYes,
		TotalYes:    m.TotalYes,
		TotalNo:     m.TotalNo,
		Pool:        pool,
		WinningPool: m.SidePool(*m.Outcome),
		Winners:     []models.WinnerPayout{},
		GeneratedAt: s.state.Now().Unix(),
	}
	if m.ResolvedAt != nil {
		report.ResolvedAt = *m.ResolvedAt
	}

	for _, p := range positions {
		if !m.IsWinningSide(p.Side) {
			continue
		}
		payout, err := ComputePayout(m, p.Side, p.Amount)
		if err != nil {
			return nil, err
		}
		report.Winners = append(report.Winners, models.WinnerPayout{
			User:    p.UserAddress,
			Stake:   p.Amount,
			Payout:  payout,
			Claimed: p.Claimed,
		})
		if report.TotalPayout, err = report.TotalPayout.Add(payout); err != nil {
			return nil, err
		}
	}

	if report.Dust, err = pool.Sub(report.TotalPayout); err != nil {
		return nil, fmt.Errorf("market %d pays out more than its pool: %w", m.ID, err)
	}
	return report, nil
}

// MarkArchived records that the report of market id has been stored.
func (s *ReportService) MarkArchived(ctx context.Context, id uint64) error {
	_, err := s.state.Read(ctx).MarkArchived(ctx, id, s.state.Now())
	return err
}
