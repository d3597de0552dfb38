package models

import (
	"time"

	"signal-market/internal/fixedpoint"
)

// MarketView is the canonical getMarket shape: status 0|1|2, outcome true
// for yes.
type MarketView struct {
	ID        uint64            `json:"id"`
	Question  string            `json:"question"`
	Deadline  int64             `json:"deadline"`
	TotalYes  fixedpoint.Amount `json:"totalYes"`
	TotalNo   fixedpoint.Amount `json:"totalNo"`
	Status    MarketStatus      `json:"status"`
	Outcome   bool              `json:"outcome"`
	CreatedAt int64             `json:"createdAt"`
}

// NewMarketView projects m as seen at now.
func NewMarketView(m *Market, now time.Time) MarketView {
	return MarketView{
		ID:        m.ID,
		Question:  m.Question,
		Deadline:  m.Deadline,
		TotalYes:  m.TotalYes,
		TotalNo:   m.TotalNo,
		Status:    m.EffectiveStatus(now),
		Outcome:   m.Outcome != nil && *m.Outcome == SideYes,
		CreatedAt: m.CreatedAt,
	}
}

// PositionView is the canonical getUserPosition shape. A user without a
// position on the market reads as the zero view (amount 0).
type PositionView struct {
	MarketID  uint64            `json:"marketId"`
	Side      Side              `json:"side"`
	Amount    fixedpoint.Amount `json:"amount"`
	Timestamp int64             `json:"timestamp"`
	Claimed   bool              `json:"claimed"`
}

// NewPositionView projects p.
func NewPositionView(p *Position) PositionView {
	return PositionView{
		MarketID:  p.MarketID,
		Side:      p.Side,
		Amount:    p.Amount,
		Timestamp: p.Timestamp,
		Claimed:   p.Claimed,
	}
}

// Odds is the implied probability of each side in whole percent.
type Odds struct {
	Yes uint64 `json:"yes"`
	No  uint64 `json:"no"`
}

// PlatformStats aggregates all markets for the stats bar.
type PlatformStats struct {
	TotalVolume     fixedpoint.Amount `json:"totalVolume"`
	TVLLocked       fixedpoint.Amount `json:"tvlLocked"`
	TotalMarkets    uint64            `json:"totalMarkets"`
	ActiveMarkets   uint64            `json:"activeMarkets"`
	ResolvedMarkets uint64            `json:"resolvedMarkets"`
	UniqueTraders   uint64            `json:"uniqueTraders"`
}

// PortfolioPosition is one row of a user's portfolio.
type PortfolioPosition struct {
	Market          MarketView        `json:"market"`
	Side            Side              `json:"side"`
	Amount          fixedpoint.Amount `json:"amount"`
	Status          string            `json:"status"` // active, won, lost, claimed
	PotentialPayout fixedpoint.Amount `json:"potentialPayout"`
}

// Portfolio summarises a user's positions across markets.
type Portfolio struct {
	User            string              `json:"user"`
	TotalDeposited  fixedpoint.Amount   `json:"totalDeposited"`
	CurrentValue    fixedpoint.Amount   `json:"currentValue"`
	TotalPnL        int64               `json:"totalPnl"`
	TotalPnLPercent string              `json:"totalPnlPercent"`
	WinRate         string              `json:"winRate"`
	ActiveBets      int                 `json:"activeBets"`
	TotalBets       int                 `json:"totalBets"`
	Positions       []PortfolioPosition `json:"positions"`
}
