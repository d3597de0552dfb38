package models

import "signal-market/internal/fixedpoint"

// WinnerPayout is one winning position in a settlement report.
type WinnerPayout struct {
	User    string            `json:"user"`
	Stake   fixedpoint.Amount `json:"stake"`
	Payout  fixedpoint.Amount `json:"payout"`
	Claimed bool              `json:"claimed"`
}

// SettlementReport is the archived record of a resolved market. Dust is
// the part of the pool that floor division leaves undistributed.
type SettlementReport struct {
	MarketID    uint64            `json:"marketId"`
	Question    string            `json:"question"`
	Deadline    int64             `json:"deadline"`
	Outcome     bool              `json:"outcome"`
	ResolvedAt  int64             `json:"resolvedAt"`
	TotalYes    fixedpoint.Amount `json:"totalYes"`
	TotalNo     fixedpoint.Amount `json:"totalNo"`
	Pool        fixedpoint.Amount `json:"pool"`
	WinningPool fixedpoint.Amount `json:"winningPool"`
	Winners     []WinnerPayout    `json:"winners"`
	TotalPayout fixedpoint.Amount `json:"totalPayout"`
	Dust        fixedpoint.Amount `json:"dust"`
	GeneratedAt int64             `json:"generatedAt"`
}
