package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"signal-market/internal/fixedpoint"
)

// MarketStatus is the lifecycle state of a market. Values match the
// contract ABI encoding.
type MarketStatus uint8

const (
	MarketStatusActive   MarketStatus = 0
	MarketStatusClosed   MarketStatus = 1
	MarketStatusResolved MarketStatus = 2
)

func (s MarketStatus) String() string {
	switch s {
	case MarketStatusActive:
		return "active"
	case MarketStatusClosed:
		return "closed"
	case MarketStatusResolved:
		return "resolved"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// ParseMarketStatus accepts the ABI number or the lowercase name.
func ParseMarketStatus(s string) (MarketStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "active":
		return MarketStatusActive, nil
	case "1", "closed":
		return MarketStatusClosed, nil
	case "2", "resolved":
		return MarketStatusResolved, nil
	}
	return 0, fmt.Errorf("invalid market status %q", s)
}

// Side is the side of a binary proposition. Values match the ABI encoding.
type Side uint8

const (
	SideYes Side = 0
	SideNo  Side = 1
)

// Valid reports whether s is yes or no.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

func (s Side) String() string {
	switch s {
	case SideYes:
		return "yes"
	case SideNo:
		return "no"
	default:
		return "side(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseSide accepts "0"/"1" or "yes"/"no" in any case.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "yes":
		return SideYes, true
	case "1", "no":
		return SideNo, true
	}
	return 0, false
}

// SideFromOutcome maps the ABI outcome bool to a Side (true = yes).
func SideFromOutcome(outcome bool) Side {
	if outcome {
		return SideYes
	}
	return SideNo
}

// Market is a yes/no proposition with pooled stakes per side.
type Market struct {
	ID         uint64            `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Question   string            `gorm:"type:text;not null" json:"question"`
	Deadline   int64             `gorm:"not null;index" json:"deadline"`
	TotalYes   fixedpoint.Amount `gorm:"type:bigint;not null;default:0" json:"total_yes"`
	TotalNo    fixedpoint.Amount `gorm:"type:bigint;not null;default:0" json:"total_no"`
	Status     MarketStatus      `gorm:"type:smallint;not null;default:0;index" json:"status"`
	Outcome    *Side             `gorm:"type:smallint" json:"outcome,omitempty"`
	CreatedBy  string            `gorm:"size:64;not null" json:"created_by"`
	CreatedAt  int64             `gorm:"autoCreateTime:false;not null" json:"created_at"`
	ResolvedAt *int64            `json:"resolved_at,omitempty"`
	ArchivedAt *time.Time        `gorm:"index" json:"archived_at,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

// Pool returns totalYes + totalNo.
func (m *Market) Pool() (fixedpoint.Amount, error) {
	return m.TotalYes.Add(m.TotalNo)
}

// SidePool returns the accumulator for side.
func (m *Market) SidePool(side Side) fixedpoint.Amount {
	if side == SideYes {
		return m.TotalYes
	}
	return m.TotalNo
}

// DeadlinePassed reports whether now is at or after the deadline.
func (m *Market) DeadlinePassed(now time.Time) bool {
	return now.Unix() >= m.Deadline
}

// EffectiveStatus folds the deadline into the stored status: an Active
// market past its deadline reads as Closed.
func (m *Market) EffectiveStatus(now time.Time) MarketStatus {
	if m.Status == MarketStatusActive && m.DeadlinePassed(now) {
		return MarketStatusClosed
	}
	return m.Status
}

// AcceptsBets reports whether new stakes may be placed at now.
func (m *Market) AcceptsBets(now time.Time) bool {
	return m.Status == MarketStatusActive && !m.DeadlinePassed(now)
}

// IsWinningSide reports whether side matches the resolved outcome.
func (m *Market) IsWinningSide(side Side) bool {
	return m.Status == MarketStatusResolved && m.Outcome != nil && *m.Outcome == side
}
