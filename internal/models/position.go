package models

import (
	"time"

	"signal-market/internal/fixedpoint"
)

// Position is a user's cumulative stake on one side of one market. The
// composite primary key allows at most one position per user per market.
type Position struct {
	MarketID    uint64            `gorm:"primaryKey;autoIncrement:false" json:"market_id"`
	UserAddress string            `gorm:"primaryKey;size:64" json:"user_address"`
	Side        Side              `gorm:"type:smallint;not null" json:"side"`
	Amount      fixedpoint.Amount `gorm:"type:bigint;not null" json:"amount"`
	Timestamp   int64             `gorm:"not null" json:"timestamp"`
	Claimed     bool              `gorm:"not null;default:false;index" json:"claimed"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName specifies the table name for Position
func (Position) TableName() string {
	return "positions"
}
