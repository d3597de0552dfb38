package models

import (
	"time"

	"github.com/google/uuid"

	"signal-market/internal/fixedpoint"
)

// Claim is the receipt of a settled payout. The unique index on
// (market_id, user_address) backs the exactly-once claim rule.
type Claim struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	MarketID    uint64            `gorm:"not null;uniqueIndex:idx_claims_market_user" json:"market_id"`
	UserAddress string            `gorm:"size:64;not null;uniqueIndex:idx_claims_market_user;index" json:"user_address"`
	Side        Side              `gorm:"type:smallint;not null" json:"side"`
	Stake       fixedpoint.Amount `gorm:"type:bigint;not null" json:"stake"`
	Payout      fixedpoint.Amount `gorm:"type:bigint;not null" json:"payout"`
	ClaimedAt   int64             `gorm:"not null" json:"claimed_at"`
	PayoutRef   string            `gorm:"size:128" json:"payout_ref,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (Claim) TableName() string {
	return "claims"
}
