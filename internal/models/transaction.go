package models

import (
	"time"

	"github.com/google/uuid"

	"signal-market/internal/fixedpoint"
)

// VaultTransactionType classifies a custody journal entry.
type VaultTransactionType string

const (
	VaultTxDeposit   VaultTransactionType = "deposit"
	VaultTxBetPlaced VaultTransactionType = "bet_placed"
	VaultTxRefund    VaultTransactionType = "refund"
	VaultTxPayout    VaultTransactionType = "payout"
)

// VaultBalance is the spendable stable-value balance of an address held by
// the custody vault.
type VaultBalance struct {
	Address   string            `gorm:"primaryKey;size:64" json:"address"`
	Available fixedpoint.Amount `gorm:"type:bigint;not null;default:0" json:"available"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TableName specifies the table name for VaultBalance model
func (VaultBalance) TableName() string {
	return "vault_balances"
}

// VaultTransaction is one movement of funds into or out of custody.
type VaultTransaction struct {
	ID        uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	Address   string               `gorm:"size:64;not null;index" json:"address"`
	Type      VaultTransactionType `gorm:"size:32;not null;index" json:"type"`
	Amount    fixedpoint.Amount    `gorm:"type:bigint;not null" json:"amount"`
	MarketID  *uint64              `gorm:"index" json:"market_id,omitempty"`
	CreatedAt time.Time            `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for VaultTransaction model
func (VaultTransaction) TableName() string {
	return "vault_transactions"
}
