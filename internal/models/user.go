package models

import (
	"time"
)

// Chain identifies the signature scheme a wallet authenticated with.
type Chain string

const (
	ChainEVM    Chain = "evm"
	ChainSolana Chain = "solana"
)

// User is a wallet that has authenticated at least once.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"size:64;uniqueIndex;not null" json:"wallet_address"`
	Chain         Chain     `gorm:"size:16;not null" json:"chain"`
	Nickname      string    `gorm:"uniqueIndex;not null" json:"nickname"`
	LastLoginAt   time.Time `json:"last_login_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// LoginNonce is a single-use login challenge. A row is deleted when a
// signature over it is accepted.
type LoginNonce struct {
	Nonce     string    `gorm:"primaryKey;size:64" json:"nonce"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for LoginNonce model
func (LoginNonce) TableName() string {
	return "login_nonces"
}
