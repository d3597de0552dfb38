package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"signal-market/internal/fixedpoint"
	"signal-market/internal/models"
)

// GetVaultBalance returns the available balance of address. Unknown
// addresses hold zero.
func (r *Repository) GetVaultBalance(ctx context.Context, address string) (fixedpoint.Amount, error) {
	var balance models.VaultBalance
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&balance).Error
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return fixedpoint.Zero, nil
		}
		return 0, err
	}
	return balance.Available, nil
}

// SetVaultBalance overwrites the available balance of address.
func (r *Repository) SetVaultBalance(ctx context.Context, address string, available fixedpoint.Amount) error {
	balance := models.VaultBalance{
		Address:   address,
		Available: available,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"available", "updated_at"}),
	}).Create(&balance).Error
}

// CreateVaultTransaction appends a custody journal entry.
func (r *Repository) CreateVaultTransaction(ctx context.Context, tx *models.VaultTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListVaultTransactions returns the newest journal entries of address.
func (r *Repository) ListVaultTransactions(ctx context.Context, address string, limit int) ([]*models.VaultTransaction, error) {
	var txs []*models.VaultTransaction
	err := r.db.WithContext(ctx).
		Where("address = ?", address).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// SumVaultBalances returns the total of every available balance.
func (r *Repository) SumVaultBalances(ctx context.Context) (fixedpoint.Amount, error) {
	var balances []models.VaultBalance
	if err := r.db.WithContext(ctx).Find(&balances).Error; err != nil {
		return 0, err
	}
	total := fixedpoint.Zero
	for _, b := range balances {
		next, err := total.Add(b.Available)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}

// VaultTransactionExists reports whether a journal entry with id exists.
func (r *Repository) VaultTransactionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VaultTransaction{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
