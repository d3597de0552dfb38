package custody

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"signal-market/internal/fixedpoint"
	"signal-market/internal/models"
	"signal-market/internal/repository"
)

// Vault is a database-backed balance book of the 6-decimal stable token.
// Deposits credit an address; stakes are debited from it and payouts
// credited back.
type Vault struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

var _ Custody = (*Vault)(nil)

// NewVault creates a Vault over db.
func NewVault(db *gorm.DB, log logrus.FieldLogger) *Vault {
	return &Vault{db: db, log: log}
}

// Balance returns the available balance of address.
func (v *Vault) Balance(ctx context.Context, address string) (fixedpoint.Amount, error) {
	return repository.NewRepository(v.db).GetVaultBalance(ctx, address)
}

// Journal returns the newest movements of address.
func (v *Vault) Journal(ctx context.Context, address string, limit int) ([]*models.VaultTransaction, error) {
	return repository.NewRepository(v.db).ListVaultTransactions(ctx, address, limit)
}

// Deposit credits address with amount of fresh funds.
func (v *Vault) Deposit(ctx context.Context, address string, amount fixedpoint.Amount) (string, error) {
	return v.credit(ctx, uuid.New(), address, amount, models.VaultTxDeposit, nil)
}

// Collect debits a stake from the payer.
func (v *Vault) Collect(ctx context.Context, from string, amount fixedpoint.Amount, marketID uint64) (string, error) {
	if amount.IsZero() {
		return "", fmt.Errorf("collect: zero amount")
	}

	ref := uuid.New()
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.VaultBalance{}).
			Where("address = ? AND available >= ?", from, amount).
			Updates(map[string]interface{}{
				"available":  gorm.Expr("available - ?", amount),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientFunds
		}
		return repository.NewRepository(tx).CreateVaultTransaction(ctx, &models.VaultTransaction{
			ID:       ref,
			Address:  from,
			Type:     models.VaultTxBetPlaced,
			Amount:   amount,
			MarketID: &marketID,
		})
	})
	if err != nil {
		return "", err
	}

	v.log.WithFields(logrus.Fields{
		"address":   from,
		"amount":    amount.String(),
		"market_id": marketID,
	}).Debug("Stake collected")
	return ref.String(), nil
}

// Refund returns a collected stake to the payer.
func (v *Vault) Refund(ctx context.Context, to string, amount fixedpoint.Amount, marketID uint64) (string, error) {
	return v.credit(ctx, uuid.New(), to, amount, models.VaultTxRefund, &marketID)
}

// Release pays a winner. The journal entry reuses claimID, so releasing
// the same claim twice credits once.
func (v *Vault) Release(ctx context.Context, claimID uuid.UUID, to string, amount fixedpoint.Amount, marketID uint64) (string, error) {
	return v.credit(ctx, claimID, to, amount, models.VaultTxPayout, &marketID)
}

func (v *Vault) credit(ctx context.Context, ref uuid.UUID, address string, amount fixedpoint.Amount, kind models.VaultTransactionType, marketID *uint64) (string, error) {
	duplicate := false
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)
		exists, err := repo.VaultTransactionExists(ctx, ref)
		if err != nil {
			return err
		}
		if exists {
			duplicate = true
			return nil
		}

		current, err := repo.GetVaultBalance(ctx, address)
		if err != nil {
			return err
		}
		if _, err := current.Add(amount); err != nil {
			return fmt.Errorf("credit %s: %w", address, err)
		}

		balance := models.VaultBalance{Address: address, Available: amount, UpdatedAt: time.Now()}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"available":  gorm.Expr("vault_balances.available + ?", amount),
				"updated_at": time.Now(),
			}),
		}).Create(&balance).Error
		if err != nil {
			return err
		}

		return repo.CreateVaultTransaction(ctx, &models.VaultTransaction{
			ID:       ref,
			Address:  address,
			Type:     kind,
			Amount:   amount,
			MarketID: marketID,
		})
	})
	if err != nil {
		return "", err
	}
	if duplicate {
		return ref.String(), nil
	}

	v.log.WithFields(logrus.Fields{
		"address": address,
		"amount":  amount.String(),
		"type":    kind,
	}).Debug("Vault credited")
	return ref.String(), nil
}
