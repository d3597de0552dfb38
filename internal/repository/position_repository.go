package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"signal-market/internal/models"
)

// GetPosition retrieves the position of user on a market
func (r *Repository) GetPosition(ctx context.Context, marketID uint64, user string) (*models.Position, error) {
	var position models.Position
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND user_address = ?", marketID, user).
		First(&position).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &position, nil
}

// UpsertPosition creates the position or overwrites its side, amount and
// timestamp.
func (r *Repository) UpsertPosition(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}, {Name: "user_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"side", "amount", "timestamp", "updated_at"}),
	}).Create(position).Error
}

// MarkClaimed flips claimed from false to true. It reports false when the
// position was already claimed or does not exist.
func (r *Repository) MarkClaimed(ctx context.Context, marketID uint64, user string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Position{}).
		Where("market_id = ? AND user_address = ? AND claimed = ?", marketID, user, false).
		Updates(map[string]interface{}{
			"claimed":    true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListUserPositions returns every position held by user ordered by market.
func (r *Repository) ListUserPositions(ctx context.Context, user string) ([]*models.Position, error) {
	var positions []*models.Position
	err := r.db.WithContext(ctx).
		Where("user_address = ?", user).
		Order("market_id ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// ListMarketPositions returns every position on a market.
func (r *Repository) ListMarketPositions(ctx context.Context, marketID uint64) ([]*models.Position, error) {
	var positions []*models.Position
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("user_address ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// CountTraders returns the number of distinct addresses holding a position.
func (r *Repository) CountTraders(ctx context.Context) (uint64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Position{}).
		Distinct("user_address").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return uint64(count), nil
}

// CreateClaim records a payout receipt.
func (r *Repository) CreateClaim(ctx context.Context, claim *models.Claim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(claim).Error
}

// SetClaimPayoutRef attaches the custody reference to a receipt.
func (r *Repository) SetClaimPayoutRef(ctx context.Context, id uuid.UUID, ref string) error {
	return r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ?", id).
		Update("payout_ref", ref).Error
}

// GetClaim retrieves the receipt of user on a market
func (r *Repository) GetClaim(ctx context.Context, marketID uint64, user string) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).
		Where("market_id = ? AND user_address = ?", marketID, user).
		First(&claim).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &claim, nil
}

// ListMarketClaims returns every receipt for a market.
func (r *Repository) ListMarketClaims(ctx context.Context, marketID uint64) ([]*models.Claim, error) {
	var claims []*models.Claim
	err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("claimed_at ASC").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ListPendingClaims returns receipts whose payout has not been released.
func (r *Repository) ListPendingClaims(ctx context.Context, limit int) ([]*models.Claim, error) {
	var claims []*models.Claim
	err := r.db.WithContext(ctx).
		Where("payout_ref = ? OR payout_ref IS NULL", "").
		Order("claimed_at ASC").
		Limit(limit).
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	return claims, nil
}
