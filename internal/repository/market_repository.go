package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"signal-market/internal/fixedpoint"
	"signal-market/internal/models"
)

// MarketFilter narrows ListMarkets. Status filters on the effective
// status at Now: an Active market past its deadline matches Closed.
type MarketFilter struct {
	Status *models.MarketStatus
	Now    int64
	Limit  int
	Offset int
}

// CountMarkets returns the number of markets ever created, which is also
// the next market id.
func (r *Repository) CountMarkets(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Market{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

// CreateMarket inserts a market with its caller-assigned id.
// A second insert of an existing id surfaces as ErrConflict.
func (r *Repository) CreateMarket(ctx context.Context, market *models.Market) error {
	err := r.db.WithContext(ctx).Create(market).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// GetMarket retrieves a market by id
func (r *Repository) GetMarket(ctx context.Context, id uint64) (*models.Market, error) {
	var market models.Market
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&market).Error; err != nil {
		return nil, notFound(err)
	}
	return &market, nil
}

// ListMarkets returns markets ordered by id.
func (r *Repository) ListMarkets(ctx context.Context, filter MarketFilter) ([]*models.Market, error) {
	query := r.db.WithContext(ctx).Model(&models.Market{})
	if filter.Status != nil {
		switch *filter.Status {
		case models.MarketStatusActive:
			query = query.Where("status = ? AND deadline > ?", models.MarketStatusActive, filter.Now)
		case models.MarketStatusClosed:
			query = query.Where("status = ? OR (status = ? AND deadline <= ?)",
				models.MarketStatusClosed, models.MarketStatusActive, filter.Now)
		default:
			query = query.Where("status = ?", *filter.Status)
		}
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var markets []*models.Market
	if err := query.Order("id ASC").Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

// GetMarketsByIDs returns the markets with the given ids keyed by id.
func (r *Repository) GetMarketsByIDs(ctx context.Context, ids []uint64) (map[uint64]*models.Market, error) {
	out := make(map[uint64]*models.Market, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var markets []*models.Market
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&markets).Error; err != nil {
		return nil, err
	}
	for _, m := range markets {
		out[m.ID] = m
	}
	return out, nil
}

// UpdateMarketPools overwrites the side accumulators of an unresolved market.
func (r *Repository) UpdateMarketPools(ctx context.Context, id uint64, totalYes, totalNo fixedpoint.Amount) error {
	result := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND status <> ?", id, models.MarketStatusResolved).
		Updates(map[string]interface{}{
			"total_yes":  totalYes,
			"total_no":   totalNo,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ResolveMarket records the outcome. It only matches a market that is not
// yet resolved.
func (r *Repository) ResolveMarket(ctx context.Context, id uint64, outcome models.Side, resolvedAt int64) error {
	result := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND status <> ?", id, models.MarketStatusResolved).
		Updates(map[string]interface{}{
			"status":      models.MarketStatusResolved,
			"outcome":     outcome,
			"resolved_at": resolvedAt,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CloseExpiredMarkets persists Closed on every Active market whose deadline
// is at or before now.
func (r *Repository) CloseExpiredMarkets(ctx context.Context, now int64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("status = ? AND deadline <= ?", models.MarketStatusActive, now).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id IN ? AND status = ?", ids, models.MarketStatusActive).
		Updates(map[string]interface{}{
			"status":     models.MarketStatusClosed,
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListUnarchivedResolved returns resolved markets without a settlement
// report, oldest first.
func (r *Repository) ListUnarchivedResolved(ctx context.Context, limit int) ([]*models.Market, error) {
	var markets []*models.Market
	err := r.db.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", models.MarketStatusResolved).
		Order("id ASC").
		Limit(limit).
		Find(&markets).Error
	if err != nil {
		return nil, err
	}
	return markets, nil
}

// MarkArchived stamps a resolved market as archived. Already archived
// markets are left untouched.
func (r *Repository) MarkArchived(ctx context.Context, id uint64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Market{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
