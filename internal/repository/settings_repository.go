package repository

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"signal-market/internal/models"
)

// GetSetting retrieves a ledger setting by name
func (r *Repository) GetSetting(ctx context.Context, name string) (string, error) {
	var setting models.LedgerSetting
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&setting).Error; err != nil {
		return "", notFound(err)
	}
	return setting.Value, nil
}

// SetSetting creates or overwrites a ledger setting.
func (r *Repository) SetSetting(ctx context.Context, name, value string) error {
	setting := models.LedgerSetting{Name: name, Value: value, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// CreateAdminLog records an administrative action.
func (r *Repository) CreateAdminLog(ctx context.Context, entry *models.AdminLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListAdminLogs returns the newest administrative actions.
func (r *Repository) ListAdminLogs(ctx context.Context, limit int) ([]*models.AdminLog, error) {
	var logs []*models.AdminLog
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
