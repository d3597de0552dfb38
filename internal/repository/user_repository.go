package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"signal-market/internal/models"
)

// GetUserByWallet retrieves a user by wallet address
func (r *Repository) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", wallet).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// CreateUser inserts a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// TouchUserLogin stamps the last login time.
func (r *Repository) TouchUserLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// GetUserByID retrieves a user by primary key
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// NicknameExists reports whether a nickname is already taken.
func (r *Repository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("nickname = ?", nickname).
		Count(&count).Error
	return count > 0, err
}

// UpdateNickname sets a user's nickname. A nickname taken concurrently
// surfaces as ErrConflict.
func (r *Repository) UpdateNickname(ctx context.Context, id uint, nickname string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("nickname", nickname).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// CreateLoginNonce stores a login challenge and drops challenges that
// expired before now.
func (r *Repository) CreateLoginNonce(ctx context.Context, nonce *models.LoginNonce, now time.Time) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("expires_at <= ?", now).Delete(&models.LoginNonce{}).Error; err != nil {
		return err
	}
	return db.Create(nonce).Error
}

// ConsumeLoginNonce deletes an unexpired challenge. It reports false when
// the nonce is unknown, expired, or was already consumed.
func (r *Repository) ConsumeLoginNonce(ctx context.Context, nonce string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("nonce = ? AND expires_at > ?", nonce, now).
		Delete(&models.LoginNonce{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
