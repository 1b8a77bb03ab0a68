package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/notes_auth/internal/models"
)

func createRefresh(tx *gorm.DB, token *models.RefreshToken) error {
	if err := tx.Create(token).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		}
		return err
	}
	return nil
}

// enforceCap invalidates the oldest valid tokens of username so that at most
// maxActive stay valid. maxActive <= 0 disables the cap.
func enforceCap(tx *gorm.DB, username string, maxActive int) error {
	if maxActive <= 0 {
		return nil
	}
	var ids []uint
	if err := tx.Model(&models.RefreshToken{}).
		Where("username = ? AND is_valid = ?", username, true).
		Order("id DESC").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) <= maxActive {
		return nil
	}
	return tx.Model(&models.RefreshToken{}).
		Where("id IN ?", ids[maxActive:]).
		Update("is_valid", false).Error
}

func (r *GormRepo) InsertRefreshToken(ctx context.Context, token *models.RefreshToken, maxActive int) (uint, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createRefresh(tx, token); err != nil {
			return err
		}
		return enforceCap(tx, token.Username, maxActive)
	})
	if err != nil {
		return 0, err
	}
	return token.ID, nil
}

func (r *GormRepo) FindValidRefreshToken(ctx context.Context, username, value string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).
		Where("username = ? AND refresh_token = ? AND is_valid = ?", username, value, true).
		Take(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &token, nil
}

// RotateRefreshToken invalidates oldID and inserts next in one transaction.
// ErrNotFound means oldID was no longer valid, i.e. another request rotated it first.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldID uint, next *models.RefreshToken, maxActive int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND is_valid = ?", oldID, true).
			Update("is_valid", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := createRefresh(tx, next); err != nil {
			return err
		}
		return enforceCap(tx, next.Username, maxActive)
	})
}

func (r *GormRepo) InvalidateRefreshToken(ctx context.Context, username, value string) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("username = ? AND refresh_token = ? AND is_valid = ?", username, value, true).
		Update("is_valid", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
