package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/notes_auth/internal/models"
)

func (r *GormRepo) countUsers(ctx context.Context, column, value string) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where(column+" = ?", value).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRepo) CountByUsername(ctx context.Context, username string) (int64, error) {
	return r.countUsers(ctx, "username", username)
}

func (r *GormRepo) CountByEmail(ctx context.Context, email string) (int64, error) {
	return r.countUsers(ctx, "email", email)
}

func (r *GormRepo) CountByAccountToken(ctx context.Context, token string) (int64, error) {
	return r.countUsers(ctx, "token", token)
}

func (r *GormRepo) InsertUser(ctx context.Context, u *models.User) (uint, error) {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		}
		return 0, err
	}
	return u.ID, nil
}

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users by ascending id. A limit of zero returns all of them.
func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) ([]models.User, error) {
	q := r.DB.WithContext(ctx).Order("id ASC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
