package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres/mappers"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultLockRepository struct {
	db *gorm.DB
}

func NewDefaultLockRepository(db *gorm.DB) *DefaultLockRepository {
	return &DefaultLockRepository{db: db}
}

func (r *DefaultLockRepository) CreateLock(ctx context.Context, lock *domain.PriceLock) error {
	return r.db.WithContext(ctx).Create(mappers.ToGORMLock(lock)).Error
}

func (r *DefaultLockRepository) GetLockByID(ctx context.Context, lockID string) (*domain.PriceLock, error) {
	var model models.PriceLockModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", lockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLockNotFound
		}
		return nil, err
	}
	return mappers.ToDomainLock(&model), nil
}

// MarkLockUsed is the atomic check-and-set behind at-most-once redemption:
// the WHERE clause guarantees that concurrent attempts on the same lock
// produce exactly one affected row.
func (r *DefaultLockRepository) MarkLockUsed(ctx context.Context, lockID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PriceLockModel{}).
		Where("id = ? AND used = ?", lockID, false).
		Update("used", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultLockRepository) DeleteDeadLocks(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR used = ?", now, true).
		Delete(&models.PriceLockModel{})
	return res.RowsAffected, res.Error
}
