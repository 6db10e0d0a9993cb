package repository

import (
	"context"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultTransactionRepository struct {
	db *gorm.DB
}

func NewDefaultTransactionRepository(db *gorm.DB) *DefaultTransactionRepository {
	return &DefaultTransactionRepository{db: db}
}

func (r *DefaultTransactionRepository) GetUserVolumeSummary(ctx context.Context, userID string, monthStart, dayStart time.Time) (*domain.UserVolumeSummary, error) {
	var month struct {
		Volume float64
	}
	err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("COALESCE(SUM(amount_usd), 0) AS volume").
		Where("user_id = ? AND created_at >= ?", userID, monthStart).
		Scan(&month).Error
	if err != nil {
		return nil, err
	}

	var day struct {
		Volume float64
		Count  int
		Last   *time.Time
	}
	err = r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("COALESCE(SUM(amount_usd), 0) AS volume, COUNT(*) AS count, MAX(created_at) AS last").
		Where("user_id = ? AND created_at >= ?", userID, dayStart).
		Scan(&day).Error
	if err != nil {
		return nil, err
	}

	summary := &domain.UserVolumeSummary{
		UserID:              userID,
		MonthVolumeUSD:      month.Volume,
		DayVolumeUSD:        day.Volume,
		DayTransactionCount: day.Count,
	}
	if day.Last != nil {
		summary.LastTransactionAt = *day.Last
	}
	return summary, nil
}
