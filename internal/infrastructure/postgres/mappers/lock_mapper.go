package mappers

import (
	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres/models"
)

func ToDomainLock(model *models.PriceLockModel) *domain.PriceLock {
	return &domain.PriceLock{
		ID:         model.ID,
		UserID:     model.UserID,
		Pair:       model.Pair,
		LockedRate: model.LockedRate,
		AmountUSD:  model.AmountUSD,
		Direction:  domain.Direction(model.Direction),
		LockedAt:   model.LockedAt,
		ExpiresAt:  model.ExpiresAt,
		Used:       model.Used,
	}
}

func ToGORMLock(lock *domain.PriceLock) *models.PriceLockModel {
	return &models.PriceLockModel{
		ID:         lock.ID,
		UserID:     lock.UserID,
		Pair:       lock.Pair,
		LockedRate: lock.LockedRate,
		AmountUSD:  lock.AmountUSD,
		Direction:  string(lock.Direction),
		LockedAt:   lock.LockedAt,
		ExpiresAt:  lock.ExpiresAt,
		Used:       lock.Used,
	}
}
