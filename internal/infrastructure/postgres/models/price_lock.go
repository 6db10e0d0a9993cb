package models

import "time"

type PriceLockModel struct {
	ID         string `gorm:"primaryKey;type:uuid"`
	UserID     string `gorm:"index:idx_lock_user"`
	Pair       string
	LockedRate float64
	AmountUSD  float64
	Direction  string
	LockedAt   time.Time
	ExpiresAt  time.Time `gorm:"index:idx_lock_expires"`
	Used       bool      `gorm:"index:idx_lock_used"`
}

func (PriceLockModel) TableName() string {
	return "price_locks"
}
