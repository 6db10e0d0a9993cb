package domain

import (
	"context"
	"time"
)

// UserVolumeSummary aggregates a user's executed transactions for limit
// checks. It is derived on demand and never cached between validations.
type UserVolumeSummary struct {
	UserID              string
	MonthVolumeUSD      float64
	DayVolumeUSD        float64
	DayTransactionCount int
	LastTransactionAt   time.Time
}

type TransactionRepository interface {
	GetUserVolumeSummary(ctx context.Context, userID string, monthStart, dayStart time.Time) (*UserVolumeSummary, error)
}
