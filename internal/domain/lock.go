package domain

import (
	"context"
	"time"
)

// PriceLock reserves a quoted rate for one user until ExpiresAt.
// Used transitions false -> true exactly once; an expired lock is
// unusable regardless of Used.
type PriceLock struct {
	ID         string
	UserID     string
	Pair       string
	LockedRate float64
	AmountUSD  float64
	Direction  Direction
	LockedAt   time.Time
	ExpiresAt  time.Time
	Used       bool
}

func (l *PriceLock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

type LockRepository interface {
	CreateLock(ctx context.Context, lock *PriceLock) error
	GetLockByID(ctx context.Context, lockID string) (*PriceLock, error)
	// MarkLockUsed flips Used to true if and only if it is still false.
	// Returns false when the lock is missing or was already consumed.
	MarkLockUsed(ctx context.Context, lockID string) (bool, error)
	// DeleteDeadLocks removes locks that are expired or already used.
	DeleteDeadLocks(ctx context.Context, now time.Time) (int64, error)
}
