package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type LockUsecase interface {
	CreateLock(ctx context.Context, userID string, quote *domain.RateQuote, amountUSD float64, direction domain.Direction) (*domain.PriceLock, error)
	Redeem(ctx context.Context, lockID, userID, pair string, amountUSD float64, direction domain.Direction) (*domain.PriceLock, error)
	MarkUsed(ctx context.Context, lockID string) error
	SweepDeadLocks(ctx context.Context) (int64, error)
}

// DefaultLockUsecase issues time-boxed price locks and redeems each at most
// once. Redemption across different locks is contention-free; the same lock
// is serialized by a repository-level check-and-set.
type DefaultLockUsecase struct {
	lockRepo  domain.LockRepository
	ttl       time.Duration
	tolerance float64

	log     *logrus.Logger
	metrics *metrics.PricingMetrics
}

func NewDefaultLockUsecase(lockRepo domain.LockRepository, ttl time.Duration, tolerance float64, log *logrus.Logger, m *metrics.PricingMetrics) *DefaultLockUsecase {
	return &DefaultLockUsecase{
		lockRepo:  lockRepo,
		ttl:       ttl,
		tolerance: tolerance,
		log:       log,
		metrics:   m,
	}
}

// CreateLock always succeeds for well-formed input: a user may hold several
// concurrent locks.
func (uc *DefaultLockUsecase) CreateLock(ctx context.Context, userID string, quote *domain.RateQuote, amountUSD float64, direction domain.Direction) (*domain.PriceLock, error) {
	rate := quote.SellRate
	if direction == domain.DirectionBuy {
		rate = quote.BuyRate
	}

	now := time.Now()
	lock := &domain.PriceLock{
		ID:         uuid.NewString(),
		UserID:     userID,
		Pair:       quote.Pair,
		LockedRate: rate,
		AmountUSD:  amountUSD,
		Direction:  direction,
		LockedAt:   now,
		ExpiresAt:  now.Add(uc.ttl),
	}

	if err := uc.lockRepo.CreateLock(ctx, lock); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LocksCreatedTotal.WithLabelValues(lock.Pair, string(direction)).Inc()
	}
	uc.log.WithFields(logrus.Fields{
		"lock_id":    lock.ID,
		"pair":       lock.Pair,
		"expires_at": lock.ExpiresAt,
	}).Info("price lock created")

	return lock, nil
}

// Redeem validates in mandatory order: existence and unused state, expiry,
// ownership, pair, direction, amount tolerance. The final mark-used is an
// atomic check-and-set, so concurrent redemptions of the same lock yield
// exactly one success; the loser observes the lock as already consumed.
func (uc *DefaultLockUsecase) Redeem(ctx context.Context, lockID, userID, pair string, amountUSD float64, direction domain.Direction) (*domain.PriceLock, error) {
	lock, err := uc.lockRepo.GetLockByID(ctx, lockID)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotFound) {
			return nil, uc.reject(domain.ErrLockNotFound)
		}
		return nil, err
	}
	if lock == nil || lock.Used {
		return nil, uc.reject(domain.ErrLockNotFound)
	}
	if lock.Expired(time.Now()) {
		return nil, uc.reject(domain.ErrLockExpired)
	}
	if lock.UserID != userID {
		return nil, uc.reject(domain.ErrLockOwnershipMismatch)
	}
	if lock.Pair != pair {
		return nil, uc.reject(domain.ErrLockPairMismatch)
	}
	if lock.Direction != direction {
		return nil, uc.reject(domain.ErrLockDirectionMismatch)
	}
	if !uc.amountWithinTolerance(lock.AmountUSD, amountUSD) {
		return nil, uc.reject(domain.ErrLockAmountMismatch)
	}

	ok, err := uc.lockRepo.MarkLockUsed(ctx, lockID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race to a concurrent redemption.
		return nil, uc.reject(domain.ErrLockNotFound)
	}

	if uc.metrics != nil {
		uc.metrics.LockRedemptionsTotal.WithLabelValues("success").Inc()
	}
	lock.Used = true
	return lock, nil
}

func (uc *DefaultLockUsecase) MarkUsed(ctx context.Context, lockID string) error {
	ok, err := uc.lockRepo.MarkLockUsed(ctx, lockID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrLockNotFound
	}
	return nil
}

// SweepDeadLocks removes expired and consumed locks. Expiry is re-checked by
// redemption before any lock is assumed to exist, so the sweep never races a
// redemption into an incorrect outcome.
func (uc *DefaultLockUsecase) SweepDeadLocks(ctx context.Context) (int64, error) {
	removed, err := uc.lockRepo.DeleteDeadLocks(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 && uc.metrics != nil {
		uc.metrics.LocksSweptTotal.Add(float64(removed))
	}
	return removed, nil
}

func (uc *DefaultLockUsecase) amountWithinTolerance(locked, requested float64) bool {
	allowed := uc.tolerance * math.Max(locked, requested)
	return math.Abs(locked-requested) <= allowed
}

func (uc *DefaultLockUsecase) reject(reason error) error {
	if uc.metrics != nil {
		uc.metrics.LockRedemptionsTotal.WithLabelValues("rejected").Inc()
	}
	return reason
}
