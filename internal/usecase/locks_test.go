package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
)

type memLockRepo struct {
	mu    sync.Mutex
	locks map[string]*domain.PriceLock
}

func newMemLockRepo() *memLockRepo {
	return &memLockRepo{locks: make(map[string]*domain.PriceLock)}
}

func (r *memLockRepo) CreateLock(ctx context.Context, lock *domain.PriceLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lock
	r.locks[lock.ID] = &cp
	return nil
}

func (r *memLockRepo) GetLockByID(ctx context.Context, lockID string) (*domain.PriceLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[lockID]
	if !ok {
		return nil, domain.ErrLockNotFound
	}
	cp := *lock
	return &cp, nil
}

func (r *memLockRepo) MarkLockUsed(ctx context.Context, lockID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[lockID]
	if !ok || lock.Used {
		return false, nil
	}
	lock.Used = true
	return true, nil
}

func (r *memLockRepo) DeleteDeadLocks(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, lock := range r.locks {
		if lock.Used || lock.Expired(now) {
			delete(r.locks, id)
			removed++
		}
	}
	return removed, nil
}

func testQuote() *domain.RateQuote {
	return &domain.RateQuote{
		Pair:           "USD-ARS",
		BaseCurrency:   "USD",
		TargetCurrency: "ARS",
		SellRate:       1480.00,
		BuyRate:        1550.00,
		Spread:         70.00,
		LastUpdated:    time.Now(),
		Origin:         domain.OriginLive,
	}
}

func newTestLockUsecase(repo domain.LockRepository) *DefaultLockUsecase {
	return NewDefaultLockUsecase(repo, 15*time.Minute, 0.01, testLogger(), nil)
}

func TestCreateLockSnapshotsDirectionalRate(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	sellLock, err := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sellLock.LockedRate != 1480.00 {
		t.Errorf("expected locked sell rate 1480.00, got %v", sellLock.LockedRate)
	}

	buyLock, err := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionBuy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buyLock.LockedRate != 1550.00 {
		t.Errorf("expected locked buy rate 1550.00, got %v", buyLock.LockedRate)
	}

	if got := sellLock.ExpiresAt.Sub(sellLock.LockedAt); got != 15*time.Minute {
		t.Errorf("expected 15m lifetime, got %v", got)
	}
	if sellLock.ID == buyLock.ID {
		t.Error("expected distinct lock IDs for concurrent locks")
	}
}

func TestRedeemHappyPath(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	lock, err := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	redeemed, err := uc.Redeem(ctx, lock.ID, "user-1", "USD-ARS", 100, domain.DirectionSell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !redeemed.Used {
		t.Error("expected redeemed lock to be marked used")
	}
	if redeemed.LockedRate != 1480.00 {
		t.Errorf("expected locked rate 1480.00, got %v", redeemed.LockedRate)
	}
}

func TestRedeemTwiceFails(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	lock, _ := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)
	if _, err := uc.Redeem(ctx, lock.ID, "user-1", "USD-ARS", 100, domain.DirectionSell); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if _, err := uc.Redeem(ctx, lock.ID, "user-1", "USD-ARS", 100, domain.DirectionSell); !errors.Is(err, domain.ErrLockNotFound) {
		t.Fatalf("expected ErrLockNotFound on second redemption, got %v", err)
	}
}

func TestRedeemExpiredLockFailsEvenWhenUnused(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	expired := &domain.PriceLock{
		ID:         "lock-expired",
		UserID:     "user-1",
		Pair:       "USD-ARS",
		LockedRate: 1480.00,
		AmountUSD:  100,
		Direction:  domain.DirectionSell,
		LockedAt:   time.Now().Add(-20 * time.Minute),
		ExpiresAt:  time.Now().Add(-5 * time.Minute),
	}
	if err := repo.CreateLock(ctx, expired); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := uc.Redeem(ctx, "lock-expired", "user-1", "USD-ARS", 100, domain.DirectionSell); !errors.Is(err, domain.ErrLockExpired) {
		t.Fatalf("expected ErrLockExpired, got %v", err)
	}
}

func TestRedeemValidationMismatches(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	lock, _ := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)

	cases := []struct {
		name      string
		userID    string
		pair      string
		amount    float64
		direction domain.Direction
		want      error
	}{
		{"wrong user", "user-2", "USD-ARS", 100, domain.DirectionSell, domain.ErrLockOwnershipMismatch},
		{"wrong pair", "user-1", "EUR-ARS", 100, domain.DirectionSell, domain.ErrLockPairMismatch},
		{"wrong direction", "user-1", "USD-ARS", 100, domain.DirectionBuy, domain.ErrLockDirectionMismatch},
		{"amount beyond tolerance", "user-1", "USD-ARS", 102, domain.DirectionSell, domain.ErrLockAmountMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.Redeem(ctx, lock.ID, tc.userID, tc.pair, tc.amount, tc.direction); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// The failed attempts must not have consumed the lock.
	if _, err := uc.Redeem(ctx, lock.ID, "user-1", "USD-ARS", 100, domain.DirectionSell); err != nil {
		t.Fatalf("expected valid redemption to still succeed, got %v", err)
	}
}

func TestRedeemAmountWithinTolerance(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	lock, _ := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)
	if _, err := uc.Redeem(ctx, lock.ID, "user-1", "USD-ARS", 100.9, domain.DirectionSell); err != nil {
		t.Fatalf("expected 0.9%% drift to be tolerated, got %v", err)
	}
}

func TestRedeemUnknownLock(t *testing.T) {
	uc := newTestLockUsecase(newMemLockRepo())

	_, err := uc.Redeem(context.Background(), "no-such-lock", "user-1", "USD-ARS", 100, domain.DirectionSell)
	if !errors.Is(err, domain.ErrLockNotFound) {
		t.Fatalf("expected ErrLockNotFound, got %v", err)
	}
}

type failingLockRepo struct {
	*memLockRepo
	getErr error
}

func (r *failingLockRepo) GetLockByID(ctx context.Context, lockID string) (*domain.PriceLock, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.memLockRepo.GetLockByID(ctx, lockID)
}

func TestRedeemPropagatesRepositoryErrors(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &failingLockRepo{memLockRepo: newMemLockRepo(), getErr: repoErr}
	uc := newTestLockUsecase(repo)

	_, err := uc.Redeem(context.Background(), "lock-1", "user-1", "USD-ARS", 100, domain.DirectionSell)
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected the repository error to surface, got %v", err)
	}
	if errors.Is(err, domain.ErrLockNotFound) {
		t.Error("an infrastructure failure must not read as a lock rejection")
	}
}

func TestConcurrentRedemptionYieldsExactlyOneSuccess(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	lock, _ := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Redeem(ctx, lock.ID, "user-1", "USD-ARS", 100, domain.DirectionSell)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, domain.ErrLockNotFound) {
			t.Errorf("loser saw unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", successes)
	}
}

func TestSweepDeadLocksRemovesExpiredAndUsed(t *testing.T) {
	repo := newMemLockRepo()
	uc := newTestLockUsecase(repo)
	ctx := context.Background()

	live, _ := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)
	used, _ := uc.CreateLock(ctx, "user-1", testQuote(), 100, domain.DirectionSell)
	if _, err := uc.Redeem(ctx, used.ID, "user-1", "USD-ARS", 100, domain.DirectionSell); err != nil {
		t.Fatalf("redemption failed: %v", err)
	}
	expired := &domain.PriceLock{
		ID:        "lock-expired",
		UserID:    "user-1",
		Pair:      "USD-ARS",
		Direction: domain.DirectionSell,
		LockedAt:  time.Now().Add(-20 * time.Minute),
		ExpiresAt: time.Now().Add(-5 * time.Minute),
	}
	if err := repo.CreateLock(ctx, expired); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	removed, err := uc.SweepDeadLocks(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 locks swept, got %d", removed)
	}
	if _, err := repo.GetLockByID(ctx, live.ID); err != nil {
		t.Errorf("expected live lock to survive the sweep: %v", err)
	}
}
