package background

import (
	"context"
	"time"

	"github.com/cambix/pricing-service/internal/usecase"
	"github.com/sirupsen/logrus"
)

type BackgroundTasks struct {
	Locks         usecase.LockUsecase
	Engine        *usecase.RateEngine
	SweepInterval time.Duration
	Log           *logrus.Logger
}

func NewBackgroundTasks(locks usecase.LockUsecase, engine *usecase.RateEngine, sweepInterval time.Duration, log *logrus.Logger) *BackgroundTasks {
	return &BackgroundTasks{
		Locks:         locks,
		Engine:        engine,
		SweepInterval: sweepInterval,
		Log:           log,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.startLockSweep(ctx)
	go bt.startHealthMonitor(ctx)
}

func (bt *BackgroundTasks) startLockSweep(ctx context.Context) {
	ticker := time.NewTicker(bt.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := bt.Locks.SweepDeadLocks(ctx)
			if err != nil {
				bt.Log.WithError(err).Warn("lock sweep failed")
				continue
			}
			if removed > 0 {
				bt.Log.WithField("removed", removed).Info("swept dead price locks")
			}
		}
	}
}

func (bt *BackgroundTasks) startHealthMonitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.Engine.ObserveQuoteAges()
			if !bt.Engine.Healthy() {
				bt.Log.Warn("pricing engine unhealthy: stale quotes detected")
			}
		}
	}
}
