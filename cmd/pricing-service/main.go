package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cambix/pricing-service/internal/app/background"
	"github.com/cambix/pricing-service/internal/app/setup"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	deps, err := setup.InitializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize dependencies: %v", err)
	}

	ctx := context.Background()

	// Warm up every configured pair before accepting subscribers.
	warmupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	deps.RateEngine.UpdateAll(warmupCtx)
	cancel()

	deps.Distributor.Start(ctx)

	tasks := background.NewBackgroundTasks(deps.Locks, deps.RateEngine, deps.Config.Locks.SweepInterval, deps.Log)
	tasks.StartAll(ctx)

	addr := fmt.Sprintf("%s:%s", deps.Config.MetricsServer.Host, deps.Config.MetricsServer.Port)
	http.Handle("/metrics", promhttp.Handler())
	deps.Log.WithField("addr", addr).Info("pricing service started")
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("failed to serve: %v\n", err)
	}
}
