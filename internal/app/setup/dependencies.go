package setup

import (
	"fmt"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/cambix/pricing-service/internal/domain"
	publisher "github.com/cambix/pricing-service/internal/infrastructure/kafka"
	"github.com/cambix/pricing-service/internal/infrastructure/logger"
	"github.com/cambix/pricing-service/internal/infrastructure/metrics"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres"
	"github.com/cambix/pricing-service/internal/infrastructure/postgres/repository"
	"github.com/cambix/pricing-service/internal/infrastructure/providers"
	"github.com/cambix/pricing-service/internal/usecase"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies is every service the process needs, constructed exactly once
// at startup and passed by handle. Nothing here is a hidden global.
type Dependencies struct {
	Config  *config.PricingConfig
	Log     *logrus.Logger
	DB      *gorm.DB
	Metrics *metrics.PricingMetrics

	RatePublisher *publisher.DefaultKafkaPublisher
	Repositories  *Repositories

	RateCache   *usecase.RateCache
	RateEngine  *usecase.RateEngine
	Locks       usecase.LockUsecase
	Limits      usecase.LimitsUsecase
	Distributor *usecase.Distributor
}

type Repositories struct {
	LockRepo        domain.LockRepository
	TransactionRepo domain.TransactionRepository
}

func InitializeDependencies() (*Dependencies, error) {
	cfg := config.MustLoad()
	log := logger.New(cfg.LogConfig)

	db := postgres.MustInitDB(cfg)
	pricingMetrics := metrics.NewPricingMetrics()

	ratePublisher := publisher.NewDefaultKafkaPublisher(
		[]string{fmt.Sprintf("%s:%s", cfg.KafkaService.Host, cfg.KafkaService.Port)},
	)

	repos := &Repositories{
		LockRepo:        repository.NewDefaultLockRepository(db),
		TransactionRepo: repository.NewDefaultTransactionRepository(db),
	}

	primary := providers.NewDolarAPIProvider(cfg.Providers.PrimaryBaseURL, cfg.Providers.Timeout)
	secondary := providers.NewBluelyticsProvider(cfg.Providers.SecondaryBaseURL, cfg.Providers.Timeout)

	rateCache := usecase.NewRateCache(primary, secondary, cfg.Cache.TTL, log, pricingMetrics)
	rateEngine := usecase.NewRateEngine(
		rateCache,
		cfg.Pairs,
		cfg.CrossPairs,
		cfg.Cache,
		ratePublisher,
		cfg.KafkaService.RateTopic,
		log,
		pricingMetrics,
	)

	locks := usecase.NewDefaultLockUsecase(repos.LockRepo, cfg.Locks.TTL, cfg.Locks.AmountTolerance, log, pricingMetrics)
	limits := usecase.NewDefaultLimitsUsecase(repos.TransactionRepo, cfg.Limits, log, pricingMetrics)

	distributor, err := usecase.NewDistributor(rateEngine, cfg.Distributor, log, pricingMetrics)
	if err != nil {
		return nil, fmt.Errorf("distributor: %w", err)
	}

	return &Dependencies{
		Config:        cfg,
		Log:           log,
		DB:            db,
		Metrics:       pricingMetrics,
		RatePublisher: ratePublisher,
		Repositories:  repos,
		RateCache:     rateCache,
		RateEngine:    rateEngine,
		Locks:         locks,
		Limits:        limits,
		Distributor:   distributor,
	}, nil
}
