package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/metrics"
	"github.com/sirupsen/logrus"
)

type LimitsUsecase interface {
	Validate(ctx context.Context, userID string, amount float64, currency string, direction domain.Direction) (*domain.LimitsResult, error)
}

// DefaultLimitsUsecase checks a proposed transaction against rolling volume
// and count ceilings. Rules are evaluated independently and violations
// collected, never short-circuited.
type DefaultLimitsUsecase struct {
	txRepo domain.TransactionRepository
	cfg    config.LimitsConfig

	log     *logrus.Logger
	metrics *metrics.PricingMetrics
}

func NewDefaultLimitsUsecase(txRepo domain.TransactionRepository, cfg config.LimitsConfig, log *logrus.Logger, m *metrics.PricingMetrics) *DefaultLimitsUsecase {
	return &DefaultLimitsUsecase{
		txRepo:  txRepo,
		cfg:     cfg,
		log:     log,
		metrics: m,
	}
}

func (uc *DefaultLimitsUsecase) Validate(ctx context.Context, userID string, amount float64, currency string, direction domain.Direction) (*domain.LimitsResult, error) {
	amountUSD := uc.ConvertToUSD(amount, currency)

	now := time.Now()
	monthStart := now.AddDate(0, 0, -30)
	dayStart := now.Add(-24 * time.Hour)

	summary, err := uc.txRepo.GetUserVolumeSummary(ctx, userID, monthStart, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user volume: %w", err)
	}

	result := &domain.LimitsResult{
		RemainingMonthlyUSD:        uc.cfg.MonthlyCeilingUSD - summary.MonthVolumeUSD,
		RemainingDailyTransactions: uc.cfg.DailyTransactionLimit - summary.DayTransactionCount,
	}

	if amountUSD < uc.cfg.MinTransactionUSD {
		result.Errors = append(result.Errors, domain.LimitViolation{
			Code:    domain.LimitCodeBelowMinimum,
			Message: fmt.Sprintf("amount %.2f USD is below the %.2f USD minimum", amountUSD, uc.cfg.MinTransactionUSD),
		})
	}
	if amountUSD > uc.cfg.MaxTransactionUSD {
		result.Errors = append(result.Errors, domain.LimitViolation{
			Code:    domain.LimitCodeAboveMaximum,
			Message: fmt.Sprintf("amount %.2f USD exceeds the %.2f USD maximum", amountUSD, uc.cfg.MaxTransactionUSD),
		})
	}
	if summary.MonthVolumeUSD+amountUSD > uc.cfg.MonthlyCeilingUSD {
		result.Errors = append(result.Errors, domain.LimitViolation{
			Code: domain.LimitCodeMonthlyVolume,
			Message: fmt.Sprintf("transaction would exceed the monthly ceiling, %.2f USD remaining",
				result.RemainingMonthlyUSD),
		})
	}
	if summary.DayTransactionCount >= uc.cfg.DailyTransactionLimit {
		result.Errors = append(result.Errors, domain.LimitViolation{
			Code:    domain.LimitCodeDailyTxCount,
			Message: fmt.Sprintf("daily transaction limit of %d reached", uc.cfg.DailyTransactionLimit),
		})
	}

	if summary.MonthVolumeUSD+amountUSD >= uc.cfg.MonthlyWarningFraction*uc.cfg.MonthlyCeilingUSD {
		result.Warnings = append(result.Warnings, domain.LimitViolation{
			Code: domain.LimitWarnMonthlyNearCap,
			Message: fmt.Sprintf("monthly usage above %.0f%% of the ceiling",
				uc.cfg.MonthlyWarningFraction*100),
		})
	}

	result.Valid = len(result.Errors) == 0
	if uc.metrics != nil {
		outcome := "valid"
		if !result.Valid {
			outcome = "rejected"
		}
		uc.metrics.LimitChecksTotal.WithLabelValues(outcome).Inc()
	}
	if !result.Valid {
		uc.log.WithFields(logrus.Fields{
			"user_id":    userID,
			"amount_usd": amountUSD,
			"currency":   currency,
			"direction":  direction,
			"violations": len(result.Errors),
		}).Info("transaction rejected by limits")
	}

	return result, nil
}

// ConvertToUSD converts a non-USD volume with fixed approximate constants.
// Limit enforcement does not need rate-exact precision; keeping the
// constants static makes limit behavior independent of market moves.
func (uc *DefaultLimitsUsecase) ConvertToUSD(amount float64, currency string) float64 {
	if currency == "USD" || currency == "" {
		return amount
	}
	if rate, ok := uc.cfg.USDApproximations[currency]; ok && rate > 0 {
		return amount * rate
	}
	uc.log.WithField("currency", currency).Warn("no USD approximation configured, using amount as-is")
	return amount
}
