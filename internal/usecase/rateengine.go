package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/cambix/pricing-service/internal/domain"
	publisher "github.com/cambix/pricing-service/internal/infrastructure/kafka"
	"github.com/cambix/pricing-service/internal/infrastructure/metrics"
	"github.com/sirupsen/logrus"
)

const (
	primaryPrecision = 2
	crossPrecision   = 4
)

type RatePublisher interface {
	PublishRate(topic string, event publisher.RateEvent) error
}

// RateEngine owns the current RateQuote per configured pair. Each pair has a
// single writer (its refresh) and many concurrent readers; quotes are
// replaced wholesale under the lock, never partially mutated.
type RateEngine struct {
	cache      *RateCache
	pairs      map[string]config.PairConfig
	pairOrder  []string
	crossPairs []config.CrossPairConfig

	publisher RatePublisher
	rateTopic string

	minRefresh  time.Duration
	maxQuoteAge time.Duration

	mu     sync.RWMutex
	quotes map[string]*domain.RateQuote

	log     *logrus.Logger
	metrics *metrics.PricingMetrics
}

func NewRateEngine(
	cache *RateCache,
	pairs []config.PairConfig,
	crossPairs []config.CrossPairConfig,
	cacheCfg config.CacheConfig,
	pub RatePublisher,
	rateTopic string,
	log *logrus.Logger,
	m *metrics.PricingMetrics,
) *RateEngine {
	engine := &RateEngine{
		cache:       cache,
		pairs:       make(map[string]config.PairConfig, len(pairs)),
		crossPairs:  crossPairs,
		publisher:   pub,
		rateTopic:   rateTopic,
		minRefresh:  cacheCfg.MinRefreshInterval,
		maxQuoteAge: cacheCfg.MaxQuoteAge,
		quotes:      make(map[string]*domain.RateQuote),
		log:         log,
		metrics:     m,
	}
	for _, pair := range pairs {
		engine.pairs[pair.Pair] = pair
		engine.pairOrder = append(engine.pairOrder, pair.Pair)
	}
	return engine
}

// UpdateAll refreshes every primary pair concurrently, then recomputes cross
// pairs from the updated primaries. One pair's failure never blocks another;
// a failed pair keeps its previous quote.
func (e *RateEngine) UpdateAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, pair := range e.pairOrder {
		pairCfg := e.pairs[pair]
		wg.Add(1)
		go func(pairCfg config.PairConfig) {
			defer wg.Done()
			if _, err := e.refreshPrimary(ctx, pairCfg, false); err != nil {
				e.log.WithError(err).WithField("pair", pairCfg.Pair).Warn("rate update failed, previous quote retained")
			}
		}(pairCfg)
	}
	wg.Wait()

	e.updateCrossPairs()
}

// RefreshPair force-refreshes one pair. A request within the minimum refresh
// window of the last update is deduplicated into a no-op returning the
// current quote, so concurrent force-refreshers cannot cause fetch storms.
func (e *RateEngine) RefreshPair(ctx context.Context, pair string) (*domain.RateQuote, error) {
	pairCfg, ok := e.pairs[pair]
	if !ok {
		if e.isCrossPair(pair) {
			e.updateCrossPairs()
			if quote := e.GetRate(pair); quote != nil {
				return quote, nil
			}
			return nil, fmt.Errorf("%w: %s", domain.ErrNoPriceAvailable, pair)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrPairNotConfigured, pair)
	}

	if current := e.GetRate(pair); current != nil && time.Since(current.LastUpdated) < e.minRefresh {
		return current, nil
	}

	quote, err := e.refreshPrimary(ctx, pairCfg, true)
	if err != nil {
		return nil, err
	}
	e.updateCrossPairs()
	return quote, nil
}

func (e *RateEngine) refreshPrimary(ctx context.Context, pairCfg config.PairConfig, force bool) (*domain.RateQuote, error) {
	var (
		raw    *domain.RawQuote
		origin domain.QuoteOrigin
		err    error
	)
	if force {
		raw, origin, err = e.cache.Refresh(ctx, pairCfg.Symbol)
	} else {
		raw, origin, err = e.cache.GetPrice(ctx, pairCfg.Symbol)
	}
	if err != nil {
		if e.metrics != nil {
			e.metrics.RateUpdateErrorsTotal.WithLabelValues(pairCfg.Pair).Inc()
		}
		return nil, err
	}

	// A stale fallback is not a fresh update: keep the time the price was
	// actually observed so Healthy() still detects a provider outage.
	lastUpdated := time.Now()
	if origin == domain.OriginEmergency {
		lastUpdated = raw.ObservedAt
	}

	sell := roundTo(raw.Price+pairCfg.SellAdjustment, primaryPrecision)
	buy := roundTo(raw.Price+pairCfg.BuyAdjustment, primaryPrecision)
	quote := &domain.RateQuote{
		Pair:           pairCfg.Pair,
		BaseCurrency:   pairCfg.BaseCurrency,
		TargetCurrency: pairCfg.TargetCurrency,
		SellRate:       sell,
		BuyRate:        buy,
		Spread:         roundTo(buy-sell, primaryPrecision),
		CommissionRate: pairCfg.CommissionRate,
		LastUpdated:    lastUpdated,
		Origin:         origin,
	}

	e.mu.Lock()
	e.quotes[pairCfg.Pair] = quote
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RateUpdatesTotal.WithLabelValues(pairCfg.Pair, string(origin)).Inc()
	}
	e.publishRate(quote)

	return quote, nil
}

// updateCrossPairs recomputes every synthetic pair from the current primary
// quotes. A cross pair whose legs are missing keeps its previous value.
func (e *RateEngine) updateCrossPairs() {
	for _, pairCfg := range e.crossPairs {
		rateLeg := e.GetRate(pairCfg.RateLeg)
		baseLeg := e.GetRate(pairCfg.BaseLeg)
		if rateLeg == nil || baseLeg == nil || baseLeg.SellRate == 0 || baseLeg.BuyRate == 0 {
			e.log.WithField("pair", pairCfg.Pair).Warn("cross pair legs unavailable, previous quote retained")
			continue
		}

		sell := roundTo(rateLeg.SellRate/baseLeg.SellRate, crossPrecision)
		buy := roundTo(rateLeg.BuyRate/baseLeg.BuyRate, crossPrecision)
		quote := &domain.RateQuote{
			Pair:           pairCfg.Pair,
			BaseCurrency:   pairCfg.BaseCurrency,
			TargetCurrency: pairCfg.TargetCurrency,
			SellRate:       sell,
			BuyRate:        buy,
			Spread:         roundTo(buy-sell, crossPrecision),
			CommissionRate: pairCfg.CommissionRate,
			LastUpdated:    time.Now(),
			Origin:         domain.OriginSynthetic,
		}

		e.mu.Lock()
		e.quotes[pairCfg.Pair] = quote
		e.mu.Unlock()

		if e.metrics != nil {
			e.metrics.RateUpdatesTotal.WithLabelValues(pairCfg.Pair, string(domain.OriginSynthetic)).Inc()
		}
		e.publishRate(quote)
	}
}

// GetRate returns a copy of the current quote for a pair, or nil if none has
// been computed yet.
func (e *RateEngine) GetRate(pair string) *domain.RateQuote {
	e.mu.RLock()
	defer e.mu.RUnlock()

	quote, ok := e.quotes[pair]
	if !ok {
		return nil
	}
	cp := *quote
	return &cp
}

func (e *RateEngine) GetAllRates() []*domain.RateQuote {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rates := make([]*domain.RateQuote, 0, len(e.quotes))
	for _, quote := range e.quotes {
		cp := *quote
		rates = append(rates, &cp)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Pair < rates[j].Pair })
	return rates
}

// TrackedPairs lists every pair the engine serves, primaries first.
func (e *RateEngine) TrackedPairs() []string {
	pairs := make([]string, 0, len(e.pairOrder)+len(e.crossPairs))
	pairs = append(pairs, e.pairOrder...)
	for _, pairCfg := range e.crossPairs {
		pairs = append(pairs, pairCfg.Pair)
	}
	return pairs
}

// CalculateTransaction prices one proposed transaction at the current quote.
// Sells charge the pair's commission on the gross target amount; buys are
// commission-free by explicit business policy.
func (e *RateEngine) CalculateTransaction(pair string, amount float64, direction domain.Direction) (*domain.TransactionQuote, error) {
	quote := e.GetRate(pair)
	if quote == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoPriceAvailable, pair)
	}

	precision := e.precision(pair)
	switch direction {
	case domain.DirectionSell:
		rate := quote.SellRate
		gross := amount * rate
		commission := roundTo(gross*quote.CommissionRate, precision)
		net := roundTo(gross-commission, precision)
		return &domain.TransactionQuote{
			Pair:         pair,
			Direction:    direction,
			BaseAmount:   amount,
			TargetAmount: net,
			RateUsed:     rate,
			Commission:   commission,
			TotalCost:    roundTo(gross, precision),
		}, nil
	case domain.DirectionBuy:
		rate := quote.BuyRate
		if rate == 0 {
			return nil, fmt.Errorf("%w: %s has zero buy rate", domain.ErrNoPriceAvailable, pair)
		}
		base := roundTo(amount/rate, precision)
		return &domain.TransactionQuote{
			Pair:         pair,
			Direction:    direction,
			BaseAmount:   base,
			TargetAmount: amount,
			RateUsed:     rate,
			Commission:   0,
			TotalCost:    amount,
		}, nil
	default:
		return nil, fmt.Errorf("unknown direction %q", direction)
	}
}

// Healthy reports false once any tracked quote is older than the maximum
// quote age.
func (e *RateEngine) Healthy() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	for _, quote := range e.quotes {
		if now.Sub(quote.LastUpdated) > e.maxQuoteAge {
			return false
		}
	}
	return true
}

// ObserveQuoteAges exports the current quote age per pair.
func (e *RateEngine) ObserveQuoteAges() {
	if e.metrics == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	for pair, quote := range e.quotes {
		e.metrics.QuoteAgeSeconds.WithLabelValues(pair).Set(now.Sub(quote.LastUpdated).Seconds())
	}
}

func (e *RateEngine) isCrossPair(pair string) bool {
	for _, pairCfg := range e.crossPairs {
		if pairCfg.Pair == pair {
			return true
		}
	}
	return false
}

func (e *RateEngine) precision(pair string) int {
	if e.isCrossPair(pair) {
		return crossPrecision
	}
	return primaryPrecision
}

func (e *RateEngine) publishRate(quote *domain.RateQuote) {
	if e.publisher == nil {
		return
	}
	event := publisher.RateEvent{
		Pair:        quote.Pair,
		SellRate:    quote.SellRate,
		BuyRate:     quote.BuyRate,
		Spread:      quote.Spread,
		Origin:      string(quote.Origin),
		LastUpdated: quote.LastUpdated,
	}
	go func() {
		if err := e.publisher.PublishRate(e.rateTopic, event); err != nil {
			e.log.WithError(err).WithField("pair", event.Pair).Warn("failed to publish rate event")
		}
	}()
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
