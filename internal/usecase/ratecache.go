package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/metrics"
	"github.com/sirupsen/logrus"
)

// RateCache resolves raw prices with cascading fallback:
// fresh cache -> primary provider -> secondary provider -> stale cache.
// It never fabricates a price without a prior basis.
type RateCache struct {
	primary   domain.QuoteProvider
	secondary domain.QuoteProvider
	ttl       time.Duration

	mu      sync.RWMutex
	entries map[string]cachedQuote

	log     *logrus.Logger
	metrics *metrics.PricingMetrics
}

type cachedQuote struct {
	quote    domain.RawQuote
	storedAt time.Time
	provider string
}

func NewRateCache(primary, secondary domain.QuoteProvider, ttl time.Duration, log *logrus.Logger, m *metrics.PricingMetrics) *RateCache {
	return &RateCache{
		primary:   primary,
		secondary: secondary,
		ttl:       ttl,
		entries:   make(map[string]cachedQuote),
		log:       log,
		metrics:   m,
	}
}

// GetPrice returns the price for one symbol together with the origin it was
// resolved from: cached (fresh TTL hit), live (provider fetch) or emergency
// (stale fallback after all providers failed).
func (c *RateCache) GetPrice(ctx context.Context, symbol string) (*domain.RawQuote, domain.QuoteOrigin, error) {
	return c.resolve(ctx, symbol, false)
}

// Refresh bypasses the fresh-cache step and goes straight to the providers.
func (c *RateCache) Refresh(ctx context.Context, symbol string) (*domain.RawQuote, domain.QuoteOrigin, error) {
	return c.resolve(ctx, symbol, true)
}

func (c *RateCache) resolve(ctx context.Context, symbol string, skipFresh bool) (*domain.RawQuote, domain.QuoteOrigin, error) {
	if !skipFresh {
		if entry, ok := c.freshEntry(symbol); ok {
			quote := entry.quote
			return &quote, domain.OriginCached, nil
		}
	}

	quote, err := c.fetch(ctx, c.primary, symbol)
	if err == nil {
		c.store(symbol, quote, c.primary.GetName())
		return quote, domain.OriginLive, nil
	}
	c.log.WithError(err).WithField("symbol", symbol).Warn("primary quote provider failed")

	if c.secondary != nil {
		quote, err = c.fetch(ctx, c.secondary, symbol)
		if err == nil {
			c.store(symbol, quote, c.secondary.GetName())
			return quote, domain.OriginLive, nil
		}
		c.log.WithError(err).WithField("symbol", symbol).Warn("secondary quote provider failed")
	}

	if entry, ok := c.anyEntry(symbol); ok {
		c.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"age":    time.Since(entry.storedAt).String(),
		}).Warn("serving stale price, all providers failed")
		quote := entry.quote
		return &quote, domain.OriginEmergency, nil
	}

	return nil, "", fmt.Errorf("%w: %s", domain.ErrNoPriceAvailable, symbol)
}

func (c *RateCache) fetch(ctx context.Context, provider domain.QuoteProvider, symbol string) (*domain.RawQuote, error) {
	start := time.Now()
	quote, err := provider.GetQuote(ctx, symbol)
	if c.metrics != nil {
		c.metrics.ProviderLatency.WithLabelValues(provider.GetName()).Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.metrics.ProviderRequestsTotal.WithLabelValues(provider.GetName(), outcome).Inc()
	}
	return quote, err
}

func (c *RateCache) freshEntry(symbol string) (cachedQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || time.Since(entry.storedAt) >= c.ttl {
		return cachedQuote{}, false
	}
	return entry, true
}

func (c *RateCache) anyEntry(symbol string) (cachedQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	return entry, ok
}

func (c *RateCache) store(symbol string, quote *domain.RawQuote, provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = cachedQuote{
		quote:    *quote,
		storedAt: time.Now(),
		provider: provider,
	}
}
