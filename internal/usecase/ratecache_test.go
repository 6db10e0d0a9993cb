package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
	"github.com/sirupsen/logrus"
)

type stubProvider struct {
	name string

	mu     sync.Mutex
	calls  map[string]int
	prices map[string]float64
	err    error
}

func (p *stubProvider) GetQuote(ctx context.Context, symbol string) (*domain.RawQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[symbol]++
	if p.err != nil {
		return nil, p.err
	}
	price, ok := p.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: unknown symbol %s", domain.ErrProviderUnavailable, symbol)
	}
	return &domain.RawQuote{Symbol: symbol, Price: price, ObservedAt: time.Now()}, nil
}

func (p *stubProvider) GetName() string { return p.name }

func (p *stubProvider) IsHealthy(ctx context.Context) bool { return true }

func (p *stubProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func (p *stubProvider) callCount(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRateCacheServesFreshEntryWithoutRefetch(t *testing.T) {
	primary := &stubProvider{name: "primary", prices: map[string]float64{"USD/ARS": 1500}}
	cache := NewRateCache(primary, nil, 30*time.Second, testLogger(), nil)

	ctx := context.Background()
	if _, origin, err := cache.GetPrice(ctx, "USD/ARS"); err != nil || origin != domain.OriginLive {
		t.Fatalf("expected live quote, got origin=%s err=%v", origin, err)
	}

	quote, origin, err := cache.GetPrice(ctx, "USD/ARS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if origin != domain.OriginCached {
		t.Errorf("expected cached origin, got %s", origin)
	}
	if quote.Price != 1500 {
		t.Errorf("expected price 1500, got %v", quote.Price)
	}
	if calls := primary.callCount("USD/ARS"); calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", calls)
	}
}

func TestRateCacheFallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", err: domain.ErrProviderUnavailable}
	secondary := &stubProvider{name: "secondary", prices: map[string]float64{"USD/ARS": 1480}}
	cache := NewRateCache(primary, secondary, 30*time.Second, testLogger(), nil)

	quote, origin, err := cache.GetPrice(context.Background(), "USD/ARS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if origin != domain.OriginLive {
		t.Errorf("expected live origin from secondary, got %s", origin)
	}
	if quote.Price != 1480 {
		t.Errorf("expected secondary price 1480, got %v", quote.Price)
	}
}

func TestRateCacheServesStaleWhenAllProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "primary", prices: map[string]float64{"USD/ARS": 1500}}
	secondary := &stubProvider{name: "secondary", err: domain.ErrProviderUnavailable}
	cache := NewRateCache(primary, secondary, 30*time.Second, testLogger(), nil)

	ctx := context.Background()
	if _, _, err := cache.GetPrice(ctx, "USD/ARS"); err != nil {
		t.Fatalf("priming fetch failed: %v", err)
	}

	primary.setErr(domain.ErrProviderUnavailable)
	quote, origin, err := cache.Refresh(ctx, "USD/ARS")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if origin != domain.OriginEmergency {
		t.Errorf("expected emergency origin, got %s", origin)
	}
	if quote.Price != 1500 {
		t.Errorf("expected last cached price 1500, got %v", quote.Price)
	}
}

func TestRateCacheFailsWithoutPriorBasis(t *testing.T) {
	primary := &stubProvider{name: "primary", err: domain.ErrProviderUnavailable}
	secondary := &stubProvider{name: "secondary", err: domain.ErrProviderUnavailable}
	cache := NewRateCache(primary, secondary, 30*time.Second, testLogger(), nil)

	_, _, err := cache.GetPrice(context.Background(), "USD/ARS")
	if !errors.Is(err, domain.ErrNoPriceAvailable) {
		t.Fatalf("expected ErrNoPriceAvailable, got %v", err)
	}
}

func TestRateCacheRefreshBypassesTTL(t *testing.T) {
	primary := &stubProvider{name: "primary", prices: map[string]float64{"USD/ARS": 1500}}
	cache := NewRateCache(primary, nil, 30*time.Second, testLogger(), nil)

	ctx := context.Background()
	if _, _, err := cache.GetPrice(ctx, "USD/ARS"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, origin, err := cache.Refresh(ctx, "USD/ARS"); err != nil || origin != domain.OriginLive {
		t.Fatalf("expected live refetch, got origin=%s err=%v", origin, err)
	}
	if calls := primary.callCount("USD/ARS"); calls != 2 {
		t.Errorf("expected two provider calls, got %d", calls)
	}
}
