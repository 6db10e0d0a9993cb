package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
)

func TestDolarAPIQuoteMidpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/dolares/blue" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"moneda":"USD","casa":"blue","compra":1490,"venta":1510,"fechaActualizacion":"2026-08-29T12:00:00.000Z"}`))
	}))
	defer server.Close()

	provider := NewDolarAPIProvider(server.URL, 2*time.Second)
	quote, err := provider.GetQuote(context.Background(), "USD/ARS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Price != 1500 {
		t.Errorf("expected midpoint 1500, got %v", quote.Price)
	}
	if quote.Symbol != "USD/ARS" {
		t.Errorf("expected symbol USD/ARS, got %s", quote.Symbol)
	}
}

func TestDolarAPIUnknownSymbol(t *testing.T) {
	provider := NewDolarAPIProvider("http://127.0.0.1:0", 2*time.Second)

	_, err := provider.GetQuote(context.Background(), "GBP/ARS")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestDolarAPINonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewDolarAPIProvider(server.URL, 2*time.Second)
	_, err := provider.GetQuote(context.Background(), "USD/ARS")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestDolarAPIMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	provider := NewDolarAPIProvider(server.URL, 2*time.Second)
	_, err := provider.GetQuote(context.Background(), "USD/ARS")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestDolarAPIEmptyQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"moneda":"USD","casa":"blue","compra":0,"venta":0}`))
	}))
	defer server.Close()

	provider := NewDolarAPIProvider(server.URL, 2*time.Second)
	_, err := provider.GetQuote(context.Background(), "USD/ARS")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func bluelyticsPayload() string {
	return `{
		"oficial": {"value_avg": 1050, "value_sell": 1070, "value_buy": 1030},
		"blue": {"value_avg": 1500, "value_sell": 1510, "value_buy": 1490},
		"oficial_euro": {"value_avg": 1200, "value_sell": 1220, "value_buy": 1180},
		"blue_euro": {"value_avg": 1750, "value_sell": 1760, "value_buy": 1740},
		"last_update": "2026-08-29T12:00:00.000Z"
	}`
}

func TestBluelyticsBlueRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/latest" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(bluelyticsPayload()))
	}))
	defer server.Close()

	provider := NewBluelyticsProvider(server.URL, 2*time.Second)

	usd, err := provider.GetQuote(context.Background(), "USD/ARS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usd.Price != 1500 {
		t.Errorf("expected blue avg 1500, got %v", usd.Price)
	}

	eur, err := provider.GetQuote(context.Background(), "EUR/ARS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eur.Price != 1750 {
		t.Errorf("expected blue euro avg 1750, got %v", eur.Price)
	}
}

func TestBluelyticsUnknownSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bluelyticsPayload()))
	}))
	defer server.Close()

	provider := NewBluelyticsProvider(server.URL, 2*time.Second)
	_, err := provider.GetQuote(context.Background(), "BRL/ARS")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestProviderHealthChecks(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/latest" {
			w.Write([]byte(bluelyticsPayload()))
			return
		}
		w.Write([]byte(`{"moneda":"USD","casa":"blue","compra":1490,"venta":1510}`))
	}))
	defer healthy.Close()

	if !NewDolarAPIProvider(healthy.URL, 2*time.Second).IsHealthy(context.Background()) {
		t.Error("expected healthy dolarapi")
	}
	if !NewBluelyticsProvider(healthy.URL, 2*time.Second).IsHealthy(context.Background()) {
		t.Error("expected healthy bluelytics")
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if NewDolarAPIProvider(down.URL, 2*time.Second).IsHealthy(context.Background()) {
		t.Error("expected unhealthy dolarapi")
	}
}
