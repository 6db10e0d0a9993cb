package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cambix/pricing-service/internal/domain"
)

// DolarAPIProvider is the primary quote source. One outbound read per call,
// no internal retry: fallback belongs to the rate cache.
type DolarAPIProvider struct {
	baseURL string
	client  *http.Client
}

type dolarAPIResponse struct {
	Currency string  `json:"moneda"`
	House    string  `json:"casa"`
	Buy      float64 `json:"compra"`
	Sell     float64 `json:"venta"`
	Updated  string  `json:"fechaActualizacion"`
}

// Endpoint paths per supported symbol.
var dolarAPIPaths = map[string]string{
	"USD/ARS": "/v1/dolares/blue",
	"EUR/ARS": "/v1/cotizaciones/eur",
	"BRL/ARS": "/v1/cotizaciones/brl",
}

func NewDolarAPIProvider(baseURL string, timeout time.Duration) *DolarAPIProvider {
	return &DolarAPIProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *DolarAPIProvider) GetName() string {
	return "dolarapi"
}

func (p *DolarAPIProvider) GetQuote(ctx context.Context, symbol string) (*domain.RawQuote, error) {
	path, ok := dolarAPIPaths[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: dolarapi does not quote %s", domain.ErrProviderUnavailable, symbol)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: dolarapi returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrProviderUnavailable, err)
	}

	var payload dolarAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse dolarapi response: %v", domain.ErrProviderUnavailable, err)
	}
	if payload.Buy <= 0 || payload.Sell <= 0 {
		return nil, fmt.Errorf("%w: dolarapi returned empty quote for %s", domain.ErrProviderUnavailable, symbol)
	}

	return &domain.RawQuote{
		Symbol:     symbol,
		Price:      (payload.Buy + payload.Sell) / 2,
		ObservedAt: time.Now(),
	}, nil
}

func (p *DolarAPIProvider) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.GetQuote(ctx, "USD/ARS")
	return err == nil
}
