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

// BluelyticsProvider is the secondary quote source, consulted only when the
// primary fails. It quotes USD and EUR against ARS in a single payload.
type BluelyticsProvider struct {
	baseURL string
	client  *http.Client
}

type bluelyticsRate struct {
	ValueAvg  float64 `json:"value_avg"`
	ValueSell float64 `json:"value_sell"`
	ValueBuy  float64 `json:"value_buy"`
}

type bluelyticsResponse struct {
	Oficial     bluelyticsRate `json:"oficial"`
	Blue        bluelyticsRate `json:"blue"`
	OficialEuro bluelyticsRate `json:"oficial_euro"`
	BlueEuro    bluelyticsRate `json:"blue_euro"`
	LastUpdate  string         `json:"last_update"`
}

func NewBluelyticsProvider(baseURL string, timeout time.Duration) *BluelyticsProvider {
	return &BluelyticsProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *BluelyticsProvider) GetName() string {
	return "bluelytics"
}

func (p *BluelyticsProvider) GetQuote(ctx context.Context, symbol string) (*domain.RawQuote, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/v2/latest", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bluelytics returned status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", domain.ErrProviderUnavailable, err)
	}

	var payload bluelyticsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse bluelytics response: %v", domain.ErrProviderUnavailable, err)
	}

	var rate bluelyticsRate
	switch symbol {
	case "USD/ARS":
		rate = payload.Blue
	case "EUR/ARS":
		rate = payload.BlueEuro
	default:
		return nil, fmt.Errorf("%w: bluelytics does not quote %s", domain.ErrProviderUnavailable, symbol)
	}
	if rate.ValueAvg <= 0 {
		return nil, fmt.Errorf("%w: bluelytics returned empty quote for %s", domain.ErrProviderUnavailable, symbol)
	}

	return &domain.RawQuote{
		Symbol:     symbol,
		Price:      rate.ValueAvg,
		ObservedAt: time.Now(),
	}, nil
}

func (p *BluelyticsProvider) IsHealthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := p.GetQuote(ctx, "USD/ARS")
	return err == nil
}
