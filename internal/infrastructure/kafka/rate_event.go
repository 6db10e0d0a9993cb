package publisher

import "time"

// RateEvent mirrors a successful quote update onto the event bus so
// downstream services (notifications, audit) see the same rates clients do.
type RateEvent struct {
	Pair        string    `json:"pair"`
	SellRate    float64   `json:"sell_rate"`
	BuyRate     float64   `json:"buy_rate"`
	Spread      float64   `json:"spread"`
	Origin      string    `json:"origin"`
	LastUpdated time.Time `json:"last_updated"`
}
