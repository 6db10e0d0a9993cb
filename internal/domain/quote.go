package domain

import "time"

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// QuoteOrigin tags how trustworthy/fresh a quote is.
type QuoteOrigin string

const (
	OriginLive      QuoteOrigin = "live"
	OriginCached    QuoteOrigin = "cached"
	OriginSynthetic QuoteOrigin = "synthetic"
	OriginEmergency QuoteOrigin = "emergency"
)

// RawQuote is a single raw market price as fetched from a provider.
// It is transient: folded into a RateQuote and discarded.
type RawQuote struct {
	Symbol     string
	Price      float64
	ObservedAt time.Time
}

// RateQuote is the business quote for one currency pair. It is replaced
// wholesale on every update, never mutated field by field.
type RateQuote struct {
	Pair           string
	BaseCurrency   string
	TargetCurrency string
	SellRate       float64
	BuyRate        float64
	Spread         float64
	CommissionRate float64
	LastUpdated    time.Time
	Origin         QuoteOrigin
}

// TransactionQuote is the result of pricing one proposed transaction.
type TransactionQuote struct {
	Pair         string
	Direction    Direction
	BaseAmount   float64
	TargetAmount float64
	RateUsed     float64
	Commission   float64
	TotalCost    float64
}
