package domain

import "context"

type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*RawQuote, error)
	GetName() string
	IsHealthy(ctx context.Context) bool
}
