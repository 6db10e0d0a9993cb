package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PricingMetrics holds every metric exported by the pricing engine.
type PricingMetrics struct {
	ProviderRequestsTotal prometheus.CounterVec
	ProviderLatency       prometheus.HistogramVec

	RateUpdatesTotal      prometheus.CounterVec
	RateUpdateErrorsTotal prometheus.CounterVec
	QuoteAgeSeconds       prometheus.GaugeVec

	LocksCreatedTotal     prometheus.CounterVec
	LockRedemptionsTotal  prometheus.CounterVec
	LocksSweptTotal       prometheus.Counter

	LimitChecksTotal prometheus.CounterVec

	FeedSubscribers          prometheus.GaugeVec
	FeedMessagesDroppedTotal prometheus.CounterVec
}

func NewPricingMetrics() *PricingMetrics {
	return &PricingMetrics{
		ProviderRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Quote provider calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		ProviderLatency: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_request_duration_seconds",
				Help:    "Quote provider call latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"provider"},
		),

		RateUpdatesTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_updates_total",
				Help: "Successful rate quote updates by pair and origin",
			},
			[]string{"pair", "origin"},
		),

		RateUpdateErrorsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_update_errors_total",
				Help: "Failed rate quote updates by pair",
			},
			[]string{"pair"},
		),

		QuoteAgeSeconds: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quote_age_seconds",
				Help: "Age of the current quote per pair",
			},
			[]string{"pair"},
		),

		LocksCreatedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_locks_created_total",
				Help: "Price locks issued by pair and direction",
			},
			[]string{"pair", "direction"},
		),

		LockRedemptionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "price_lock_redemptions_total",
				Help: "Price lock redemption attempts by result",
			},
			[]string{"result"},
		),

		LocksSweptTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "price_locks_swept_total",
				Help: "Expired or used locks removed by the periodic sweep",
			},
		),

		LimitChecksTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limit_checks_total",
				Help: "Limit validations by result",
			},
			[]string{"result"},
		),

		FeedSubscribers: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "feed_subscribers",
				Help: "Active feed subscribers by topic",
			},
			[]string{"topic"},
		),

		FeedMessagesDroppedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_messages_dropped_total",
				Help: "Envelopes dropped because a subscriber could not keep up",
			},
			[]string{"topic"},
		),
	}
}
