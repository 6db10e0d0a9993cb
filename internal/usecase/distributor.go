package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/cambix/pricing-service/internal/domain"
	"github.com/cambix/pricing-service/internal/infrastructure/metrics"
	"github.com/jaevor/go-nanoid"
	"github.com/sirupsen/logrus"
)

// Subscription is one observer of a pair topic or of the global feed. It
// owns no data; it is dropped on send failure or explicit unsubscribe.
type Subscription struct {
	id    string
	topic string
	ch    chan domain.Envelope

	mu     sync.Mutex
	closed bool
}

func (s *Subscription) ID() string                     { return s.id }
func (s *Subscription) Topic() string                  { return s.topic }
func (s *Subscription) Events() <-chan domain.Envelope { return s.ch }

// trySend never blocks: a subscriber that cannot keep up is a dead
// subscriber.
func (s *Subscription) trySend(env domain.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- env:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Distributor fans rate updates out to subscribers. Each pair gets its own
// refresh ticker, started on the first subscriber and stopped on the last
// unsubscribe, so unwatched pairs are never polled. A separate global ticker
// serves "*" subscribers with all pairs at once.
type Distributor struct {
	engine *RateEngine
	cfg    config.DistributorConfig

	mu      sync.Mutex
	topics  map[string]map[string]*Subscription
	cancels map[string]context.CancelFunc
	tracked map[string]bool

	rootCtx    context.Context
	rootCancel context.CancelFunc

	newID func() string

	log     *logrus.Logger
	metrics *metrics.PricingMetrics
}

func NewDistributor(engine *RateEngine, cfg config.DistributorConfig, log *logrus.Logger, m *metrics.PricingMetrics) (*Distributor, error) {
	idGenerator, err := nanoid.Standard(15)
	if err != nil {
		return nil, err
	}

	tracked := make(map[string]bool)
	for _, pair := range engine.TrackedPairs() {
		tracked[pair] = true
	}

	return &Distributor{
		engine:  engine,
		cfg:     cfg,
		topics:  make(map[string]map[string]*Subscription),
		cancels: make(map[string]context.CancelFunc),
		tracked: tracked,
		newID:   idGenerator,
		log:     log,
		metrics: m,
	}, nil
}

// Start launches the heartbeat loop. Per-topic refresh tickers are started
// lazily by Subscribe.
func (d *Distributor) Start(ctx context.Context) {
	d.rootCtx, d.rootCancel = context.WithCancel(ctx)
	go d.runHeartbeat(d.rootCtx)
}

func (d *Distributor) Stop() {
	if d.rootCancel != nil {
		d.rootCancel()
	}

	d.mu.Lock()
	var subs []*Subscription
	for _, set := range d.topics {
		for _, sub := range set {
			subs = append(subs, sub)
		}
	}
	d.topics = make(map[string]map[string]*Subscription)
	for topic, cancel := range d.cancels {
		cancel()
		delete(d.cancels, topic)
	}
	d.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// Subscribe registers an observer for one pair or for the global feed ("*").
// The last known quote is replayed immediately after the connected envelope.
func (d *Distributor) Subscribe(topic string) (*Subscription, error) {
	if topic != domain.TopicAll && !d.tracked[topic] {
		return nil, fmt.Errorf("%w: %s", domain.ErrPairNotConfigured, topic)
	}

	sub := &Subscription{
		id:    d.newID(),
		topic: topic,
		ch:    make(chan domain.Envelope, d.cfg.SubscriberBuffer),
	}

	d.mu.Lock()
	set, ok := d.topics[topic]
	if !ok {
		set = make(map[string]*Subscription)
		d.topics[topic] = set
	}
	set[sub.id] = sub
	if len(set) == 1 {
		d.startTickerLocked(topic)
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.FeedSubscribers.WithLabelValues(topic).Inc()
	}

	sub.trySend(newEnvelope(domain.EnvelopeConnected, map[string]string{"subscription_id": sub.id, "topic": topic}))
	if initial := d.initialPayload(topic); initial != nil {
		sub.trySend(newEnvelope(domain.EnvelopeInitial, initial))
	}

	return sub, nil
}

func (d *Distributor) Unsubscribe(sub *Subscription) {
	d.removeSub(sub)
	sub.close()
}

func (d *Distributor) initialPayload(topic string) any {
	if topic == domain.TopicAll {
		rates := d.engine.GetAllRates()
		if len(rates) == 0 {
			return nil
		}
		return rates
	}
	quote := d.engine.GetRate(topic)
	if quote == nil {
		return nil
	}
	return quote
}

// startTickerLocked starts the refresh loop for a topic on its 0 -> 1
// subscriber transition. Caller holds d.mu.
func (d *Distributor) startTickerLocked(topic string) {
	parent := d.rootCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancels[topic] = cancel

	if topic == domain.TopicAll {
		go d.runGlobalTicker(ctx)
		return
	}
	go d.runPairTicker(ctx, topic)
}

func (d *Distributor) removeSub(sub *Subscription) {
	d.mu.Lock()
	set, ok := d.topics[sub.topic]
	if !ok {
		d.mu.Unlock()
		return
	}
	if _, ok := set[sub.id]; !ok {
		d.mu.Unlock()
		return
	}
	delete(set, sub.id)
	if len(set) == 0 {
		delete(d.topics, sub.topic)
		if cancel, ok := d.cancels[sub.topic]; ok {
			cancel()
			delete(d.cancels, sub.topic)
		}
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.FeedSubscribers.WithLabelValues(sub.topic).Dec()
	}
}

func (d *Distributor) runPairTicker(ctx context.Context, pair string) {
	ticker := time.NewTicker(d.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quote, err := d.engine.RefreshPair(ctx, pair)
			if err != nil {
				// Informational only: the stream stays open.
				d.broadcast(pair, newEnvelope(domain.EnvelopeError, map[string]string{
					"pair":  pair,
					"error": "rate refresh failed",
				}))
				continue
			}
			d.broadcast(pair, newEnvelope(domain.EnvelopeUpdate, quote))
		}
	}
}

func (d *Distributor) runGlobalTicker(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.GlobalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.engine.UpdateAll(ctx)
			d.broadcast(domain.TopicAll, newEnvelope(domain.EnvelopeUpdate, d.engine.GetAllRates()))
		}
	}
}

// runHeartbeat keeps client connections observably alive so consumers can
// detect a silently dead stream.
func (d *Distributor) runHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			env := newEnvelope(domain.EnvelopeHeartbeat, nil)
			for _, sub := range d.allSubscribers() {
				if !sub.trySend(env) {
					d.drop(sub)
				}
			}
		}
	}
}

func (d *Distributor) broadcast(topic string, env domain.Envelope) {
	d.mu.Lock()
	subs := make([]*Subscription, 0, len(d.topics[topic]))
	for _, sub := range d.topics[topic] {
		subs = append(subs, sub)
	}
	d.mu.Unlock()

	for _, sub := range subs {
		if !sub.trySend(env) {
			d.drop(sub)
		}
	}
}

func (d *Distributor) allSubscribers() []*Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	var subs []*Subscription
	for _, set := range d.topics {
		for _, sub := range set {
			subs = append(subs, sub)
		}
	}
	return subs
}

// drop removes a subscriber that failed a push. Other subscribers never see
// the failure.
func (d *Distributor) drop(sub *Subscription) {
	d.removeSub(sub)
	sub.close()
	if d.metrics != nil {
		d.metrics.FeedMessagesDroppedTotal.WithLabelValues(sub.topic).Inc()
	}
	d.log.WithFields(logrus.Fields{
		"subscription_id": sub.id,
		"topic":           sub.topic,
	}).Info("dropped dead feed subscriber")
}

func newEnvelope(envType domain.EnvelopeType, payload any) domain.Envelope {
	return domain.Envelope{
		Type:      envType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
