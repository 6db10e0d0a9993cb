package client

import (
	"context"
	"sync"
	"time"

	"github.com/cambix/pricing-service/internal/config"
	"github.com/cambix/pricing-service/internal/domain"
	"github.com/sirupsen/logrus"
)

type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateError        ConnState = "error"
)

// Stream is one live connection to the rate feed.
type Stream interface {
	Recv() (*domain.Envelope, error)
	Close() error
}

type StreamTransport interface {
	Dial(ctx context.Context) (Stream, error)
}

// Poller is the pull fallback once streaming is given up on.
type Poller interface {
	Poll(ctx context.Context) ([]*domain.RateQuote, error)
}

// FeedClient consumes the rate feed with automatic reconnection: exponential
// backoff between attempts, and a permanent fallback to fixed-interval
// polling once the attempts are exhausted.
type FeedClient struct {
	transport StreamTransport
	poller    Poller
	cfg       config.FeedClientConfig

	mu      sync.Mutex
	state   ConnState
	polling bool

	out     chan domain.Envelope
	visible chan struct{}

	log *logrus.Logger
}

func NewFeedClient(transport StreamTransport, poller Poller, cfg config.FeedClientConfig, log *logrus.Logger) *FeedClient {
	return &FeedClient{
		transport: transport,
		poller:    poller,
		cfg:       cfg,
		state:     StateDisconnected,
		out:       make(chan domain.Envelope, 64),
		visible:   make(chan struct{}, 1),
		log:       log,
	}
}

func (c *FeedClient) Events() <-chan domain.Envelope {
	return c.out
}

func (c *FeedClient) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// NotifyVisible signals that the consumer became visible again (e.g. a tab
// regained focus). While waiting out a backoff in the error state this
// re-triggers an immediate reconnect attempt. It has no effect once the
// client fell back to polling.
func (c *FeedClient) NotifyVisible() {
	c.mu.Lock()
	trigger := c.state == StateError && !c.polling
	c.mu.Unlock()
	if !trigger {
		return
	}
	select {
	case c.visible <- struct{}{}:
	default:
	}
}

// Run drives the connection state machine until ctx is cancelled.
func (c *FeedClient) Run(ctx context.Context) {
	defer close(c.out)
	defer c.setState(StateDisconnected)

	attempts := 0
	for {
		if ctx.Err() != nil {
			return
		}

		c.setState(StateConnecting)
		stream, err := c.transport.Dial(ctx)
		if err == nil {
			attempts = 0
			c.setState(StateConnected)
			err = c.consume(ctx, stream)
			stream.Close()
			if ctx.Err() != nil {
				return
			}
		}
		c.log.WithError(err).Warn("rate feed stream failed")
		c.setState(StateError)

		attempts++
		if attempts > c.cfg.MaxAttempts {
			c.log.Warn("reconnect attempts exhausted, falling back to polling")
			c.mu.Lock()
			c.polling = true
			c.mu.Unlock()
			c.pollLoop(ctx)
			return
		}

		// 1, 2, 4, 8, 16 seconds with the default base.
		wait := c.cfg.BackoffBase << (attempts - 1)
		select {
		case <-ctx.Done():
			return
		case <-c.visible:
		case <-time.After(wait):
		}
	}
}

func (c *FeedClient) consume(ctx context.Context, stream Stream) error {
	for {
		env, err := stream.Recv()
		if err != nil {
			return err
		}
		select {
		case c.out <- *env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pollLoop is the permanent pull fallback: fixed interval, no further
// reconnect attempts.
func (c *FeedClient) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			quotes, err := c.poller.Poll(ctx)
			if err != nil {
				c.emit(domain.Envelope{
					Type:      domain.EnvelopeError,
					Payload:   map[string]string{"error": "poll failed"},
					Timestamp: time.Now(),
				})
				continue
			}
			c.emit(domain.Envelope{
				Type:      domain.EnvelopeUpdate,
				Payload:   quotes,
				Timestamp: time.Now(),
			})
		}
	}
}

func (c *FeedClient) emit(env domain.Envelope) {
	select {
	case c.out <- env:
	default:
	}
}

func (c *FeedClient) setState(state ConnState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
