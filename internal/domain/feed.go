package domain

import "time"

type EnvelopeType string

const (
	EnvelopeConnected EnvelopeType = "connected"
	EnvelopeInitial   EnvelopeType = "initial"
	EnvelopeUpdate    EnvelopeType = "update"
	EnvelopeHeartbeat EnvelopeType = "heartbeat"
	EnvelopeError     EnvelopeType = "error"
)

// TopicAll is the global feed topic: subscribers receive every pair.
const TopicAll = "*"

// Envelope is one message pushed to a feed subscriber. Error envelopes are
// informational and never terminate the stream.
type Envelope struct {
	Type      EnvelopeType `json:"type"`
	Payload   any          `json:"payload,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
