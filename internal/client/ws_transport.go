package client

import (
	"context"
	"net/http"

	"github.com/cambix/pricing-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSTransport dials the rate feed over a websocket carrying JSON envelopes.
type WSTransport struct {
	URL    string
	Header http.Header
	dialer *websocket.Dialer
}

func NewWSTransport(url string) *WSTransport {
	return &WSTransport{
		URL:    url,
		dialer: websocket.DefaultDialer,
	}
}

func (t *WSTransport) Dial(ctx context.Context) (Stream, error) {
	conn, _, err := t.dialer.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		return nil, err
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Recv() (*domain.Envelope, error) {
	var env domain.Envelope
	if err := s.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
