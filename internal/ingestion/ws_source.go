package ingestion

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"polymarket-watch/internal/normalize"
)

// WSSource streams trades over WebSocket, reconnecting with
// exponential backoff on connection loss.
type WSSource struct {
	endpoint string
	logger   *log.Logger

	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration
	readTimeout       time.Duration
	pingInterval      time.Duration

	onReconnect func() // metrics hook, may be nil
}

// WSOptions configures a WSSource.
type WSOptions struct {
	Endpoint          string
	Logger            *log.Logger
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	ReadTimeout       time.Duration
	PingInterval      time.Duration
	OnReconnect       func()
}

// NewWSSource creates a streaming source.
func NewWSSource(opts WSOptions) *WSSource {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &WSSource{
		endpoint:          opts.Endpoint,
		logger:            logger,
		reconnectDelay:    opts.ReconnectDelay,
		maxReconnectDelay: opts.MaxReconnectDelay,
		readTimeout:       opts.ReadTimeout,
		pingInterval:      opts.PingInterval,
		onReconnect:       opts.OnReconnect,
	}
	if s.reconnectDelay <= 0 {
		s.reconnectDelay = time.Second
	}
	if s.maxReconnectDelay <= 0 {
		s.maxReconnectDelay = 30 * time.Second
	}
	if s.readTimeout <= 0 {
		s.readTimeout = 60 * time.Second
	}
	if s.pingInterval <= 0 {
		s.pingInterval = 30 * time.Second
	}
	return s
}

// Name identifies the source.
func (s *WSSource) Name() string { return "ws" }

// wsTradeMessage is the feed's wire shape: a typed envelope around one
// raw trade.
type wsTradeMessage struct {
	Type  string             `json:"type"`
	Trade normalize.RawTrade `json:"trade"`
}

// Run streams until the context is canceled, reconnecting on any read
// or dial failure.
func (s *WSSource) Run(ctx context.Context, out chan<- normalize.RawTrade) error {
	delay := s.reconnectDelay

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.logger.Printf("WARN ws dial %s failed: %v (retry in %s)", s.endpoint, err, delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = backoff(delay, s.maxReconnectDelay)
			continue
		}

		delay = s.reconnectDelay
		err = s.readLoop(ctx, conn, out)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Printf("WARN ws connection lost: %v (reconnecting)", err)
		if s.onReconnect != nil {
			s.onReconnect()
		}
	}
}

func (s *WSSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	return conn, err
}

// readLoop reads messages until an error. A pinger keeps the
// connection alive; the context closes the socket to unblock reads.
func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- normalize.RawTrade) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg wsTradeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Printf("WARN ws message unparseable: %v", err)
			continue
		}
		if msg.Type != "trade" {
			continue
		}

		select {
		case out <- msg.Trade:
		case <-ctx.Done():
			return nil
		}
	}
}

func backoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
