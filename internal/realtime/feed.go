package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/richxcame/scooter-ride/pkg/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024

	defaultPingPeriod = 30 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// Message types pushed by the backend.
const (
	MessageZonesUpdated = "zones.updated"
	MessageRideUpdated  = "ride.updated"
)

// ErrNotConnected is returned by Run and Send before Connect succeeds.
var ErrNotConnected = errors.New("realtime: feed not connected")

// Message is one push frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message)

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithPingPeriod sets how often pings are sent; the peer must answer within
// twice that period.
func WithPingPeriod(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.pingPeriod = d
		}
	}
}

// WithBearerToken authenticates the upgrade request.
func WithBearerToken(token string) FeedOption {
	return func(f *Feed) {
		if token != "" {
			f.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) FeedOption {
	return func(f *Feed) { f.dialer = d }
}

// Feed is an owned websocket connection to the push endpoint. Callers create
// it, hand it to whoever consumes messages, and close it; there is no
// package-level connection.
type Feed struct {
	url        string
	header     http.Header
	dialer     *websocket.Dialer
	pingPeriod time.Duration
	log        *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	closed  bool
	writeMu sync.Mutex
}

// NewFeed creates an unconnected feed for url.
func NewFeed(url string, opts ...FeedOption) *Feed {
	f := &Feed{
		url:        url,
		header:     http.Header{},
		dialer:     websocket.DefaultDialer,
		pingPeriod: defaultPingPeriod,
		log:        logger.Named("realtime"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) pongWait() time.Duration {
	return 2 * f.pingPeriod
}

// Connect dials the endpoint, replacing any previous connection.
func (f *Feed) Connect(ctx context.Context) error {
	conn, resp, err := f.dialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("realtime: dial %s: %w (status %d)", f.url, err, resp.StatusCode)
		}
		return fmt.Errorf("realtime: dial %s: %w", f.url, err)
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(f.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.pongWait()))
	})

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return errors.New("realtime: feed closed")
	}
	prev := f.conn
	f.conn = conn
	f.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	f.log.Info("realtime feed connected", zap.String("url", f.url))
	return nil
}

func (f *Feed) current() *websocket.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

// Run reads messages until ctx is done, the peer closes, or the connection
// fails, passing each to handler. It returns nil on a clean shutdown.
func (f *Feed) Run(ctx context.Context, handler Handler) error {
	conn := f.current()
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan struct{})
	defer close(done)
	go f.pingLoop(ctx, conn, done)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || f.isClosed() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				f.log.Warn("dropping malformed realtime frame", zap.Error(err))
				continue
			}
			return fmt.Errorf("realtime: read: %w", err)
		}
		if msg.Type == "" {
			f.log.Debug("dropping realtime frame without type")
			continue
		}
		messagesReceived.WithLabelValues(msg.Type).Inc()
		handler(ctx, msg)
	}
}

// pingLoop keeps the connection alive and unblocks the reader on shutdown.
func (f *Feed) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(f.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := f.write(conn, websocket.PingMessage, nil); err != nil {
				f.log.Debug("realtime ping failed", zap.Error(err))
				return
			}
		}
	}
}

// Send writes msg to the peer.
func (f *Feed) Send(msg Message) error {
	conn := f.current()
	if conn == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return f.write(conn, websocket.TextMessage, data)
}

func (f *Feed) write(conn *websocket.Conn, messageType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}

// Listen connects and runs until ctx is done, reconnecting with exponential
// backoff after every failure.
func (f *Feed) Listen(ctx context.Context, handler Handler) {
	delay := time.Second
	for ctx.Err() == nil && !f.isClosed() {
		err := f.Connect(ctx)
		if err == nil {
			delay = time.Second
			err = f.Run(ctx, handler)
		}
		if ctx.Err() != nil || f.isClosed() {
			return
		}
		reconnectsTotal.Inc()
		f.log.Warn("realtime feed disconnected; reconnecting",
			zap.Error(err), zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (f *Feed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close sends a close frame and tears the connection down. It is safe to
// call more than once.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = f.write(conn, websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
