package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"opsdash/pkg/envelope"
)

const (
	defaultPingInterval           = 30 * time.Second
	defaultReconnectBase          = 3 * time.Second
	defaultReconnectCapMultiplier = 5
	defaultMaxReconnectAttempts   = 10
	defaultHandshakeTimeout       = 10 * time.Second
	readDeadlineGrace             = 5 * time.Second
	writeTimeout                  = 10 * time.Second
)

// Close codes the server uses to reject a credential at handshake or
// immediately after. Reconnecting with the same credential cannot succeed,
// so these suppress the retry loop.
const (
	CloseInvalidToken = 4001
	CloseForbidden    = 4003
)

// Config tunes the connection lifecycle. Zero values fall back to defaults.
type Config struct {
	// URL is the notification endpoint, e.g. "wss://host/ws/notifications/".
	URL string
	// PingInterval is the outbound keepalive cadence while open.
	PingInterval time.Duration
	// ReconnectBase is the delay unit between reconnection attempts.
	ReconnectBase time.Duration
	// ReconnectCapMultiplier bounds the linear backoff growth.
	ReconnectCapMultiplier int
	// MaxReconnectAttempts is the consecutive-failure budget before the
	// client gives up and waits for a manual reconnect.
	MaxReconnectAttempts int
}

func (cfg Config) withDefaults() Config {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectCapMultiplier <= 0 {
		cfg.ReconnectCapMultiplier = defaultReconnectCapMultiplier
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}

	return cfg
}

// MessageHandler receives each decoded inbound envelope in registration
// order. A panicking handler is recovered and logged; others still run.
type MessageHandler func(envelope.Message)

// StatusHandler receives true/false on every open/closed transition.
type StatusHandler func(connected bool)

type messageSubscriber struct {
	id uint64
	fn MessageHandler
}

type statusSubscriber struct {
	id uint64
	fn StatusHandler
}

// Client owns one persistent notification connection: authentication
// handshake, keepalive pings, bounded linear-backoff reconnection, and
// fan-out of decoded envelopes to subscribers. One Client per authenticated
// session; login/logout tears it down and builds a new one.
type Client struct {
	cfg Config
	log *slog.Logger

	mu               sync.Mutex
	conn             *websocket.Conn
	credential       string
	connected        bool
	dialing          bool
	closed           bool
	terminal         bool
	attempts         int
	generation       uint64
	reconnectTimer   *time.Timer
	pingStop         chan struct{}
	messageSubs      []messageSubscriber
	statusSubs       []statusSubscriber
	nextSubscriberID uint64
	lastMessage      envelope.Message
	lastInboundAt    time.Time
}

// NewClient constructs a disconnected client. Call Connect to start.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		cfg: cfg.withDefaults(),
		log: log.With("component", "transport.client"),
	}
}

// Connect starts the connection lifecycle with the given credential. It is
// idempotent while a connection is open. A failed first dial does not fail
// the call; it enters the same retry schedule as a dropped connection.
func (c *Client) Connect(credential string) error {
	if _, err := url.Parse(c.cfg.URL); err != nil || c.cfg.URL == "" {
		return fmt.Errorf("invalid notification URL %q", c.cfg.URL)
	}

	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}

	c.credential = credential
	c.closed = false
	c.terminal = false
	c.attempts = 0
	c.stopReconnectTimerLocked()
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		c.log.Warn("Initial connect failed, scheduling retry", "error", err)
		c.mu.Lock()
		c.scheduleReconnectLocked()
		c.mu.Unlock()
	}

	return nil
}

// Disconnect deliberately closes the connection and guarantees that no
// reconnection attempt fires afterwards.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.credential = ""
	c.stopReconnectTimerLocked()
	wasConnected := c.connected
	c.teardownConnLocked()
	c.mu.Unlock()

	if wasConnected {
		c.notifyStatus(false)
	}
}

// ForceReconnect tears down any current connection and starts a fresh dial
// with a reset attempt budget. It is the manual-retry escape hatch after the
// client has given up.
func (c *Client) ForceReconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.terminal = false
	c.attempts = 0
	c.stopReconnectTimerLocked()
	wasConnected := c.connected
	c.teardownConnLocked()
	c.mu.Unlock()

	if wasConnected {
		c.notifyStatus(false)
	}

	if err := c.dial(); err != nil {
		c.log.Warn("Forced reconnect failed, scheduling retry", "error", err)
		c.mu.Lock()
		c.scheduleReconnectLocked()
		c.mu.Unlock()
	}
}

// Subscribe registers a message handler and returns its unsubscribe func.
func (c *Client) Subscribe(fn MessageHandler) func() {
	c.mu.Lock()
	id := c.nextSubscriberID
	c.nextSubscriberID++
	c.messageSubs = append(c.messageSubs, messageSubscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.messageSubs = slices.DeleteFunc(c.messageSubs, func(s messageSubscriber) bool {
				return s.id == id
			})
			c.mu.Unlock()
		})
	}
}

// SubscribeStatus registers a connectivity handler and returns its
// unsubscribe func.
func (c *Client) SubscribeStatus(fn StatusHandler) func() {
	c.mu.Lock()
	id := c.nextSubscriberID
	c.nextSubscriberID++
	c.statusSubs = append(c.statusSubs, statusSubscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.statusSubs = slices.DeleteFunc(c.statusSubs, func(s statusSubscriber) bool {
				return s.id == id
			})
			c.mu.Unlock()
		})
	}
}

// IsConnected reports whether the underlying connection is currently open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// GaveUp reports whether the client exhausted its retry budget or was
// rejected by the server; only ForceReconnect restarts it.
func (c *Client) GaveUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

// LastMessage returns the most recent decoded envelope, for observability.
func (c *Client) LastMessage() envelope.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMessage
}

// LastInboundAt returns when the last frame arrived, zero if none has.
func (c *Client) LastInboundAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastInboundAt
}

func (c *Client) dial() error {
	c.mu.Lock()
	// One dial at a time: a redial timer firing into its handshake window
	// must not race a ForceReconnect or a second Connect into a second
	// live connection.
	if c.closed || c.connected || c.dialing {
		c.mu.Unlock()
		return nil
	}
	c.dialing = true
	credential := c.credential
	c.mu.Unlock()

	endpoint, err := url.Parse(c.cfg.URL)
	if err != nil {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
		return fmt.Errorf("parse notification URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("token", credential)
	endpoint.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	conn, _, err := dialer.Dial(endpoint.String(), nil)
	if err != nil {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
		return fmt.Errorf("dial notification endpoint: %w", err)
	}

	c.mu.Lock()
	c.dialing = false
	if c.closed || c.connected {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}

	c.conn = conn
	c.connected = true
	c.attempts = 0
	c.generation++
	c.pingStop = make(chan struct{})
	gen := c.generation
	pingStop := c.pingStop
	c.mu.Unlock()

	c.log.Info("Notification channel connected")
	c.notifyStatus(true)

	go c.readLoop(gen, conn)
	go c.pingLoop(conn, pingStop)

	return nil
}

func (c *Client) readLoop(gen uint64, conn *websocket.Conn) {
	deadline := 2*c.cfg.PingInterval + readDeadlineGrace

	for {
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(gen, err)
			return
		}

		msg, err := envelope.Decode(raw)
		if err != nil {
			c.log.Warn("Dropping malformed frame", "error", err)
			continue
		}

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.lastMessage = msg
		c.lastInboundAt = time.Now().UTC()
		subs := slices.Clone(c.messageSubs)
		c.mu.Unlock()

		if ack, ok := msg.(envelope.ConnectionEstablished); ok {
			c.log.Info("Server acknowledged connection", "message", ack.Message)
		}

		for _, sub := range subs {
			c.invokeHandler(sub.fn, msg)
		}
	}
}

// invokeHandler isolates one subscriber so a panic never starves the rest.
func (c *Client) invokeHandler(fn MessageHandler, msg envelope.Message) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Message handler panicked", "panic", r, "envelope_type", msg.EnvelopeType())
		}
	}()

	fn(msg)
}

func (c *Client) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(envelope.NewPing()); err != nil {
				// The read loop notices the broken connection; just stop.
				c.log.Debug("Keepalive write failed", "error", err)
				return
			}
		}
	}
}

func (c *Client) handleReadError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}

	wasConnected := c.connected
	c.teardownConnLocked()

	if c.closed {
		c.mu.Unlock()
		return
	}

	if rejected, code := credentialRejected(err); rejected {
		c.terminal = true
		c.mu.Unlock()
		c.log.Error("Server rejected credential, not retrying", "close_code", code)
		if wasConnected {
			c.notifyStatus(false)
		}
		return
	}

	c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.log.Warn("Notification channel lost", "error", err)
	if wasConnected {
		c.notifyStatus(false)
	}
}

// scheduleReconnectLocked books the next dial after a linear bounded delay:
// base × min(attempt, capMultiplier). Exhausting the budget parks the client
// until ForceReconnect.
func (c *Client) scheduleReconnectLocked() {
	c.attempts++
	if c.attempts > c.cfg.MaxReconnectAttempts {
		c.terminal = true
		c.log.Error("Reconnect budget exhausted", "attempts", c.cfg.MaxReconnectAttempts)
		return
	}

	delay := c.reconnectDelay(c.attempts)
	c.log.Info("Scheduling reconnect", "attempt", c.attempts, "delay", delay)
	c.reconnectTimer = time.AfterFunc(delay, c.redial)
}

func (c *Client) reconnectDelay(attempt int) time.Duration {
	multiplier := attempt
	if multiplier > c.cfg.ReconnectCapMultiplier {
		multiplier = c.cfg.ReconnectCapMultiplier
	}

	return c.cfg.ReconnectBase * time.Duration(multiplier)
}

func (c *Client) redial() {
	c.mu.Lock()
	if c.closed || c.connected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.dial(); err != nil {
		c.log.Warn("Reconnect attempt failed", "error", err)
		c.mu.Lock()
		if !c.closed {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
	}
}

func (c *Client) teardownConnLocked() {
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.generation++
}

func (c *Client) stopReconnectTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Client) notifyStatus(connected bool) {
	c.mu.Lock()
	subs := slices.Clone(c.statusSubs)
	c.mu.Unlock()

	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("Status handler panicked", "panic", r)
				}
			}()
			sub.fn(connected)
		}()
	}
}

func credentialRejected(err error) (bool, int) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		if closeErr.Code == CloseInvalidToken || closeErr.Code == CloseForbidden {
			return true, closeErr.Code
		}
	}

	return false, 0
}
