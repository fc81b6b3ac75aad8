package alertstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State is the connection lifecycle state of the stream client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Client-to-server and server-to-client event names on the dashboard
// stream.
const (
	EventJoinDashboard    = "join_dashboard"
	EventLeaveDashboard   = "leave_dashboard"
	EventRequestAlerts    = "request_alerts"
	EventRequestStats     = "request_stats"
	EventSimulateAlert    = "simulate_alert"
	EventPing             = "ping"
	EventPong             = "pong"
	EventConnectionStatus = "connection_status"
	EventJoinedDashboard  = "joined_dashboard"
	EventLeftDashboard    = "left_dashboard"
	EventAlertsData       = "alerts_data"
	EventStatsData        = "stats_data"
	EventNewAlert         = "new_alert"
	EventStatsUpdate      = "stats_update"
	EventNotification     = "notification"
	EventError            = "error"
)

// envelope is the wire frame: every message carries an event name and a
// JSON payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the payload of a server event.
type Handler func(data json.RawMessage)

// Config tunes the stream client. Zero values fall back to the
// production defaults.
type Config struct {
	URL                  string
	PingInterval         time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

const (
	defaultPingInterval         = 30 * time.Second
	defaultReconnectDelay       = 5 * time.Second
	defaultMaxReconnectAttempts = 5
)

// Client maintains the realtime dashboard stream: a websocket connection
// with a heartbeat, automatic rejoin on connect, and bounded reconnection
// with a fixed delay. After the attempt budget is exhausted the client
// goes terminal and stays disconnected until a fresh Connect.
//
// Handlers run on the read goroutine in registration order; they must not
// block.
type Client struct {
	logger *zap.Logger

	url            string
	dialer         *websocket.Dialer
	pingInterval   time.Duration
	reconnectDelay time.Duration
	maxAttempts    int

	mu             sync.Mutex
	writeMu        sync.Mutex
	conn           *websocket.Conn
	connDone       chan struct{}
	state          State
	attempts       int
	gen            uint64
	closed         bool
	ctx            context.Context
	reconnectTimer *time.Timer

	handlersMu       sync.RWMutex
	handlers         map[string][]Handler
	stateHandlers    []func(state State, attempt int)
	terminalHandlers []func()

	msgCount        uint64
	lastMsgUnixNano int64
}

// NewClient creates a stream client. It does not dial until Connect.
func NewClient(logger *zap.Logger, cfg Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}

	return &Client{
		logger:         logger,
		url:            cfg.URL,
		dialer:         websocket.DefaultDialer,
		pingInterval:   cfg.PingInterval,
		reconnectDelay: cfg.ReconnectDelay,
		maxAttempts:    cfg.MaxReconnectAttempts,
		handlers:       make(map[string][]Handler),
	}
}

// On registers a handler for a server event. Multiple handlers for the
// same event run in registration order. Registration after Connect is
// allowed.
func (c *Client) On(event string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// OnStateChange registers a callback for connection state transitions.
// For StateReconnecting the attempt number (1-based) is passed; for
// other states it is zero.
func (c *Client) OnStateChange(fn func(state State, attempt int)) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.stateHandlers = append(c.stateHandlers, fn)
}

// OnTerminal registers a callback invoked once when the reconnect budget
// is exhausted and the client gives up.
func (c *Client) OnTerminal(fn func()) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.terminalHandlers = append(c.terminalHandlers, fn)
}

// State returns the current connection state and, while reconnecting,
// the attempt number.
func (c *Client) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReconnecting {
		return c.state, c.attempts
	}
	return c.state, 0
}

// Connect dials the stream and joins the dashboard room. Calling it
// while already connected or connecting is a no-op. A failed dial
// consumes a reconnect attempt and schedules a retry; the error is
// still returned so the caller can react immediately.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.attempts = 0
	c.ctx = ctx
	c.state = StateConnecting
	c.mu.Unlock()
	c.notifyState(StateConnecting, 0)

	if err := c.dial(ctx); err != nil {
		c.scheduleReconnect()
		return err
	}
	return nil
}

// Emit sends a client event with an arbitrary JSON payload.
func (c *Client) Emit(event string, data any) error {
	env := envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Data = raw
	}
	return c.writeJSON(env)
}

// RequestAlerts asks the server for the current alert list.
func (c *Client) RequestAlerts() error {
	return c.Emit(EventRequestAlerts, nil)
}

// RequestStats asks the server for the current dashboard statistics.
func (c *Client) RequestStats() error {
	return c.Emit(EventRequestStats, nil)
}

// SimulateAlert asks the server to fabricate a test alert.
func (c *Client) SimulateAlert() error {
	return c.Emit(EventSimulateAlert, nil)
}

// LeaveDashboard leaves the dashboard room without closing the socket.
func (c *Client) LeaveDashboard() error {
	return c.Emit(EventLeaveDashboard, nil)
}

// Stats reports lifetime frame counts for the connection.
type Stats struct {
	MessageCount  uint64
	LastMessageAt time.Time
}

// Stats returns receive counters for monitoring.
func (c *Client) Stats() Stats {
	n := atomic.LoadUint64(&c.msgCount)
	ns := atomic.LoadInt64(&c.lastMsgUnixNano)

	var t time.Time
	if ns > 0 {
		t = time.Unix(0, ns)
	}
	return Stats{MessageCount: n, LastMessageAt: t}
}

// Close tears the connection down and cancels any pending reconnect.
// Frames still in flight from the old connection are discarded. Safe to
// call repeatedly; a later Connect starts over with a fresh attempt
// budget.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.gen++ // invalidate read and ping loops of the old connection
	if c.connDone != nil {
		close(c.connDone)
		c.connDone = nil
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.state = StateDisconnected

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial alert stream: %w", err)
	}

	c.logger.Info("alert stream dialed", zap.String("url", c.url))

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Warn(
			"alert stream close frame received",
			zap.Int("code", code),
			zap.String("reason", text),
		)
		return nil
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("client closed during dial")
	}
	c.conn = conn
	c.connDone = make(chan struct{})
	done := c.connDone
	c.state = StateConnected
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()
	c.notifyState(StateConnected, 0)

	if err := c.Emit(EventJoinDashboard, nil); err != nil {
		c.logger.Warn("join dashboard failed", zap.Error(err))
	}

	go c.readLoop(gen)
	go c.pingLoop(gen, done)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	return nil
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.maxAttempts {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.logger.Error(
			"alert stream reconnect budget exhausted",
			zap.Int("attempts", c.maxAttempts),
		)
		c.notifyState(StateDisconnected, 0)
		c.notifyTerminal()
		return
	}
	c.attempts++
	attempt := c.attempts
	c.state = StateReconnecting
	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, c.redial)
	c.mu.Unlock()

	c.logger.Warn(
		"alert stream reconnecting",
		zap.Int("attempt", attempt),
		zap.Int("maxAttempts", c.maxAttempts),
		zap.Duration("delay", c.reconnectDelay),
	)
	c.notifyState(StateReconnecting, attempt)
}

func (c *Client) redial() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.state = StateConnecting
	ctx := c.ctx
	c.mu.Unlock()
	c.notifyState(StateConnecting, 0)

	if err := c.dial(ctx); err != nil {
		c.logger.Warn("alert stream redial failed", zap.Error(err))
		c.scheduleReconnect()
	}
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (c *Client) pingLoop(gen uint64, done <-chan struct{}) {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.mu.Lock()
			stale := c.gen != gen
			c.mu.Unlock()
			if stale {
				return
			}
			if err := c.Emit(EventPing, nil); err != nil {
				c.logger.Debug("heartbeat send failed", zap.Error(err))
			}
		case <-done:
			return
		}
	}
}

func (c *Client) readLoop(gen uint64) {
	c.logger.Info("alert stream read loop started")

	for {
		c.mu.Lock()
		stale := c.gen != gen
		conn := c.conn
		c.mu.Unlock()
		if stale || conn == nil {
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.gen != gen || c.closed
			if !stale {
				c.gen++
				if c.connDone != nil {
					close(c.connDone)
					c.connDone = nil
				}
				if c.conn != nil {
					_ = c.conn.Close()
					c.conn = nil
				}
			}
			c.mu.Unlock()
			if stale {
				return
			}
			c.logger.Warn("alert stream read error", zap.Error(err))
			c.scheduleReconnect()
			return
		}

		// A frame read just before teardown must not reach handlers.
		c.mu.Lock()
		stale = c.gen != gen
		c.mu.Unlock()
		if stale {
			return
		}

		atomic.AddUint64(&c.msgCount, 1)
		atomic.StoreInt64(&c.lastMsgUnixNano, time.Now().UnixNano())

		c.handleFrame(b)
	}
}

func (c *Client) handleFrame(b []byte) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		c.logger.Warn("alert stream bad frame", zap.Error(err), zap.ByteString("frame", b))
		return
	}
	if env.Event == "" {
		c.logger.Warn("alert stream frame without event name", zap.ByteString("frame", b))
		return
	}

	if env.Event == EventJoinedDashboard {
		// Joining the room is the server's cue that requests will be
		// answered; pull the initial snapshot right away.
		if err := c.RequestAlerts(); err != nil {
			c.logger.Warn("initial alerts request failed", zap.Error(err))
		}
		if err := c.RequestStats(); err != nil {
			c.logger.Warn("initial stats request failed", zap.Error(err))
		}
	}

	c.handlersMu.RLock()
	handlers := c.handlers[env.Event]
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(env.Data)
	}
}

func (c *Client) notifyState(state State, attempt int) {
	c.handlersMu.RLock()
	handlers := append([]func(State, int){}, c.stateHandlers...)
	c.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn(state, attempt)
	}
}

func (c *Client) notifyTerminal() {
	c.handlersMu.RLock()
	handlers := append([]func(){}, c.terminalHandlers...)
	c.handlersMu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}
