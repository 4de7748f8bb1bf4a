// Package eventchannel implements the client side of the chat backend's
// real-time event channel: a single persistent websocket that multiplexes
// independently-subscribed event streams (server status, tool discovery, tool
// execution results) to registered handlers, with automatic reconnection and
// resubscription replay after a dropped connection.
package eventchannel

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcpstudio/chatlink/pkg/backoff"
	"github.com/mcpstudio/chatlink/pkg/logging"
)

// ErrNotConnected is returned by Send when the channel is not open. The frame
// is dropped, not queued: completions of REST commands are re-requestable, so
// buffering sends across reconnects is deliberately avoided.
var ErrNotConnected = errors.New("event channel not connected")

// State is the connection state of a Channel.
type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// String returns the string representation of a connection state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Options configures a Channel.
type Options struct {
	// URL is the websocket base URL of the chat backend, e.g.
	// "ws://localhost:8000". The channel address is URL + "/ws/" + ClientID.
	URL string

	// ClientID is the opaque connection identifier used to form the channel
	// address. A random UUID is generated when empty.
	ClientID string

	// Backoff is the reconnection schedule applied after abnormal closures.
	Backoff backoff.Policy

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration

	// PingInterval is the keepalive ping frequency. Zero disables pings.
	PingInterval time.Duration

	// Logger receives structured connection and dispatch logs.
	Logger logging.Logger
}

// NewOptions returns options with reasonable defaults: 1s exponential
// backoff capped at 5 attempts, 10s handshake timeout, 30s pings.
func NewOptions(url string) *Options {
	return &Options{
		URL:              url,
		Backoff:          backoff.NewPolicy(),
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Channel owns the websocket lifecycle. It is explicitly constructed and
// meant to be injected into consumers; multiple independent instances can
// coexist, each with its own registry and transport.
//
// All mutable state is guarded by mu. Transport callbacks from a previous
// connection are fenced off by a generation counter: Disconnect and every
// redial bump the generation, and goroutines belonging to an older
// generation exit without touching state.
type Channel struct {
	opts   *Options
	addr   string
	logger logging.Logger

	registry *registry
	router   *router

	mu             sync.Mutex
	state          State
	conn           *websocket.Conn
	gen            uint64
	attempt        int
	reconnectTimer *time.Timer

	writeMu sync.Mutex
}

// NewChannel creates a channel for the given options. It does not connect;
// call Connect to open the transport.
func NewChannel(opts *Options) *Channel {
	if opts == nil {
		opts = NewOptions("")
	}
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger()
	}

	logger := opts.Logger.WithFields(logging.String("client_id", opts.ClientID))
	reg := newRegistry()

	return &Channel{
		opts:     opts,
		addr:     strings.TrimSuffix(opts.URL, "/") + "/ws/" + opts.ClientID,
		logger:   logger,
		registry: reg,
		router:   newRouter(reg, logger),
	}
}

// ClientID returns the connection identifier the channel address is derived
// from.
func (c *Channel) ClientID() string {
	return c.opts.ClientID
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the channel is open.
func (c *Channel) IsConnected() bool {
	return c.State() == StateOpen
}

// Connect opens the transport. It is idempotent: calling it while the
// channel is already connecting or open is a no-op. The call returns
// immediately; the dial outcome arrives asynchronously, and failures while
// connecting follow the same backoff schedule as a dropped connection.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.attempt = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.logger.Debug("opening event channel", logging.String("url", c.addr))
	go c.dial(gen)
}

// Disconnect closes the transport with a normal closure code, cancels any
// pending reconnect, and clears every subscription. Consumers must
// resubscribe after a voluntary disconnect; it is not treated as a transient
// failure. Calling Disconnect twice is safe.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.gen++
	conn := c.conn
	c.conn = nil
	c.attempt = 0
	wasClosed := c.state == StateClosed
	c.state = StateClosed
	c.mu.Unlock()

	c.registry.clear()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"))
		c.writeMu.Unlock()
		_ = conn.Close()
	}

	if !wasClosed {
		c.logger.Info("event channel disconnected")
	}
}

// Subscribe registers handler for eventType. Any string is accepted,
// including types unknown to the peer; EventWildcard receives every inbound
// envelope. Handlers run in registration order and are never implicitly
// de-duplicated. When the channel is open, interest is announced to the peer
// immediately; otherwise it is announced on the next successful connect.
func (c *Channel) Subscribe(eventType string, handler Handler) {
	if handler == nil {
		return
	}
	c.registry.add(eventType, handler)
	if eventType == EventWildcard {
		return
	}
	if c.IsConnected() {
		_ = c.Send(subscribeFrame(eventType))
	}
}

// Unsubscribe removes the first registered instance of handler for
// eventType. A nil handler removes every handler for the type. An
// unsubscribe control frame is issued regardless of connection state and is
// dropped, per Send semantics, when the channel is not open.
func (c *Channel) Unsubscribe(eventType string, handler Handler) {
	c.registry.remove(eventType, handler)
	if eventType == EventWildcard {
		return
	}
	_ = c.Send(unsubscribeFrame(eventType))
}

// ActiveTypes returns the event types with at least one registered handler,
// in first-subscription order.
func (c *Channel) ActiveTypes() []string {
	return c.registry.activeTypes()
}

// Send serializes env and writes it to the transport. When the channel is
// not open the frame is dropped, a warning is logged, and ErrNotConnected is
// returned; there is no outbound queue. Sends for a given connection are
// written in call order.
func (c *Channel) Send(env Envelope) error {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		state := c.state
		c.mu.Unlock()
		c.logger.Warn("dropping outbound frame: channel not open",
			logging.String("frame_type", env.Type),
			logging.String("state", state.String()),
		)
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.Unlock()

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// RequestStatus asks the peer for an immediate status snapshot, delivered as
// a status_update event.
func (c *Channel) RequestStatus() error {
	env, _ := newControlFrame(FrameGetStatus, nil)
	return c.Send(env)
}

// RequestTools asks the peer for an immediate tool-list snapshot, delivered
// as a tools_update event.
func (c *Channel) RequestTools() error {
	env, _ := newControlFrame(FrameGetTools, nil)
	return c.Send(env)
}

// dial opens one transport attempt for the given generation.
func (c *Channel) dial(gen uint64) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}
	conn, _, err := dialer.Dial(c.addr, nil)

	c.mu.Lock()
	if gen != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		// Lost a race with Disconnect; the handle must not outlive it.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("connection attempt failed", logging.Error(err))
		c.handleTransportFailure(gen)
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempt = 0
	c.mu.Unlock()

	c.logger.Info("event channel connected", logging.String("url", c.addr))

	go c.readPump(gen, conn)
	if c.opts.PingInterval > 0 {
		go c.pingLoop(gen, conn)
	}

	c.replaySubscriptions()
}

// replaySubscriptions announces every active event type to the peer, one
// subscribe frame per type, in the order the types were first subscribed.
func (c *Channel) replaySubscriptions() {
	for _, eventType := range c.registry.activeTypes() {
		if err := c.Send(subscribeFrame(eventType)); err != nil {
			c.logger.Warn("failed to replay subscription",
				logging.String("event_type", eventType),
				logging.Error(err),
			)
		}
	}
}

// readPump reads frames until the transport fails or is superseded.
func (c *Channel) readPump(gen uint64, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if c.stale(gen) {
			// Disconnect already tore the session down; late events from
			// this transport must not dispatch or trigger reconnects.
			return
		}
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.mu.Lock()
				if gen == c.gen {
					c.conn = nil
					c.state = StateClosed
					c.attempt = 0
				}
				c.mu.Unlock()
				_ = conn.Close()
				c.logger.Info("event channel closed by peer")
				return
			}
			_ = conn.Close()
			c.handleTransportFailure(gen)
			return
		}
		c.router.dispatch(raw)
	}
}

// pingLoop keeps the connection alive. It stops as soon as its transport
// generation is superseded or a write fails.
func (c *Channel) pingLoop(gen uint64, conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if c.stale(gen) {
			return
		}
		c.writeMu.Lock()
		err := conn.WriteMessage(websocket.PingMessage, nil)
		c.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (c *Channel) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.gen
}

// handleTransportFailure is the abnormal-closure branch: it either schedules
// the next reconnection attempt or, once the attempt budget is exhausted,
// closes the channel and surfaces a terminal error event to subscribers.
func (c *Channel) handleTransportFailure(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateConnecting
	c.attempt++
	attempt := c.attempt

	if c.opts.Backoff.Exhausted(attempt) {
		c.state = StateClosed
		c.attempt = 0
		c.mu.Unlock()
		c.logger.Error("reconnect attempts exhausted",
			logging.Int("attempts", attempt-1))
		c.router.dispatchEnvelope(terminalFailureEvent(attempt - 1))
		return
	}

	delay := c.opts.Backoff.NextDelay(attempt)
	c.logger.Warn("connection lost, scheduling reconnect",
		logging.Int("attempt", attempt),
		logging.Duration("delay", delay),
	)
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.redial(gen)
	})
	c.mu.Unlock()
}

// redial runs when a reconnect timer fires. The new transport gets its own
// generation so a stale timer (cancelled by Disconnect) cannot resurrect a
// closed session.
func (c *Channel) redial(prev uint64) {
	c.mu.Lock()
	if prev != c.gen || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.dial(gen)
}

func terminalFailureEvent(attempts int) Envelope {
	data, _ := json.Marshal(map[string]interface{}{
		"message":  "reconnect attempts exhausted",
		"attempts": attempts,
	})
	return Envelope{Type: EventError, Data: data}
}
