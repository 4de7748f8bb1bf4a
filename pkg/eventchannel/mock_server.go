package eventchannel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// MockServer is an in-process peer speaking the event channel wire protocol,
// used by tests. It records every control frame it receives, confirms
// subscribe/unsubscribe the way the chat backend does, answers snapshot
// requests, and can push events or drop connections on demand.
type MockServer struct {
	server *httptest.Server
	url    string

	mu           sync.Mutex
	conns        map[*websocket.Conn]bool
	frames       []Envelope
	connectCount int
	reject       bool
	onConnect    func(*websocket.Conn)
}

// NewMockServer starts a mock peer. Callers own its lifetime; pair it with
// t.Cleanup or a deferred Close.
func NewMockServer() *MockServer {
	m := &MockServer{
		conns: make(map[*websocket.Conn]bool),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handleConnection))
	m.url = "ws" + strings.TrimPrefix(m.server.URL, "http")
	return m
}

// URL returns the websocket base URL; the channel appends /ws/<client-id>.
func (m *MockServer) URL() string {
	return m.url
}

// Close shuts the server down and drops every connection.
func (m *MockServer) Close() {
	m.server.Close()
}

// SetRejectConnection makes the server refuse upgrades while set.
func (m *MockServer) SetRejectConnection(reject bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reject = reject
}

// OnConnect sets a callback invoked for each accepted connection.
func (m *MockServer) OnConnect(callback func(*websocket.Conn)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnect = callback
}

// ConnectCount returns how many connections have been accepted in total.
func (m *MockServer) ConnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCount
}

// ConnectionCount returns the number of currently open connections.
func (m *MockServer) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Frames returns a copy of every envelope received from clients so far.
func (m *MockServer) Frames() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	frames := make([]Envelope, len(m.frames))
	copy(frames, m.frames)
	return frames
}

// FramesOfType filters received envelopes by frame type.
func (m *MockServer) FramesOfType(frameType string) []Envelope {
	var filtered []Envelope
	for _, env := range m.Frames() {
		if env.Type == frameType {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// SubscribedTypes returns the event_type of each subscribe frame received,
// in arrival order.
func (m *MockServer) SubscribedTypes() []string {
	var types []string
	for _, env := range m.FramesOfType(FrameSubscribe) {
		var payload subscribePayload
		if err := json.Unmarshal(env.Data, &payload); err == nil {
			types = append(types, payload.EventType)
		}
	}
	return types
}

// ClearFrames discards the recorded frames.
func (m *MockServer) ClearFrames() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// PushEvent broadcasts an event envelope to every connected client.
func (m *MockServer) PushEvent(eventType string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return m.broadcast(Envelope{Type: eventType, Data: raw})
}

// PushRaw broadcasts a raw text frame without shaping it as an envelope,
// for exercising the malformed-frame path.
func (m *MockServer) PushRaw(raw []byte) {
	for _, conn := range m.snapshotConns() {
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}
}

// DropConnections severs every open connection without a close handshake,
// which clients observe as an abnormal closure.
func (m *MockServer) DropConnections() {
	for _, conn := range m.snapshotConns() {
		_ = conn.Close()
	}
}

// CloseConnectionsNormal performs a clean close handshake on every open
// connection, which clients observe as a normal closure.
func (m *MockServer) CloseConnectionsNormal() {
	for _, conn := range m.snapshotConns() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server closing"))
	}
}

func (m *MockServer) broadcast(env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	for _, conn := range m.snapshotConns() {
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}
	return nil
}

func (m *MockServer) snapshotConns() []*websocket.Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for conn := range m.conns {
		conns = append(conns, conn)
	}
	return conns
}

func (m *MockServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	reject := m.reject
	m.mu.Unlock()
	if reject {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m.mu.Lock()
	m.conns[conn] = true
	m.connectCount++
	onConnect := m.onConnect
	m.mu.Unlock()

	if onConnect != nil {
		onConnect(conn)
	}

	defer func() {
		m.mu.Lock()
		delete(m.conns, conn)
		m.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		m.mu.Lock()
		m.frames = append(m.frames, env)
		m.mu.Unlock()

		m.reply(conn, env)
	}
}

// reply mirrors the chat backend's handling of control frames.
func (m *MockServer) reply(conn *websocket.Conn, env Envelope) {
	write := func(reply Envelope) {
		raw, err := json.Marshal(reply)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, raw)
	}

	switch env.Type {
	case FrameSubscribe:
		write(Envelope{Type: EventSubscriptionConfirmed, Data: env.Data})
	case FrameUnsubscribe:
		write(Envelope{Type: EventUnsubscriptionConfirmed, Data: env.Data})
	case FrameGetStatus:
		write(Envelope{Type: EventStatusUpdate, Data: json.RawMessage(`{"servers":[]}`)})
	case FrameGetTools:
		write(Envelope{Type: EventToolsUpdate, Data: json.RawMessage(`{"servers":{}}`)})
	default:
		data, _ := json.Marshal(map[string]string{
			"message": "Unknown message type: " + env.Type,
		})
		write(Envelope{Type: EventError, Data: data})
	}
}
