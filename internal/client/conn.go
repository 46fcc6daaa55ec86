// Package client implements the client half of the check-in protocol: the
// connection manager, the session dispatch loop and the optimistic local
// state it reconciles against authoritative echoes.
package client

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"checkin-app/internal/models"
	"checkin-app/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	// DefaultHeartbeatInterval spaces the out-of-band "ping" frames that
	// keep idle channels from being timed out.
	DefaultHeartbeatInterval = 25 * time.Second
	// DefaultReconnectDelay is the fixed pause before redialing a lost
	// channel. Fixed rather than backed off; a deployment worried about
	// thundering herds can add jitter.
	DefaultReconnectDelay = 3 * time.Second

	writeWait = 10 * time.Second
)

// ErrNotConnected is returned by Send when the channel is not open. Send
// fails fast; it never blocks waiting for a connection.
var ErrNotConnected = errors.New("channel unavailable")

// ConnManager owns the single logical channel to the server. Construct one
// per session and hand it by reference to whatever needs it; Close ends
// its lifecycle. Connect is idempotent and an abnormal close schedules a
// redial forever; there is no terminal failure state short of Close.
type ConnManager struct {
	url    string
	dialer *websocket.Dialer

	// Set before Connect. Defaults applied by NewConnManager.
	HeartbeatInterval time.Duration
	ReconnectDelay    time.Duration

	OnConnect    func()
	OnMessage    func(data []byte)
	OnDisconnect func()

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	connecting   bool
	reconnecting bool
	closed       bool

	// writeMu serializes writes; heartbeats and sends share the socket.
	writeMu sync.Mutex
}

func NewConnManager(url string) *ConnManager {
	return &ConnManager{
		url:               url,
		dialer:            websocket.DefaultDialer,
		HeartbeatInterval: DefaultHeartbeatInterval,
		ReconnectDelay:    DefaultReconnectDelay,
	}
}

// Connect opens the channel. A no-op while a channel is open, opening, or
// awaiting its reconnect slot.
func (m *ConnManager) Connect() {
	m.mu.Lock()
	if m.closed || m.connected || m.connecting || m.reconnecting {
		m.mu.Unlock()
		return
	}
	m.connecting = true
	m.mu.Unlock()

	go m.dial()
}

func (m *ConnManager) dial() {
	conn, _, err := m.dialer.Dial(m.url, nil)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.connecting = false
		m.reconnecting = true
		m.mu.Unlock()
		logger.Error("Connect to %s failed: %v", m.url, err)
		m.scheduleRedial()
		return
	}

	m.conn = conn
	m.connected = true
	m.connecting = false
	m.reconnecting = false
	m.mu.Unlock()

	logger.Info("Channel open to %s", m.url)
	if m.OnConnect != nil {
		m.OnConnect()
	}

	go m.readLoop(conn)
	go m.heartbeat(conn)
}

func (m *ConnManager) scheduleRedial() {
	time.AfterFunc(m.ReconnectDelay, func() {
		m.mu.Lock()
		if m.closed || m.connected || m.connecting {
			m.mu.Unlock()
			return
		}
		m.connecting = true
		m.mu.Unlock()
		m.dial()
	})
}

func (m *ConnManager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if m.OnMessage != nil {
			m.OnMessage(data)
		}
	}
	conn.Close()

	m.mu.Lock()
	if m.conn != conn {
		// A newer channel already superseded this one.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.connected = false
	closed := m.closed
	if !closed {
		m.reconnecting = true
	}
	m.mu.Unlock()

	if m.OnDisconnect != nil {
		m.OnDisconnect()
	}
	if closed {
		return
	}

	logger.Info("Channel lost, reconnecting in %s", m.ReconnectDelay)
	m.scheduleRedial()
}

// heartbeat emits the literal "ping" liveness frame on a fixed interval.
// It runs independently of message processing and exits once its channel
// is gone.
func (m *ConnManager) heartbeat(conn *websocket.Conn) {
	ticker := time.NewTicker(m.HeartbeatInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		current := m.connected && m.conn == conn
		m.mu.Unlock()
		if !current {
			return
		}
		if err := m.Send([]byte(models.HeartbeatFrame)); err != nil {
			return
		}
	}
}

// Send writes one frame, failing fast with ErrNotConnected when the
// channel is not open. Errors are returned, never thrown into caller
// state; optimistic local state survives a failed send.
func (m *ConnManager) Send(data []byte) error {
	m.mu.Lock()
	conn, ok := m.conn, m.connected
	m.mu.Unlock()
	if !ok || conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (m *ConnManager) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.Send(data)
}

func (m *ConnManager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *ConnManager) Reconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnecting
}

// Close tears the channel down for good. No further redials are scheduled.
func (m *ConnManager) Close() {
	m.mu.Lock()
	m.closed = true
	conn := m.conn
	m.conn = nil
	m.connected = false
	m.connecting = false
	m.reconnecting = false
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}
