// Package ws tracks live WebSocket connections per client and delivers
// server-initiated events to them. Delivery is best effort: a connection
// that fails a write is pruned, never retried.
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stock-advisor/internal/observability"
)

const writeTimeout = 5 * time.Second

// Event is one server-to-client message envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrNotRegistered is returned when writing to a connection the manager
// does not know about.
var ErrNotRegistered = errors.New("ws: connection not registered")

// Manager holds the set of open connections per client ID. A client may be
// connected from several devices at once; events go to all of them. Each
// connection carries its own write lock so pushes and protocol replies
// never interleave on the wire.
type Manager struct {
	mu     sync.RWMutex
	conns  map[string]map[*websocket.Conn]*sync.Mutex
	logger *zap.Logger
}

// NewManager creates an empty connection registry.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		conns:  make(map[string]map[*websocket.Conn]*sync.Mutex),
		logger: logger,
	}
}

// Connect registers a connection for the client.
func (m *Manager) Connect(clientID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.conns[clientID]
	if !ok {
		set = make(map[*websocket.Conn]*sync.Mutex)
		m.conns[clientID] = set
	}
	set[conn] = &sync.Mutex{}
	observability.SetWSConnectedClients(len(m.conns))
	m.logger.Info("ws connected", zap.String("client_id", clientID), zap.Int("connections", len(set)))
}

// Disconnect removes a connection. Closing the socket is the caller's job.
func (m *Manager) Disconnect(clientID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.conns[clientID]
	if !ok {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(m.conns, clientID)
	}
	observability.SetWSConnectedClients(len(m.conns))
	m.logger.Info("ws disconnected", zap.String("client_id", clientID))
}

// IsOnline reports whether the client has at least one open connection.
func (m *Manager) IsOnline(clientID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns[clientID]) > 0
}

// OnlineCount returns the number of distinct connected clients.
func (m *Manager) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Write sends raw bytes to one registered connection, serialized against
// concurrent event pushes to the same connection.
func (m *Manager) Write(clientID string, conn *websocket.Conn, data []byte) error {
	m.mu.RLock()
	wmu := m.conns[clientID][conn]
	m.mu.RUnlock()
	if wmu == nil {
		return ErrNotRegistered
	}
	return writeLocked(conn, wmu, data)
}

// SendEvent delivers an event to every connection of one client and reports
// whether at least one delivery succeeded. Failed connections are dropped.
func (m *Manager) SendEvent(clientID string, event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("ws marshal event", zap.String("type", event.Type), zap.Error(err))
		return false
	}

	type target struct {
		conn *websocket.Conn
		mu   *sync.Mutex
	}
	m.mu.RLock()
	targets := make([]target, 0, len(m.conns[clientID]))
	for conn, wmu := range m.conns[clientID] {
		targets = append(targets, target{conn: conn, mu: wmu})
	}
	m.mu.RUnlock()

	delivered := false
	var dead []*websocket.Conn
	for _, t := range targets {
		if err := writeLocked(t.conn, t.mu, data); err != nil {
			m.logger.Warn("ws write failed", zap.String("client_id", clientID), zap.Error(err))
			dead = append(dead, t.conn)
			continue
		}
		delivered = true
		observability.RecordWSEventPushed(event.Type)
	}
	for _, conn := range dead {
		m.Disconnect(clientID, conn)
		conn.Close()
	}
	return delivered
}

// Broadcast sends an event to every connected client.
func (m *Manager) Broadcast(event Event) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	for _, id := range ids {
		m.SendEvent(id, event)
	}
}

func writeLocked(conn *websocket.Conn, wmu *sync.Mutex, data []byte) error {
	wmu.Lock()
	defer wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
