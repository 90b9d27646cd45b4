// Package stream pushes simulation snapshots to WebSocket clients.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ems-dispatch-sim/internal/sim"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 8
)

// SnapshotSource provides the state sent to a client when it connects.
type SnapshotSource interface {
	Snapshot() sim.Snapshot
}

// Message is the envelope written to clients.
type Message struct {
	Type     string          `json:"type"`
	Snapshot sim.Snapshot    `json:"snapshot"`
	Result   *sim.TickResult `json:"result,omitempty"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub fans tick snapshots out to every connected client. A client whose
// buffer is full misses that tick.
type Hub struct {
	source   SnapshotSource
	upgrader websocket.Upgrader
	logger   log.FieldLogger

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

func NewHub(source SnapshotSource, logger log.FieldLogger) *Hub {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Hub{
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger.WithField("component", "stream"),
		clients: make(map[uuid.UUID]*client),
	}
}

// ServeHTTP upgrades the request and sends the current snapshot.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	// Registering and queueing the first snapshot under one lock means no
	// tick is missed and the snapshot is always the first message.
	h.mu.Lock()
	h.clients[c.id] = c
	if msg, err := encode("snapshot", h.source.Snapshot(), nil); err == nil {
		c.send <- msg
	} else {
		h.logger.WithError(err).Error("Failed to encode snapshot")
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.WithFields(log.Fields{"client_id": c.id, "clients": count}).Info("Client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// OnTick broadcasts the tick to every client.
func (h *Hub) OnTick(res sim.TickResult, snap sim.Snapshot) {
	msg, err := encode("tick", snap, &res)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode tick")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.WithField("client_id", c.id).Debug("Client too slow, tick dropped")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}

// readPump discards client messages and unregisters the client once the
// connection drops.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		close(c.done)
		c.conn.Close()
		h.logger.WithField("client_id", c.id).Info("Client disconnected")
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func encode(kind string, snap sim.Snapshot, res *sim.TickResult) ([]byte, error) {
	return json.Marshal(Message{Type: kind, Snapshot: snap, Result: res})
}
