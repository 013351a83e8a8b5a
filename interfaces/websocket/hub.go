// Package websocket pushes session status messages and refreshed views to
// connected readers.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Message types the hub itself produces
const (
	MessageConnectionEstablished = "CONNECTION_ESTABLISHED"
	MessagePong                  = "PONG"
)

var (
	errHubStopped = errors.New("websocket hub stopped")
	errHubBusy    = errors.New("websocket hub queue full")
)

// Metrics observes hub activity
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageSent(messageType string)
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened()  {}
func (nopMetrics) ConnectionClosed()  {}
func (nopMetrics) MessageSent(string) {}

// Message is the frame written to clients
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func encode(messageType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", messageType, err)
	}
	return json.Marshal(Message{Type: messageType, Data: raw, Timestamp: time.Now().Unix()})
}

// envelope is an encoded frame on its way to a room. An empty room means
// every room.
type envelope struct {
	room  string
	kind  string
	frame []byte
}

// HubStats counts hub activity
type HubStats struct {
	ActiveConnections int64 `json:"activeConnections"`
	MessagesSent      int64 `json:"messagesSent"`
	MessagesFailed    int64 `json:"messagesFailed"`
}

// Hub groups connections into one room per exploration session. Several tabs
// may watch the same session. It implements ports.SessionNotifier.
type Hub struct {
	logger  *zap.Logger
	metrics Metrics

	join   chan *Client
	leave  chan *Client
	outbox chan envelope

	enqueueTimeout time.Duration
	done           chan struct{}
	stopOnce       sync.Once

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	active  atomic.Int64
	sent    atomic.Int64
	dropped atomic.Int64
}

// NewHub creates a hub. Call Run to start delivering.
func NewHub(logger *zap.Logger, metrics Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Hub{
		logger:         logger,
		metrics:        metrics,
		join:           make(chan *Client, 64),
		leave:          make(chan *Client, 64),
		outbox:         make(chan envelope, 1024),
		enqueueTimeout: 5 * time.Second,
		done:           make(chan struct{}),
		rooms:          make(map[string]map[*Client]struct{}),
	}
}

// Run delivers until ctx is done or Stop is called, then disconnects
// everyone.
func (h *Hub) Run(ctx context.Context) error {
	defer h.disconnectAll()
	defer h.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case c := <-h.join:
			h.add(c)
		case c := <-h.leave:
			h.remove(c)
		case env := <-h.outbox:
			h.deliver(env)
		}
	}
}

// Stop ends Run and makes further sends fail
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// SendToSession queues a message for every client watching sessionID
func (h *Hub) SendToSession(sessionID, messageType string, data interface{}) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return h.enqueue(sessionID, messageType, data)
}

// Broadcast queues a message for every connected client
func (h *Hub) Broadcast(messageType string, data interface{}) error {
	return h.enqueue("", messageType, data)
}

func (h *Hub) enqueue(room, messageType string, data interface{}) error {
	select {
	case <-h.done:
		return errHubStopped
	default:
	}

	frame, err := encode(messageType, data)
	if err != nil {
		return err
	}

	timer := time.NewTimer(h.enqueueTimeout)
	defer timer.Stop()
	select {
	case h.outbox <- envelope{room: room, kind: messageType, frame: frame}:
		return nil
	case <-h.done:
		return errHubStopped
	case <-timer.C:
		return errHubBusy
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	room := h.rooms[c.sessionID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[c.sessionID] = room
	}
	room[c] = struct{}{}
	size := len(room)
	h.mu.Unlock()

	h.active.Add(1)
	h.metrics.ConnectionOpened()
	c.logger.Info("Client joined", zap.Int("roomSize", size))
}

// remove detaches c and closes its queue. It reports false when c was
// already gone.
func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	room, ok := h.rooms[c.sessionID]
	if ok {
		_, ok = room[c]
	}
	if !ok {
		h.mu.Unlock()
		return false
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.sessionID)
	}
	h.mu.Unlock()

	close(c.send)
	h.active.Add(-1)
	h.metrics.ConnectionClosed()
	c.logger.Info("Client left")
	return true
}

func (h *Hub) members(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	for id, clients := range h.rooms {
		if room != "" && id != room {
			continue
		}
		for c := range clients {
			out = append(out, c)
		}
	}
	return out
}

// deliver never blocks: a client whose queue is full is disconnected
func (h *Hub) deliver(env envelope) {
	targets := h.members(env.room)
	if len(targets) == 0 {
		h.logger.Debug("No listeners for message",
			zap.String("sessionID", env.room),
			zap.String("messageType", env.kind),
		)
		return
	}

	for _, c := range targets {
		select {
		case c.send <- env.frame:
			h.sent.Add(1)
			h.metrics.MessageSent(env.kind)
		default:
			h.dropped.Add(1)
			c.logger.Warn("Disconnecting slow client", zap.String("messageType", env.kind))
			if h.remove(c) {
				c.close()
			}
		}
	}
}

func (h *Hub) disconnectAll() {
	for _, c := range h.members("") {
		if h.remove(c) {
			c.close()
		}
	}
	h.logger.Info("WebSocket hub stopped")
}

// Stats returns a snapshot of the hub counters
func (h *Hub) Stats() HubStats {
	return HubStats{
		ActiveConnections: h.active.Load(),
		MessagesSent:      h.sent.Load(),
		MessagesFailed:    h.dropped.Load(),
	}
}

// ConnectionCount returns the number of clients watching sessionID
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}
