package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 256
)

// Client is one connection watching an exploration session. Readers only
// receive; the only thing a client may send is a ping.
type Client struct {
	id        string
	sessionID string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	pong      chan struct{}
	logger    *zap.Logger
	closeOnce sync.Once
}

// NewClient creates a client for sessionID
func NewClient(sessionID string, hub *Hub, conn *websocket.Conn, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		sessionID: sessionID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		pong:      make(chan struct{}, 1),
		logger:    logger.With(zap.String("sessionID", sessionID), zap.String("connectionID", id)),
	}
}

// Start queues the greeting, joins the hub and starts both pumps
func (c *Client) Start() {
	if frame, err := encode(MessageConnectionEstablished, map[string]string{
		"connectionId": c.id,
		"sessionId":    c.sessionID,
	}); err == nil {
		c.send <- frame
	}
	select {
	case c.hub.join <- c:
	case <-c.hub.done:
		c.close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readLoop() {
	defer func() {
		select {
		case c.hub.leave <- c:
		case <-c.hub.done:
		}
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		if kind == websocket.TextMessage {
			c.handle(payload)
		}
	}
}

// handle answers application pings and ignores everything else
func (c *Client) handle(payload []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Type != "ping" {
		c.logger.Debug("Ignoring client message", zap.ByteString("payload", payload))
		return
	}
	// send belongs to the hub, so the writer answers
	select {
	case c.pong <- struct{}{}:
	default:
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}

		case <-c.pong:
			frame, err := encode(MessagePong, nil)
			if err != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ID returns the connection ID
func (c *Client) ID() string {
	return c.id
}
