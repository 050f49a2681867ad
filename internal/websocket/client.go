package websocket

import (
	"sync"
	"time"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/metrics"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type ClientConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func ClientConfigFrom(cfg config.ChatConfig) ClientConfig {
	return ClientConfig{
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod(),
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     cfg.SendBufferSize,
	}
}

// Client is a middleman between the websocket connection and the
// registries. Only the write pump writes to the socket.
type Client struct {
	id   string
	conn *websocket.Conn
	cfg  ClientConfig

	mu     sync.Mutex
	closed bool
	send   chan []byte

	logger logger.ILogger
}

func NewClient(conn *websocket.Conn, cfg ClientConfig, log logger.ILogger) *Client {
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		logger: log,
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues one frame. A client whose buffer is full is too slow to keep
// up and is disconnected.
func (c *Client) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		metrics.RecordSlowConsumer()
		c.logger.Warn("Client", "Send buffer full, closing connection", map[string]interface{}{"conn_id": c.id})
		c.closeLocked()
		// Drop the transport now instead of draining a full buffer to a slow peer.
		_ = c.conn.Close()
		return false
	}
}

// Close stops accepting frames. Frames already queued are still flushed
// before the close frame.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Run pumps the connection until the peer goes away or onMessage returns
// false. onClose runs once the read side is done, before Run waits for the
// write pump to drain.
func (c *Client) Run(onMessage func(raw []byte) bool, onClose func()) {
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		c.writePump()
	}()

	c.readPump(onMessage)
	onClose()
	c.Close()
	<-writeDone
}

func (c *Client) readPump(onMessage func(raw []byte) bool) {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("Client", "Connection lost", map[string]interface{}{
					"conn_id": c.id,
					"error":   err.Error(),
				})
			}
			return
		}
		if !onMessage(raw) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One event per frame; clients parse each frame as a single JSON document.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
