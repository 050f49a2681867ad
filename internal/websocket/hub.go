package websocket

import (
	"sync"

	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/metrics"
)

// Hub tracks every live connection on this instance, identified or not.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn

	relay  Relay
	logger logger.ILogger
}

func NewHub(relay Relay, log logger.ILogger) *Hub {
	return &Hub{
		conns:  make(map[string]Conn),
		relay:  relay,
		logger: log,
	}
}

func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	h.conns[conn.ID()] = conn
	h.mu.Unlock()

	metrics.ConnectionOpened()
	h.logger.Debug("Hub", "Connection registered", map[string]interface{}{"conn_id": conn.ID()})
}

// Unregister reports whether the connection was still registered.
func (h *Hub) Unregister(conn Conn) bool {
	h.mu.Lock()
	_, ok := h.conns[conn.ID()]
	delete(h.conns, conn.ID())
	h.mu.Unlock()

	if ok {
		metrics.ConnectionClosed()
		h.logger.Debug("Hub", "Connection unregistered", map[string]interface{}{"conn_id": conn.ID()})
	}
	return ok
}

// DeliverAll hands the payload to every local connection and returns how
// many accepted it.
func (h *Hub) DeliverAll(payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, conn := range h.conns {
		if conn.Send(payload) {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll delivers locally and to every other instance.
func (h *Hub) BroadcastAll(payload []byte) int {
	delivered := h.DeliverAll(payload)
	if h.relay != nil {
		h.relay.Publish(RelayEvent{Kind: RelayAll, Payload: payload})
	}
	return delivered
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll stops every connection. Sessions observe the closed transport
// and clean up through their normal disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
	h.logger.Info("Hub", "Closed all connections", map[string]interface{}{"count": len(conns)})
}
