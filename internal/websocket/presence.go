package websocket

import (
	"slices"
	"sync"

	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/metrics"

	"github.com/samber/lo"
)

// Deliverer fans a payload out to every live connection.
type Deliverer interface {
	DeliverAll(payload []byte) int
}

// PresenceRegistry maps identified users to the connection that currently
// represents them. At most one connection per user; the latest wins.
type PresenceRegistry struct {
	mu     sync.Mutex
	byUser map[string]Conn
	byConn map[string]string

	out    Deliverer
	logger logger.ILogger
}

func NewPresenceRegistry(out Deliverer, log logger.ILogger) *PresenceRegistry {
	return &PresenceRegistry{
		byUser: make(map[string]Conn),
		byConn: make(map[string]string),
		out:    out,
		logger: log,
	}
}

func (p *PresenceRegistry) SetOnline(userId string, conn Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A connection that re-identifies as someone else drops its old entry.
	if prev, ok := p.byConn[conn.ID()]; ok && prev != userId {
		if current, ok := p.byUser[prev]; ok && current.ID() == conn.ID() {
			delete(p.byUser, prev)
		}
	}

	if current, ok := p.byUser[userId]; ok && current.ID() != conn.ID() {
		p.logger.Info("Presence", "Connection superseded", map[string]interface{}{
			"user_id":     userId,
			"old_conn_id": current.ID(),
			"new_conn_id": conn.ID(),
		})
	}

	p.byUser[userId] = conn
	p.byConn[conn.ID()] = userId
	p.broadcastLocked()
}

// SetOffline removes the entry held by this exact connection. A connection
// that was superseded never removes its successor's entry.
func (p *PresenceRegistry) SetOffline(conn Conn) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userId, known := p.byConn[conn.ID()]
	delete(p.byConn, conn.ID())

	removed := false
	if known {
		if current, ok := p.byUser[userId]; ok && current.ID() == conn.ID() {
			delete(p.byUser, userId)
			removed = true
		}
	}

	p.broadcastLocked()
	return userId, removed
}

func (p *PresenceRegistry) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *PresenceRegistry) Lookup(userId string) (Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conn, ok := p.byUser[userId]
	return conn, ok
}

func (p *PresenceRegistry) snapshotLocked() []string {
	ids := lo.Keys(p.byUser)
	slices.Sort(ids)
	return ids
}

// broadcastLocked runs under p.mu so connections see snapshots in the same
// order the registry changed.
func (p *PresenceRegistry) broadcastLocked() {
	ids := p.snapshotLocked()
	metrics.SetOnlineUsers(len(ids))

	payload, err := dto.Encode(dto.EventOnlineUsers, ids)
	if err != nil {
		p.logger.Error("Presence", "Failed to encode snapshot", map[string]interface{}{"error": err.Error()})
		return
	}
	p.out.DeliverAll(payload)
}
