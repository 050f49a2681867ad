package websocket

import (
	"slices"
	"sync"

	"storefront-chat-be/internal/pkg/metrics"

	"github.com/samber/lo"
)

// RoomRouter holds the per-connection room subscriptions of this instance.
type RoomRouter struct {
	mu          sync.Mutex
	rooms       map[string]map[string]Conn
	memberships map[string]map[string]struct{}

	relay Relay
}

func NewRoomRouter(relay Relay) *RoomRouter {
	return &RoomRouter{
		rooms:       make(map[string]map[string]Conn),
		memberships: make(map[string]map[string]struct{}),
		relay:       relay,
	}
}

// Join reports false when the connection was already subscribed.
func (r *RoomRouter) Join(conn Conn, roomId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscribers, ok := r.rooms[roomId]
	if !ok {
		subscribers = make(map[string]Conn)
		r.rooms[roomId] = subscribers
	}
	if _, joined := subscribers[conn.ID()]; joined {
		return false
	}
	subscribers[conn.ID()] = conn

	joined, ok := r.memberships[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		r.memberships[conn.ID()] = joined
	}
	joined[roomId] = struct{}{}
	return true
}

func (r *RoomRouter) Leave(conn Conn, roomId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn.ID(), roomId)
}

// LeaveAll drops every subscription of the connection and returns the rooms
// it was in.
func (r *RoomRouter) LeaveAll(conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := lo.Keys(r.memberships[conn.ID()])
	for _, roomId := range left {
		r.leaveLocked(conn.ID(), roomId)
	}
	slices.Sort(left)
	return left
}

func (r *RoomRouter) leaveLocked(connId, roomId string) {
	if subscribers, ok := r.rooms[roomId]; ok {
		delete(subscribers, connId)
		if len(subscribers) == 0 {
			delete(r.rooms, roomId)
		}
	}
	if joined, ok := r.memberships[connId]; ok {
		delete(joined, roomId)
		if len(joined) == 0 {
			delete(r.memberships, connId)
		}
	}
}

// Broadcast delivers to local subscribers and relays to other instances.
// A room without subscribers is not an error.
func (r *RoomRouter) Broadcast(roomId string, payload []byte) int {
	delivered := r.DeliverLocal(roomId, payload)
	if r.relay != nil {
		r.relay.Publish(RelayEvent{Kind: RelayRoom, Target: roomId, Payload: payload})
	}
	return delivered
}

// DeliverLocal is serialized under the router lock so every subscriber
// queues room payloads in the same order.
func (r *RoomRouter) DeliverLocal(roomId string, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for _, conn := range r.rooms[roomId] {
		if conn.Send(payload) {
			delivered++
		}
	}
	metrics.RecordRoomDeliveries(delivered)
	return delivered
}

func (r *RoomRouter) Subscribers(roomId string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomId])
}

func (r *RoomRouter) Rooms(conn Conn) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := lo.Keys(r.memberships[conn.ID()])
	slices.Sort(rooms)
	return rooms
}
