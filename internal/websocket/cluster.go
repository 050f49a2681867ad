package websocket

import (
	"context"
	"encoding/json"
	"time"

	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	RelayRoom = "room"
	RelayAll  = "all"
	RelayUser = "user"

	ClusterChannel = "chat_cluster_events"

	relayBuffer = 1024
)

// Relay forwards deliveries to the other instances of the service.
// Publish must not block the caller.
type Relay interface {
	Publish(evt RelayEvent)
}

// RelayEvent is the wire form on the cluster channel. Target is the room id
// for room events and the user id for user events.
type RelayEvent struct {
	Origin  string          `json:"origin"`
	Kind    string          `json:"kind"`
	Target  string          `json:"target,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// LocalDelivery is what an instance does with events relayed by its peers.
type LocalDelivery interface {
	DeliverRoom(roomId string, payload []byte) int
	DeliverAll(payload []byte) int
	DeliverUser(userId string, payload []byte) bool
}

// RedisRelay fans room and notification traffic out over Redis pub/sub.
// Presence is not relayed; each instance reports its own users.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	origin  string
	out     chan RelayEvent
	logger  logger.ILogger
}

func NewRedisRelay(rdb *redis.Client, log logger.ILogger) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: ClusterChannel,
		origin:  uuid.NewString(),
		out:     make(chan RelayEvent, relayBuffer),
		logger:  log,
	}
}

func (r *RedisRelay) Origin() string {
	return r.origin
}

// Publish queues the event for the publisher loop; events are sent in the
// order they were queued. A full queue drops the event.
func (r *RedisRelay) Publish(evt RelayEvent) {
	evt.Origin = r.origin
	select {
	case r.out <- evt:
	default:
		r.logger.Warn("Relay", "Outbound queue full, dropping event", map[string]interface{}{
			"kind":   evt.Kind,
			"target": evt.Target,
		})
	}
}

// Run subscribes to the cluster channel and publishes queued events until
// ctx is done.
func (r *RedisRelay) Run(ctx context.Context, local LocalDelivery) {
	pubsub := r.rdb.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	go r.publishLoop(ctx)

	r.logger.Info("Relay", "Cluster relay started", map[string]interface{}{
		"channel": r.channel,
		"origin":  r.origin,
	})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle([]byte(msg.Payload), local)
		}
	}
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-r.out:
			data, err := json.Marshal(evt)
			if err != nil {
				r.logger.Error("Relay", "Failed to encode event", map[string]interface{}{"error": err.Error()})
				continue
			}

			pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err = r.rdb.Publish(pubCtx, r.channel, data).Err()
			cancel()
			if err != nil {
				r.logger.Warn("Relay", "Failed to publish event", map[string]interface{}{"error": err.Error()})
				continue
			}
			metrics.RecordRelay("out")
		}
	}
}

// handle delivers one relayed event locally. Events this instance published
// itself were already delivered and are skipped.
func (r *RedisRelay) handle(raw []byte, local LocalDelivery) {
	var evt RelayEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		r.logger.Warn("Relay", "Undecodable cluster event", map[string]interface{}{"error": err.Error()})
		return
	}
	if evt.Origin == r.origin {
		return
	}

	metrics.RecordRelay("in")
	switch evt.Kind {
	case RelayRoom:
		local.DeliverRoom(evt.Target, evt.Payload)
	case RelayAll:
		local.DeliverAll(evt.Payload)
	case RelayUser:
		local.DeliverUser(evt.Target, evt.Payload)
	default:
		r.logger.Warn("Relay", "Unknown cluster event kind", map[string]interface{}{"kind": evt.Kind})
	}
}
