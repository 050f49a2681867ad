package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelivery struct {
	mu        sync.Mutex
	broadcast [][]byte
	direct    map[string][][]byte
}

func newRecordingDelivery() *recordingDelivery {
	return &recordingDelivery{direct: make(map[string][][]byte)}
}

func (d *recordingDelivery) BroadcastAll(payload []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcast = append(d.broadcast, payload)
	return 1
}

func (d *recordingDelivery) SendToUser(userId string, payload []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.direct[userId] = append(d.direct[userId], payload)
	return true
}

func (d *recordingDelivery) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	direct := 0
	for _, p := range d.direct {
		direct += len(p)
	}
	return len(d.broadcast), direct
}

func startConsumer(t *testing.T, scope string) (*NotificationBus, *recordingDelivery) {
	t.Helper()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	delivery := newRecordingDelivery()
	consumer := NewNotificationConsumer(pubSub, delivery, scope, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	return NewNotificationBus(pubSub), delivery
}

func decodeNotification(t *testing.T, payload []byte) dto.NotificationEvent {
	t.Helper()
	var env struct {
		Type string                `json:"type"`
		Data dto.NotificationEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &env))
	assert.Equal(t, dto.EventNotification, env.Type)
	return env.Data
}

func TestNotificationConsumer_ScopeAllBroadcastsWithoutRoomId(t *testing.T) {
	bus, delivery := startConsumer(t, config.NotifyAll)

	require.NoError(t, bus.Notify(context.Background(), dto.NotificationEvent{To: "2", From: "Alice", RoomId: "1_2"}))

	assert.Eventually(t, func() bool {
		broadcast, _ := delivery.counts()
		return broadcast == 1
	}, time.Second, 10*time.Millisecond)

	delivery.mu.Lock()
	payload := delivery.broadcast[0]
	delivery.mu.Unlock()

	assert.Equal(t, dto.NotificationEvent{To: "2", From: "Alice"}, decodeNotification(t, payload))
	assert.NotContains(t, string(payload), "1_2")

	_, direct := delivery.counts()
	assert.Zero(t, direct)
}

func TestNotificationConsumer_ScopeRecipientTargetsUser(t *testing.T) {
	bus, delivery := startConsumer(t, config.NotifyRecipient)

	require.NoError(t, bus.Notify(context.Background(), dto.NotificationEvent{To: "2", From: "Alice", RoomId: "1_2"}))
	require.NoError(t, bus.Notify(context.Background(), dto.NotificationEvent{To: "3", From: "Alice", RoomId: "1_3"}))

	assert.Eventually(t, func() bool {
		_, direct := delivery.counts()
		return direct == 2
	}, time.Second, 10*time.Millisecond)

	delivery.mu.Lock()
	defer delivery.mu.Unlock()
	require.Len(t, delivery.direct["2"], 1)
	require.Len(t, delivery.direct["3"], 1)
	assert.Empty(t, delivery.broadcast)

	// A targeted notification only reaches a participant, so it keeps the room.
	assert.Equal(t, "1_2", decodeNotification(t, delivery.direct["2"][0]).RoomId)
	assert.Equal(t, "1_3", decodeNotification(t, delivery.direct["3"][0]).RoomId)
}

func TestNotificationBus_WithoutConsumerIsLost(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	err := NewNotificationBus(pubSub).Notify(context.Background(), dto.NotificationEvent{To: "2", From: "Alice"})
	assert.NoError(t, err)
}
