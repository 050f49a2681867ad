package service

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/metrics"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const NotificationTopic = "chat.notifications"

// NotificationDelivery pushes encoded events to live connections.
// Typically implemented by the websocket gateway.
type NotificationDelivery interface {
	BroadcastAll(payload []byte) int
	SendToUser(userId string, payload []byte) bool
}

// NotificationBus hands notifications to the consumer through an in-process
// channel. Nothing is persisted; a notification published while no consumer
// is subscribed is lost.
type NotificationBus struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewNotificationBus(pubSub *gochannel.GoChannel) *NotificationBus {
	return &NotificationBus{pubSub: pubSub, topic: NotificationTopic}
}

func (b *NotificationBus) Notify(ctx context.Context, evt dto.NotificationEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

type NotificationConsumer struct {
	pubSub   *gochannel.GoChannel
	topic    string
	delivery NotificationDelivery
	scope    string
	logger   logger.ILogger
}

func NewNotificationConsumer(pubSub *gochannel.GoChannel, delivery NotificationDelivery, scope string, log logger.ILogger) *NotificationConsumer {
	return &NotificationConsumer{
		pubSub:   pubSub,
		topic:    NotificationTopic,
		delivery: delivery,
		scope:    scope,
		logger:   log,
	}
}

// Consume subscribes before returning, then delivers in the background
// until ctx is done.
func (c *NotificationConsumer) Consume(ctx context.Context) error {
	messages, err := c.pubSub.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.process(msg)
		}
	}()

	c.logger.Info("NotificationConsumer", "Notification consumer started", map[string]interface{}{
		"topic": c.topic,
		"scope": c.scope,
	})
	return nil
}

func (c *NotificationConsumer) process(msg *message.Message) {
	// Best effort: every message is acked, delivered or not.
	defer msg.Ack()

	var evt dto.NotificationEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		c.logger.Warn("NotificationConsumer", "Dropping undecodable notification", map[string]interface{}{"error": err.Error()})
		return
	}

	if c.scope != config.NotifyRecipient {
		// Every connection sees this event; the room id would let anyone
		// join the conversation.
		evt.RoomId = ""
	}

	payload, err := dto.Encode(dto.EventNotification, evt)
	if err != nil {
		c.logger.Error("NotificationConsumer", "Failed to encode notification", map[string]interface{}{"error": err.Error()})
		return
	}

	switch c.scope {
	case config.NotifyRecipient:
		c.delivery.SendToUser(evt.To, payload)
	default:
		// Every connection gets it; clients filter on "to".
		c.delivery.BroadcastAll(payload)
	}
	metrics.RecordNotification(c.scope)
}
