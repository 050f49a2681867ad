package events

import (
	"time"

	"storefront-chat-be/internal/entity"
)

const (
	ChatMessageSent = "CHAT_MESSAGE_SENT"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_MESSAGE_SENT").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewMessageSentEvent describes a persisted chat message for downstream
// consumers. The text is left out; consumers read it from the store.
func NewMessageSentEvent(msg *entity.Message) BaseEvent {
	return BaseEvent{
		Type: ChatMessageSent,
		Data: map[string]interface{}{
			"message_id":  msg.Id,
			"room_id":     msg.RoomId,
			"sender_id":   msg.SenderId,
			"receiver_id": msg.ReceiverId,
			"sent_at":     msg.SentAt.Format(time.RFC3339Nano),
		},
		OccurredAt: msg.SentAt,
	}
}
