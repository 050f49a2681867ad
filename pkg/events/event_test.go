package events

import (
	"testing"
	"time"

	"storefront-chat-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestNewMessageSentEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 123000, time.UTC)
	evt := NewMessageSentEvent(&entity.Message{
		Id:         42,
		RoomId:     "1_2",
		SenderId:   "1",
		ReceiverId: "2",
		Text:       "hi",
		SentAt:     at,
	})

	assert.Equal(t, ChatMessageSent, evt.EventType())
	assert.Equal(t, at, evt.Timestamp())
	assert.Equal(t, uint64(42), evt.Payload()["message_id"])
	assert.Equal(t, "1_2", evt.Payload()["room_id"])
	assert.Equal(t, "2024-05-01T09:30:00.000123Z", evt.Payload()["sent_at"])
	assert.NotContains(t, evt.Payload(), "text")
}
