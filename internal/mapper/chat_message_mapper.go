package mapper

import (
	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/model"
)

type ChatMessageMapper struct{}

func NewChatMessageMapper() *ChatMessageMapper {
	return &ChatMessageMapper{}
}

func (m *ChatMessageMapper) ToModel(e *entity.Message) *model.ChatMessage {
	if e == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:          e.Id,
		RoomId:      e.RoomId,
		SenderId:    e.SenderId,
		ReceiverId:  e.ReceiverId,
		MessageText: e.Text,
		SentAt:      e.SentAt,
	}
}

func (m *ChatMessageMapper) ToEntity(mo *model.ChatMessage) *entity.Message {
	if mo == nil {
		return nil
	}
	return &entity.Message{
		Id:         mo.Id,
		RoomId:     mo.RoomId,
		SenderId:   mo.SenderId,
		ReceiverId: mo.ReceiverId,
		Text:       mo.MessageText,
		SentAt:     mo.SentAt.UTC(),
	}
}
