package service

import (
	"context"
	"fmt"
	"time"

	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/repository/contract"
	"storefront-chat-be/pkg/room"
)

type NameResolver interface {
	Resolve(ctx context.Context, userId string) string
}

type HistoryService struct {
	store    contract.MessageStore
	names    NameResolver
	location *time.Location
}

func NewHistoryService(store contract.MessageStore, names NameResolver, location *time.Location) *HistoryService {
	return &HistoryService{store: store, names: names, location: location}
}

// History returns every message of the room in store order. Only the two
// participants of a room may read it.
func (s *HistoryService) History(ctx context.Context, requesterId, roomId string) ([]dto.HistoryMessageResponse, error) {
	if _, ok := room.Participants(roomId, requesterId); !ok {
		return nil, ErrRoomForbidden
	}

	messages, err := s.store.History(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", roomId, err)
	}

	authors := make(map[string]string, 2)
	res := make([]dto.HistoryMessageResponse, 0, len(messages))
	for _, m := range messages {
		author, ok := authors[m.SenderId]
		if !ok {
			author = s.names.Resolve(ctx, m.SenderId)
			authors[m.SenderId] = author
		}

		res = append(res, dto.HistoryMessageResponse{
			Id:            m.Id,
			RoomId:        m.RoomId,
			SenderId:      m.SenderId,
			ReceiverId:    m.ReceiverId,
			Author:        author,
			Text:          m.Text,
			SentAt:        m.SentAt,
			FormattedTime: FormatTime(m.SentAt, s.location),
		})
	}
	return res, nil
}
