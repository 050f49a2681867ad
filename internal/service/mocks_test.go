package service

import (
	"context"
	"sync"

	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/entity"
	"storefront-chat-be/pkg/events"

	"github.com/stretchr/testify/mock"
)

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) Append(ctx context.Context, roomId, senderId, receiverId, text string) (*entity.Message, error) {
	args := m.Called(ctx, roomId, senderId, receiverId, text)
	msg, _ := args.Get(0).(*entity.Message)
	return msg, args.Error(1)
}

func (m *mockMessageStore) History(ctx context.Context, roomId string) ([]*entity.Message, error) {
	args := m.Called(ctx, roomId)
	messages, _ := args.Get(0).([]*entity.Message)
	return messages, args.Error(1)
}

type broadcast struct {
	roomId  string
	payload []byte
}

type recordingRouter struct {
	mu         sync.Mutex
	broadcasts []broadcast
}

func (r *recordingRouter) Broadcast(roomId string, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, broadcast{roomId: roomId, payload: payload})
	return 1
}

func (r *recordingRouter) all() []broadcast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast(nil), r.broadcasts...)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, evt dto.NotificationEvent) error {
	return m.Called(ctx, evt).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	return m.Called(ctx, event).Error(0)
}

type mockNameResolver struct {
	mock.Mock
}

func (m *mockNameResolver) Resolve(ctx context.Context, userId string) string {
	return m.Called(ctx, userId).String(0)
}
