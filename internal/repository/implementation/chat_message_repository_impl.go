package implementation

import (
	"context"
	"errors"
	"fmt"

	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/mapper"
	"storefront-chat-be/internal/model"
	"storefront-chat-be/internal/repository/contract"
	"storefront-chat-be/pkg/timeutil"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMessageMapper
	clock  *timeutil.MonotonicClock
}

func NewChatMessageRepository(db *gorm.DB) contract.MessageStore {
	return NewChatMessageRepositoryWithClock(db, timeutil.NewMonotonicClock())
}

func NewChatMessageRepositoryWithClock(db *gorm.DB, clock *timeutil.MonotonicClock) contract.MessageStore {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMessageMapper(),
		clock:  clock,
	}
}

func (r *ChatMessageRepositoryImpl) Append(ctx context.Context, roomId, senderId, receiverId, text string) (*entity.Message, error) {
	m := &model.ChatMessage{
		RoomId:      roomId,
		SenderId:    senderId,
		ReceiverId:  receiverId,
		MessageText: text,
		SentAt:      r.clock.Now(),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, describe("insert message", err)
	}
	return r.mapper.ToEntity(m), nil
}

func (r *ChatMessageRepositoryImpl) History(ctx context.Context, roomId string) ([]*entity.Message, error) {
	var models []*model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomId).
		Order("sent_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, describe("load history", err)
	}

	messages := make([]*entity.Message, len(models))
	for i, m := range models {
		messages[i] = r.mapper.ToEntity(m)
	}
	return messages, nil
}

// describe attaches the SQLSTATE of PostgreSQL errors so operators can tell a
// constraint violation from a lost connection in the logs.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (sqlstate %s): %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
