package contract

import (
	"context"

	"storefront-chat-be/internal/entity"
)

// MessageStore is the durable, append-only record of chat messages.
type MessageStore interface {
	// Append stores a message and assigns its id and server timestamp. The
	// message counts as sent only once Append has returned without error.
	Append(ctx context.Context, roomId, senderId, receiverId, text string) (*entity.Message, error)

	// History returns every message of a room ordered by sent_at, ties broken
	// by id. The result is not paginated.
	History(ctx context.Context, roomId string) ([]*entity.Message, error)
}

// UserDirectory reads user profiles owned by the auth subsystem.
type UserDirectory interface {
	FindUsername(ctx context.Context, userId string) (string, error)
}
