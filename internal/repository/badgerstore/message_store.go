package badgerstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/repository/contract"
	"storefront-chat-be/pkg/timeutil"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	keyPrefix   = "msg:"
	sequenceKey = "seq:messages"
	// Ids are leased from badger in blocks; unused ids are lost on restart.
	sequenceBandwidth = 128
)

type diskMessage struct {
	Id         uint64 `json:"id"`
	RoomId     string `json:"room_id"`
	SenderId   string `json:"sender_id"`
	ReceiverId string `json:"receiver_id"`
	Text       string `json:"text"`
	SentAt     int64  `json:"sent_at"`
}

// MessageStore keeps chat history in an embedded badger database. It is the
// single-node alternative to the PostgreSQL repository.
type MessageStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	clock *timeutil.MonotonicClock
}

var _ contract.MessageStore = (*MessageStore)(nil)

func NewMessageStore(db *badger.DB) (*MessageStore, error) {
	return NewMessageStoreWithClock(db, timeutil.NewMonotonicClock())
}

func NewMessageStoreWithClock(db *badger.DB, clock *timeutil.MonotonicClock) (*MessageStore, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("lease message sequence: %w", err)
	}
	return &MessageStore{db: db, seq: seq, clock: clock}, nil
}

// roomPrefix hex-encodes the room id so a room id containing ':' cannot
// collide with the key separators.
func roomPrefix(roomId string) []byte {
	return []byte(keyPrefix + hex.EncodeToString([]byte(roomId)) + ":")
}

// messageKey is "msg:{hex room}:{unix nanos, 19 digits}:{id, 20 digits}" so
// a prefix scan returns the room in send order.
func messageKey(m diskMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%020d", roomPrefix(m.RoomId), m.SentAt, m.Id))
}

func (s *MessageStore) Append(ctx context.Context, roomId, senderId, receiverId, text string) (*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next, err := s.seq.Next()
	if err != nil {
		return nil, fmt.Errorf("next message id: %w", err)
	}

	m := diskMessage{
		// badger sequences start at zero
		Id:         next + 1,
		RoomId:     roomId,
		SenderId:   senderId,
		ReceiverId: receiverId,
		Text:       text,
		SentAt:     s.clock.Now().UnixNano(),
	}
	value, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(m), value)
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return toEntity(m), nil
}

func (s *MessageStore) History(ctx context.Context, roomId string) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stored []diskMessage
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomId)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m diskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &m)
			})
			if err != nil {
				return err
			}
			stored = append(stored, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	return lo.Map(stored, func(m diskMessage, _ int) *entity.Message {
		return toEntity(m)
	}), nil
}

// Close returns unused leased ids. The badger handle stays owned by the caller.
func (s *MessageStore) Close() error {
	return s.seq.Release()
}

func toEntity(m diskMessage) *entity.Message {
	return &entity.Message{
		Id:         m.Id,
		RoomId:     m.RoomId,
		SenderId:   m.SenderId,
		ReceiverId: m.ReceiverId,
		Text:       m.Text,
		SentAt:     time.Unix(0, m.SentAt).UTC(),
	}
}
