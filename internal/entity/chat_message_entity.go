package entity

import "time"

// Message is an immutable chat message between two users of a room.
type Message struct {
	Id         uint64
	RoomId     string
	SenderId   string
	ReceiverId string
	Text       string
	SentAt     time.Time
}
