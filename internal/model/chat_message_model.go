package model

import "time"

type ChatMessage struct {
	Id          uint64    `gorm:"primaryKey;autoIncrement"`
	RoomId      string    `gorm:"type:varchar(191);not null;index:idx_messages_room_sent,priority:1"`
	SenderId    string    `gorm:"type:varchar(64);not null"`
	ReceiverId  string    `gorm:"type:varchar(64);not null"`
	MessageText string    `gorm:"type:text;not null"`
	SentAt      time.Time `gorm:"not null;index:idx_messages_room_sent,priority:2"`
}

func (ChatMessage) TableName() string {
	return "messages"
}
