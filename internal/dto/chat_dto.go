package dto

import (
	"encoding/json"
	"time"
)

// Inbound websocket event types.
const (
	EventUserOnline  = "user_online"
	EventJoinChat    = "join_chat"
	EventSendMessage = "send_message"
)

// Outbound websocket event types.
const (
	EventOnlineUsers    = "get_online_users"
	EventReceiveMessage = "receive_message"
	EventNotification   = "notification"
	EventError          = "error"
)

// Error codes carried by EventError.
const (
	ErrCodeMalformedPayload   = "malformed_payload"
	ErrCodeNotIdentified      = "not_identified"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodePersistenceFailure = "persistence_failure"
	ErrCodeRateLimited        = "rate_limited"
	ErrCodeInternal           = "internal_error"
)

// InboundEnvelope is what clients send over the socket.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundEnvelope is what the server pushes to clients.
type OutboundEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type IdentifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type JoinRoomRequest struct {
	RoomId string `json:"room_id" validate:"required,max=191"`
}

// SendMessageRequest is the payload of send_message. SenderId is accepted for
// compatibility with older clients but never used: the sender is always the
// identity of the connection.
type SendMessageRequest struct {
	RoomId     string `json:"room_id" validate:"required,max=191"`
	SenderId   string `json:"sender_id,omitempty"`
	ReceiverId string `json:"receiver_id" validate:"required,max=64"`
	Text       string `json:"text" validate:"required,max=2000"`
}

type ReceiveMessageEvent struct {
	Id            uint64    `json:"id"`
	RoomId        string    `json:"room_id"`
	SenderId      string    `json:"sender_id"`
	ReceiverId    string    `json:"receiver_id"`
	Author        string    `json:"author"`
	Text          string    `json:"text"`
	SentAt        time.Time `json:"sent_at"`
	FormattedTime string    `json:"formatted_time"`
}

// NotificationEvent carries RoomId only when it is delivered to the
// recipient alone.
type NotificationEvent struct {
	To     string `json:"to"`
	From   string `json:"from"`
	RoomId string `json:"room_id,omitempty"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

type HistoryMessageResponse struct {
	Id            uint64    `json:"id"`
	RoomId        string    `json:"room_id"`
	SenderId      string    `json:"sender_id"`
	ReceiverId    string    `json:"receiver_id"`
	Author        string    `json:"author"`
	Text          string    `json:"text"`
	SentAt        time.Time `json:"sent_at"`
	FormattedTime string    `json:"formatted_time"`
}

// Encode marshals an outbound event. Payloads are plain structs so the error
// only surfaces on programming mistakes.
func Encode(eventType string, data any) ([]byte, error) {
	return json.Marshal(OutboundEnvelope{Type: eventType, Data: data})
}
