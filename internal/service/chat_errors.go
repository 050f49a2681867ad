package service

import "errors"

var (
	// ErrMalformedPayload rejects a request before anything is persisted.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrPersistenceFailure means the message was not stored and was not
	// delivered to anyone.
	ErrPersistenceFailure = errors.New("message could not be stored")
	ErrRoomForbidden      = errors.New("not a participant of this room")
)
