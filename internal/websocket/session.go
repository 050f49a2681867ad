package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/service"

	"golang.org/x/time/rate"
)

var (
	ErrNotIdentified = errors.New("identify with user_online first")
	ErrUnauthorized  = errors.New("invalid or expired token")
	ErrRateLimited   = errors.New("sending too fast")
)

type SessionState int

const (
	StateConnected SessionState = iota
	StateIdentified
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// Session drives one connection through Connected, Identified and Closed.
// Events of one session are handled one at a time by its read loop.
type Session struct {
	conn    Conn
	gw      *Gateway
	limiter *rate.Limiter

	mu       sync.Mutex
	state    SessionState
	identity entity.Identity

	closeOnce sync.Once
}

func (s *Session) Conn() Conn {
	return s.conn
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Identity() (entity.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.state == StateIdentified
}

// Handle processes one inbound frame. A rejected event is answered with an
// error event on the same connection and the error is returned.
func (s *Session) Handle(ctx context.Context, raw []byte) error {
	var env dto.InboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		err = fmt.Errorf("%w: undecodable envelope", service.ErrMalformedPayload)
		s.reject("", err)
		return err
	}

	var err error
	switch env.Type {
	case dto.EventUserOnline:
		err = s.handleIdentify(env.Data)
	case dto.EventJoinChat:
		err = s.handleJoin(env.Data)
	case dto.EventSendMessage:
		err = s.handleSend(ctx, env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", service.ErrMalformedPayload, env.Type)
	}

	if err != nil {
		s.reject(env.Type, err)
	}
	return err
}

func (s *Session) handleIdentify(data json.RawMessage) error {
	var req dto.IdentifyRequest
	if err := s.decode(data, &req); err != nil {
		return err
	}

	identity, err := s.gw.auth.Authenticate(req.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return s.Identify(identity)
}

// Identify binds the connection to a user and announces it. Calling it again
// replaces the identity; switching to another user also drops the rooms
// joined as the previous one.
func (s *Session) Identify(identity entity.Identity) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrNotIdentified
	}
	switched := s.state == StateIdentified && s.identity.UserId != identity.UserId
	s.state = StateIdentified
	s.identity = identity
	s.mu.Unlock()

	if switched {
		s.gw.router.LeaveAll(s.conn)
	}

	if s.gw.names != nil {
		s.gw.names.Remember(identity)
	}
	s.gw.presence.SetOnline(identity.UserId, s.conn)

	s.gw.logger.Info("Session", "Connection identified", map[string]interface{}{
		"conn_id": s.conn.ID(),
		"user_id": identity.UserId,
	})
	return nil
}

func (s *Session) handleJoin(data json.RawMessage) error {
	if _, ok := s.Identity(); !ok {
		return ErrNotIdentified
	}

	var req dto.JoinRoomRequest
	if err := s.decode(data, &req); err != nil {
		return err
	}

	s.gw.router.Join(s.conn, req.RoomId)
	return nil
}

func (s *Session) handleSend(ctx context.Context, data json.RawMessage) error {
	identity, ok := s.Identity()
	if !ok {
		return ErrNotIdentified
	}
	if !s.limiter.Allow() {
		return ErrRateLimited
	}

	var req dto.SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformedPayload, err)
	}

	_, err := s.gw.pipeline.Submit(ctx, identity, req)
	return err
}

func (s *Session) decode(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformedPayload, err)
	}
	if err := s.gw.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformedPayload, err)
	}
	return nil
}

// reject answers the client. Internal causes are logged, not sent.
func (s *Session) reject(eventType string, err error) {
	code, message := classify(err)
	if code == dto.ErrCodeInternal || code == dto.ErrCodePersistenceFailure {
		s.gw.logger.Error("Session", "Event failed", map[string]interface{}{
			"conn_id": s.conn.ID(),
			"event":   eventType,
			"error":   err.Error(),
		})
	}

	payload, encErr := dto.Encode(dto.EventError, dto.ErrorEvent{Code: code, Message: message, Event: eventType})
	if encErr != nil {
		return
	}
	s.conn.Send(payload)
}

func classify(err error) (string, string) {
	switch {
	case errors.Is(err, service.ErrMalformedPayload):
		return dto.ErrCodeMalformedPayload, err.Error()
	case errors.Is(err, ErrNotIdentified):
		return dto.ErrCodeNotIdentified, ErrNotIdentified.Error()
	case errors.Is(err, ErrUnauthorized):
		return dto.ErrCodeUnauthorized, ErrUnauthorized.Error()
	case errors.Is(err, ErrRateLimited):
		return dto.ErrCodeRateLimited, ErrRateLimited.Error()
	case errors.Is(err, service.ErrPersistenceFailure):
		return dto.ErrCodePersistenceFailure, service.ErrPersistenceFailure.Error()
	default:
		return dto.ErrCodeInternal, "internal error"
	}
}

// Close tears the session down. The connection stops accepting frames
// before it leaves rooms and presence, so nothing reaches it afterwards.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasIdentified := s.state == StateIdentified
		s.state = StateClosed
		s.mu.Unlock()

		s.conn.Close()
		rooms := s.gw.router.LeaveAll(s.conn)
		userId, _ := s.gw.presence.SetOffline(s.conn)
		s.gw.hub.Unregister(s.conn)

		if wasIdentified {
			s.gw.logger.Info("Session", "Connection closed", map[string]interface{}{
				"conn_id": s.conn.ID(),
				"user_id": userId,
				"rooms":   len(rooms),
			})
		}
	})
}
