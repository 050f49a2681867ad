package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/metrics"
	"storefront-chat-be/internal/repository/contract"
	"storefront-chat-be/pkg/events"
	"storefront-chat-be/pkg/room"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	TimeFormat = "03:04 PM"

	eventPublishTimeout = 5 * time.Second
)

// RoomBroadcaster delivers a payload to everyone subscribed to a room.
type RoomBroadcaster interface {
	Broadcast(roomId string, payload []byte) int
}

type Notifier interface {
	Notify(ctx context.Context, evt dto.NotificationEvent) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type MessagePipeline struct {
	store     contract.MessageStore
	router    RoomBroadcaster
	notifier  Notifier
	publisher EventPublisher
	location  *time.Location
	validate  *validator.Validate
	logger    logger.ILogger

	inflight sync.WaitGroup
}

// NewMessagePipeline accepts a nil publisher when no event bus is configured.
func NewMessagePipeline(
	store contract.MessageStore,
	router RoomBroadcaster,
	notifier Notifier,
	publisher EventPublisher,
	location *time.Location,
	log logger.ILogger,
) *MessagePipeline {
	return &MessagePipeline{
		store:     store,
		router:    router,
		notifier:  notifier,
		publisher: publisher,
		location:  location,
		validate:  validator.New(),
		logger:    log,
	}
}

// FormatTime renders the short clock time shown next to a message.
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimeFormat)
}

// Submit stores the message and only then fans it out. The sender always
// comes from the authenticated session, never from the request.
func (p *MessagePipeline) Submit(ctx context.Context, sender entity.Identity, req dto.SendMessageRequest) (*entity.Message, error) {
	started := time.Now()
	ctx, span := otel.Tracer("storefront-chat/pipeline").Start(ctx, "MessagePipeline.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.room_id", req.RoomId),
		attribute.String("chat.sender_id", sender.UserId),
	)

	if err := p.check(sender, req); err != nil {
		metrics.RecordSubmit(metrics.ResultMalformed, started)
		span.SetStatus(codes.Error, "malformed payload")
		return nil, err
	}

	msg, err := p.store.Append(ctx, req.RoomId, sender.UserId, req.ReceiverId, req.Text)
	if err != nil {
		metrics.RecordSubmit(metrics.ResultPersistenceError, started)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failure")
		p.logger.Error("MessagePipeline", "Failed to store message", map[string]interface{}{
			"room_id":   req.RoomId,
			"sender_id": sender.UserId,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	payload, err := dto.Encode(dto.EventReceiveMessage, dto.ReceiveMessageEvent{
		Id:            msg.Id,
		RoomId:        msg.RoomId,
		SenderId:      msg.SenderId,
		ReceiverId:    msg.ReceiverId,
		Author:        sender.Name(),
		Text:          msg.Text,
		SentAt:        msg.SentAt,
		FormattedTime: FormatTime(msg.SentAt, p.location),
	})
	if err != nil {
		// Stored but undeliverable; history still has it.
		p.logger.Error("MessagePipeline", "Failed to encode message", map[string]interface{}{"error": err.Error()})
		return msg, nil
	}

	delivered := p.router.Broadcast(msg.RoomId, payload)
	span.SetAttributes(attribute.Int("chat.delivered", delivered))

	notification := dto.NotificationEvent{To: msg.ReceiverId, From: sender.Name(), RoomId: msg.RoomId}
	if err := p.notifier.Notify(ctx, notification); err != nil {
		p.logger.Warn("MessagePipeline", "Failed to notify recipient", map[string]interface{}{
			"to":    msg.ReceiverId,
			"error": err.Error(),
		})
	}

	p.publishAsync(msg)
	metrics.RecordSubmit(metrics.ResultDelivered, started)
	return msg, nil
}

func (p *MessagePipeline) check(sender entity.Identity, req dto.SendMessageRequest) error {
	if err := p.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return fmt.Errorf("%w: %s failed on '%s'", ErrMalformedPayload, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrMalformedPayload)
	}
	if !room.ValidUserID(req.ReceiverId) {
		return fmt.Errorf("%w: receiver_id %q is not a valid user id", ErrMalformedPayload, req.ReceiverId)
	}
	if req.ReceiverId == sender.UserId {
		return fmt.Errorf("%w: cannot message yourself", ErrMalformedPayload)
	}
	if want := room.ID(sender.UserId, req.ReceiverId); req.RoomId != want {
		return fmt.Errorf("%w: room %q does not belong to %s and %s", ErrMalformedPayload, req.RoomId, sender.UserId, req.ReceiverId)
	}
	return nil
}

func (p *MessagePipeline) publishAsync(msg *entity.Message) {
	if p.publisher == nil {
		return
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()

		if err := p.publisher.Publish(ctx, events.NewMessageSentEvent(msg)); err != nil {
			p.logger.Warn("MessagePipeline", "Failed to publish message event", map[string]interface{}{
				"message_id": msg.Id,
				"error":      err.Error(),
			})
		}
	}()
}

// Wait blocks until in-flight event publishes finish.
func (p *MessagePipeline) Wait() {
	p.inflight.Wait()
}
