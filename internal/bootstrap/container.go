package bootstrap

import (
	"context"
	"fmt"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/handler"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/serverutils"
	"storefront-chat-be/internal/repository/contract"
	"storefront-chat-be/internal/repository/memory"
	"storefront-chat-be/internal/service"
	"storefront-chat-be/internal/websocket"

	pktNats "storefront-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Handlers
	ChatHandler *handler.ChatHandler

	// Chat core
	Gateway              *websocket.Gateway
	Pipeline             *service.MessagePipeline
	NotificationConsumer *service.NotificationConsumer

	logger    logger.ILogger
	pubSub    *gochannel.GoChannel
	rdb       *redis.Client
	relay     *websocket.RedisRelay
	publisher *pktNats.Publisher
	cancel    context.CancelFunc
}

// NewContainer wires the chat service around an already opened message
// store. users may be nil when no user directory is available.
func NewContainer(
	cfg *config.Config,
	store contract.MessageStore,
	users contract.UserDirectory,
	sysLogger logger.ILogger,
	chatLogger logger.ILogger,
) (*Container, error) {
	location, err := cfg.Chat.Location()
	if err != nil {
		return nil, fmt.Errorf("load chat timezone: %w", err)
	}

	c := &Container{logger: sysLogger}

	// 1. Cluster relay (optional)
	var relay websocket.Relay
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		c.rdb = redis.NewClient(opts)
		if err := c.rdb.Ping(context.Background()).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Redis not reachable yet, relay will keep retrying", map[string]interface{}{"error": err.Error()})
		}
		c.relay = websocket.NewRedisRelay(c.rdb, chatLogger)
		relay = c.relay
	}

	// 2. Event bus (optional)
	var publisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "NATS unavailable, message events disabled", map[string]interface{}{"error": err.Error()})
		} else {
			c.publisher = pub
			publisher = pub
		}
	}

	// 3. Notification bus
	watermillLogger := watermill.NewStdLogger(false, false)
	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	notifier := service.NewNotificationBus(c.pubSub)

	// 4. Connection registries
	hub := websocket.NewHub(relay, chatLogger)
	presence := websocket.NewPresenceRegistry(hub, chatLogger)
	router := websocket.NewRoomRouter(relay)

	// 5. Services
	names := memory.NewDisplayNameCache(users, cfg.Chat.DisplayNameTTL)
	auth := serverutils.NewJWTAuthenticator(cfg.Auth.JwtSecret)
	c.Pipeline = service.NewMessagePipeline(store, router, notifier, publisher, location, chatLogger)
	history := service.NewHistoryService(store, names, location)

	c.Gateway = websocket.NewGateway(websocket.GatewayDeps{
		Hub:      hub,
		Presence: presence,
		Router:   router,
		Relay:    relay,
		Pipeline: c.Pipeline,
		Auth:     auth,
		Names:    names,
		Config:   cfg.Chat,
		Logger:   chatLogger,
	})
	c.NotificationConsumer = service.NewNotificationConsumer(c.pubSub, c.Gateway, cfg.Chat.NotificationScope, chatLogger)

	// 6. Handlers
	c.ChatHandler = handler.NewChatHandler(c.Gateway, history, auth, cfg.Auth.JwtSecret, cfg.Chat, sysLogger)

	return c, nil
}

// Start runs the background workers. The notification consumer is
// subscribed by the time Start returns.
func (c *Container) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	if err := c.NotificationConsumer.Consume(ctx); err != nil {
		c.cancel()
		return fmt.Errorf("start notification consumer: %w", err)
	}

	if c.relay != nil {
		go c.relay.Run(ctx, c.Gateway)
	}
	return nil
}

// Close disconnects every client, then drains pending event publishes
// before the brokers go away.
func (c *Container) Close() {
	c.Gateway.Shutdown()
	c.Pipeline.Wait()

	if c.cancel != nil {
		c.cancel()
	}
	if c.publisher != nil {
		c.publisher.Close()
	}
	if err := c.pubSub.Close(); err != nil {
		c.logger.Warn("Bootstrap", "Failed to close notification bus", map[string]interface{}{"error": err.Error()})
	}
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			c.logger.Warn("Bootstrap", "Failed to close redis client", map[string]interface{}{"error": err.Error()})
		}
	}
}
