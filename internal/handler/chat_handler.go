package handler

import (
	"errors"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/serverutils"
	"storefront-chat-be/internal/service"
	internalWS "storefront-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type ChatHandler struct {
	gateway   *internalWS.Gateway
	history   *service.HistoryService
	auth      internalWS.Authenticator
	jwtSecret string
	cfg       config.ChatConfig
	logger    logger.ILogger
}

func NewChatHandler(
	gateway *internalWS.Gateway,
	history *service.HistoryService,
	auth internalWS.Authenticator,
	jwtSecret string,
	cfg config.ChatConfig,
	log logger.ILogger,
) *ChatHandler {
	return &ChatHandler{
		gateway:   gateway,
		history:   history,
		auth:      auth,
		jwtSecret: jwtSecret,
		cfg:       cfg,
		logger:    log,
	}
}

// Upgrade guards the websocket route. A token is optional at handshake time;
// clients without one identify over the socket instead.
func (h *ChatHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// Query param first (browsers cannot set headers on a websocket).
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr, _ = serverutils.BearerToken(c.Get("Authorization"))
	}
	if tokenStr == "" {
		return c.Next()
	}

	identity, err := h.auth.Authenticate(tokenStr)
	if err != nil {
		h.logger.Warn("ChatHandler", "Invalid token in WS handshake", map[string]interface{}{
			"error": err.Error(),
			"ip":    c.IP(),
		})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	c.Locals(serverutils.LocalIdentity, identity)
	return c.Next()
}

// ServeWs hands every upgraded connection to the gateway.
func (h *ChatHandler) ServeWs() fiber.Handler {
	return websocket.New(h.gateway.Serve, websocket.Config{
		Origins:         h.cfg.AllowedOrigins,
		ReadBufferSize:  int(h.cfg.MaxMessageSize),
		WriteBufferSize: int(h.cfg.MaxMessageSize),
	})
}

// GetHistory returns a room's messages, oldest first. Only the two
// participants of a room may read it.
func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	identity, ok := serverutils.IdentityFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	roomId := c.Params("roomId")
	res, err := h.history.History(c.UserContext(), identity.UserId, roomId)
	if err != nil {
		if errors.Is(err, service.ErrRoomForbidden) {
			return fiber.NewError(fiber.StatusForbidden, "not a participant of this room")
		}
		h.logger.Error("ChatHandler", "Failed to load history", map[string]interface{}{
			"room_id": roomId,
			"error":   err.Error(),
		})
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load history")
	}

	return c.JSON(serverutils.SuccessResponse("Success get chat history", res))
}

func (h *ChatHandler) Health(c *fiber.Ctx) error {
	return c.JSON(serverutils.SuccessResponse("ok", fiber.Map{
		"connections":  h.gateway.Hub().Count(),
		"online_users": len(h.gateway.Presence().Snapshot()),
	}))
}

func (h *ChatHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.Health)

	messages := router.Group("/messages")
	messages.Use(serverutils.JwtMiddleware(h.jwtSecret))
	messages.Get("/:roomId", h.GetHistory)

	// WebSocket
	router.Get("/ws", h.Upgrade, h.ServeWs())
}
