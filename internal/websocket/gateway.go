package websocket

import (
	"context"
	"fmt"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/pkg/logger"
	"storefront-chat-be/internal/pkg/serverutils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"
)

type MessageSubmitter interface {
	Submit(ctx context.Context, sender entity.Identity, req dto.SendMessageRequest) (*entity.Message, error)
}

type Authenticator interface {
	Authenticate(token string) (entity.Identity, error)
}

// IdentityRecorder keeps the names users identify with for later lookups.
type IdentityRecorder interface {
	Remember(identity entity.Identity)
}

// GatewayDeps wires a Gateway. Relay is nil on a single instance.
type GatewayDeps struct {
	Hub      *Hub
	Presence *PresenceRegistry
	Router   *RoomRouter
	Relay    Relay
	Pipeline MessageSubmitter
	Auth     Authenticator
	Names    IdentityRecorder
	Config   config.ChatConfig
	Logger   logger.ILogger
}

// Gateway owns the websocket side of the chat: it turns connections into
// sessions and delivers what the rest of the service produces.
type Gateway struct {
	hub      *Hub
	presence *PresenceRegistry
	router   *RoomRouter
	relay    Relay
	pipeline MessageSubmitter
	auth     Authenticator
	names    IdentityRecorder

	cfg       config.ChatConfig
	clientCfg ClientConfig
	validate  *validator.Validate
	logger    logger.ILogger
}

func NewGateway(deps GatewayDeps) *Gateway {
	return &Gateway{
		hub:       deps.Hub,
		presence:  deps.Presence,
		router:    deps.Router,
		relay:     deps.Relay,
		pipeline:  deps.Pipeline,
		auth:      deps.Auth,
		names:     deps.Names,
		cfg:       deps.Config,
		clientCfg: ClientConfigFrom(deps.Config),
		validate:  validator.New(),
		logger:    deps.Logger,
	}
}

func (g *Gateway) Hub() *Hub {
	return g.hub
}

func (g *Gateway) Presence() *PresenceRegistry {
	return g.presence
}

func (g *Gateway) Router() *RoomRouter {
	return g.router
}

// NewSession registers a connection that has just been accepted.
func (g *Gateway) NewSession(conn Conn) *Session {
	g.hub.Register(conn)
	return &Session{
		conn:    conn,
		gw:      g,
		limiter: rate.NewLimiter(rate.Limit(g.cfg.RateLimit), g.cfg.RateBurst),
		state:   StateConnected,
	}
}

// Serve runs one upgraded websocket until it closes. An identity placed in
// the connection locals by the upgrade handler identifies it immediately.
func (g *Gateway) Serve(c *websocket.Conn) {
	client := NewClient(c, g.clientCfg, g.logger)
	session := g.NewSession(client)

	if identity, ok := c.Locals(serverutils.LocalIdentity).(entity.Identity); ok {
		_ = session.Identify(identity)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.Run(func(raw []byte) bool {
		return g.dispatch(ctx, session, raw)
	}, session.Close)
}

// dispatch contains a panic to the session that caused it.
func (g *Gateway) dispatch(ctx context.Context, s *Session, raw []byte) (keep bool) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Gateway", "Session handler panicked", map[string]interface{}{
				"conn_id": s.conn.ID(),
				"panic":   fmt.Sprint(r),
			})
			keep = false
		}
	}()

	_ = s.Handle(ctx, raw)
	return true
}

func (g *Gateway) DeliverRoom(roomId string, payload []byte) int {
	return g.router.DeliverLocal(roomId, payload)
}

func (g *Gateway) DeliverAll(payload []byte) int {
	return g.hub.DeliverAll(payload)
}

func (g *Gateway) DeliverUser(userId string, payload []byte) bool {
	conn, ok := g.presence.Lookup(userId)
	if !ok {
		return false
	}
	return conn.Send(payload)
}

// BroadcastAll reaches every connection on every instance.
func (g *Gateway) BroadcastAll(payload []byte) int {
	return g.hub.BroadcastAll(payload)
}

// SendToUser reaches the user's connection wherever it lives and reports
// whether it was found on this instance.
func (g *Gateway) SendToUser(userId string, payload []byte) bool {
	delivered := g.DeliverUser(userId, payload)
	if g.relay != nil {
		g.relay.Publish(RelayEvent{Kind: RelayUser, Target: userId, Payload: payload})
	}
	return delivered
}

func (g *Gateway) Shutdown() {
	g.hub.CloseAll()
}
