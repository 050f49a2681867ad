package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront-chat-be/internal/config"
	"storefront-chat-be/internal/dto"
	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/require"
)

var connSeq atomic.Int64

type fakeConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: fmt.Sprintf("conn-%d", connSeq.Add(1))}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, payload)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *fakeConn) events(t *testing.T, eventType string) []json.RawMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []json.RawMessage
	for _, raw := range c.frames {
		var f frame
		require.NoError(t, json.Unmarshal(raw, &f))
		if f.Type == eventType {
			out = append(out, f.Data)
		}
	}
	return out
}

func (c *fakeConn) snapshots(t *testing.T) [][]string {
	t.Helper()
	var out [][]string
	for _, data := range c.events(t, dto.EventOnlineUsers) {
		var ids []string
		require.NoError(t, json.Unmarshal(data, &ids))
		out = append(out, ids)
	}
	return out
}

func (c *fakeConn) lastError(t *testing.T) dto.ErrorEvent {
	t.Helper()
	errs := c.events(t, dto.EventError)
	require.NotEmpty(t, errs, "expected an error event")
	var evt dto.ErrorEvent
	require.NoError(t, json.Unmarshal(errs[len(errs)-1], &evt))
	return evt
}

type fakeRelay struct {
	mu     sync.Mutex
	events []RelayEvent
}

func (r *fakeRelay) Publish(evt RelayEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *fakeRelay) published() []RelayEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RelayEvent(nil), r.events...)
}

type fakeAuth map[string]entity.Identity

func (a fakeAuth) Authenticate(token string) (entity.Identity, error) {
	identity, ok := a[token]
	if !ok {
		return entity.Identity{}, fmt.Errorf("unknown token %q", token)
	}
	return identity, nil
}

type fakeNames struct {
	mu   sync.Mutex
	seen map[string]string
}

func (n *fakeNames) Remember(identity entity.Identity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.seen == nil {
		n.seen = make(map[string]string)
	}
	n.seen[identity.UserId] = identity.Name()
}

type submitCall struct {
	sender entity.Identity
	req    dto.SendMessageRequest
}

type stubSubmitter struct {
	mu    sync.Mutex
	calls []submitCall
	err   error
	panic bool
}

func (s *stubSubmitter) Submit(_ context.Context, sender entity.Identity, req dto.SendMessageRequest) (*entity.Message, error) {
	if s.panic {
		panic("boom")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, submitCall{sender: sender, req: req})
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Message{Id: uint64(len(s.calls)), RoomId: req.RoomId, SenderId: sender.UserId, ReceiverId: req.ReceiverId, Text: req.Text, SentAt: time.Now()}, nil
}

func (s *stubSubmitter) recorded() []submitCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submitCall(nil), s.calls...)
}

func testChatConfig() config.ChatConfig {
	return config.ChatConfig{
		AllowedOrigins:    []string{"*"},
		Timezone:          "UTC",
		MaxMessageSize:    4096,
		SendBufferSize:    16,
		PongWait:          time.Minute,
		WriteWait:         time.Second,
		RateLimit:         1000,
		RateBurst:         1000,
		NotificationScope: config.NotifyAll,
		DisplayNameTTL:    time.Hour,
	}
}

type gatewayFixture struct {
	gw        *Gateway
	relay     *fakeRelay
	submitter *stubSubmitter
	names     *fakeNames
}

func newGatewayFixture(cfg config.ChatConfig) *gatewayFixture {
	log := logger.NewNopLogger()
	relay := &fakeRelay{}
	hub := NewHub(relay, log)
	f := &gatewayFixture{
		relay:     relay,
		submitter: &stubSubmitter{},
		names:     &fakeNames{},
	}
	auth := fakeAuth{
		"token-1": {UserId: "1", Username: "alice", DisplayName: "A"},
		"token-2": {UserId: "2", Username: "bob", DisplayName: "B"},
	}
	f.gw = NewGateway(GatewayDeps{
		Hub:      hub,
		Presence: NewPresenceRegistry(hub, log),
		Router:   NewRoomRouter(relay),
		Relay:    relay,
		Pipeline: f.submitter,
		Auth:     auth,
		Names:    f.names,
		Config:   cfg,
		Logger:   log,
	})
	return f
}

func envelope(eventType string, data interface{}) []byte {
	raw, err := json.Marshal(map[string]interface{}{"type": eventType, "data": data})
	if err != nil {
		panic(err)
	}
	return raw
}
