package websocket

import (
	"encoding/json"
	"sync"
	"testing"

	"storefront-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLocal struct {
	mu    sync.Mutex
	calls []string
}

func (l *recordingLocal) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *recordingLocal) DeliverRoom(roomId string, payload []byte) int {
	l.record("room:" + roomId + ":" + string(payload))
	return 1
}

func (l *recordingLocal) DeliverAll(payload []byte) int {
	l.record("all:" + string(payload))
	return 1
}

func (l *recordingLocal) DeliverUser(userId string, payload []byte) bool {
	l.record("user:" + userId + ":" + string(payload))
	return true
}

func encodeRelay(t *testing.T, evt RelayEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return raw
}

func TestRedisRelay_HandleDispatchesPeerEvents(t *testing.T) {
	relay := NewRedisRelay(nil, logger.NewNopLogger())
	local := &recordingLocal{}

	relay.handle(encodeRelay(t, RelayEvent{Origin: "peer", Kind: RelayRoom, Target: "1_2", Payload: json.RawMessage(`{"n":1}`)}), local)
	relay.handle(encodeRelay(t, RelayEvent{Origin: "peer", Kind: RelayAll, Payload: json.RawMessage(`{"n":2}`)}), local)
	relay.handle(encodeRelay(t, RelayEvent{Origin: "peer", Kind: RelayUser, Target: "2", Payload: json.RawMessage(`{"n":3}`)}), local)

	assert.Equal(t, []string{
		`room:1_2:{"n":1}`,
		`all:{"n":2}`,
		`user:2:{"n":3}`,
	}, local.calls)
}

func TestRedisRelay_HandleIgnoresOwnOriginAndGarbage(t *testing.T) {
	relay := NewRedisRelay(nil, logger.NewNopLogger())
	local := &recordingLocal{}

	relay.handle(encodeRelay(t, RelayEvent{Origin: relay.Origin(), Kind: RelayAll, Payload: json.RawMessage(`{}`)}), local)
	relay.handle([]byte(`not json`), local)
	relay.handle(encodeRelay(t, RelayEvent{Origin: "peer", Kind: "presence", Payload: json.RawMessage(`{}`)}), local)

	assert.Empty(t, local.calls)
}

func TestRedisRelay_PublishStampsOriginAndNeverBlocks(t *testing.T) {
	relay := NewRedisRelay(nil, logger.NewNopLogger())

	for i := 0; i < relayBuffer+10; i++ {
		relay.Publish(RelayEvent{Kind: RelayAll, Payload: json.RawMessage(`{}`)})
	}

	require.Len(t, relay.out, relayBuffer)
	evt := <-relay.out
	assert.Equal(t, relay.Origin(), evt.Origin)
	assert.NotEqual(t, NewRedisRelay(nil, logger.NewNopLogger()).Origin(), relay.Origin())
}
