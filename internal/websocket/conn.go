package websocket

// Conn is the handle the registries hold for one live client connection.
// Send never blocks; it reports false when the payload was not queued.
// After Close returns, Send always reports false.
type Conn interface {
	ID() string
	Send(payload []byte) bool
	Close()
}
