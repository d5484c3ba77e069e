package relay

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn adapts a gorilla connection to registry.Conn. The mutex serializes
// writes: gorilla allows at most one concurrent writer per connection, and
// the registry, the router and the reply consumer all write.
type wsConn struct {
	mu sync.Mutex
	c  *websocket.Conn
}

func newWSConn(c *websocket.Conn) *wsConn {
	return &wsConn{c: c}
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteJSON(v)
}

func (w *wsConn) WriteText(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteMessage(websocket.TextMessage, []byte(s))
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
