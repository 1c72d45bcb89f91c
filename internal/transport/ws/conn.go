package ws

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// wsConn wraps a websocket connection behind the registry's Conn interface
// and serializes writes; relay broadcasts and the session's own replies
// would otherwise interleave on the wire.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// bearerToken extracts the handshake token: Authorization header first,
// query parameter as the fallback browsers need.
func bearerToken(c *websocket.Conn) string {
	auth := c.Headers("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return c.Query("token")
}
