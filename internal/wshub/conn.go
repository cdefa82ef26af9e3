package wshub

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 10 * time.Second

// WSConn adapts a coder/websocket connection to Conn.
type WSConn struct {
	conn *websocket.Conn
}

// NewWSConn wraps c.
func NewWSConn(c *websocket.Conn) *WSConn {
	return &WSConn{conn: c}
}

// Ping blocks until the pong arrives. A reader must be running on the connection.
func (w *WSConn) Ping(ctx context.Context) error {
	return w.conn.Ping(ctx)
}

// Close runs the close handshake with StatusGoingAway.
func (w *WSConn) Close(reason string) error {
	return w.conn.Close(websocket.StatusGoingAway, reason)
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
// It returns when the channel is closed, ctx is done, or a write fails.
func (w *WSConn) WritePump(ctx context.Context, send <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := w.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
