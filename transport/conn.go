package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/supportmesh/core"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSConn adapts a gorilla websocket connection to core.Conn. Writes are
// serialized with a mutex because the routing engine and the ping loop send
// concurrently; gorilla connections allow only one writer at a time.
type WSConn struct {
	ws *websocket.Conn

	mu    sync.Mutex
	alive bool
}

// NewWSConn wraps an upgraded websocket connection and starts its keepalive
// ping loop.
func NewWSConn(ws *websocket.Conn) *WSConn {
	c := &WSConn{ws: ws, alive: true}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pingLoop()
	return c
}

// Send marshals v to JSON and writes it as one text frame. A failed write
// marks the connection dead; the read loop will observe the closed socket
// and run the disconnect path.
func (c *WSConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return websocket.ErrCloseSent
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(v); err != nil {
		c.alive = false
		return err
	}
	return nil
}

// Alive reports whether the connection accepts writes.
func (c *WSConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

// Close marks the connection dead and closes the underlying socket.
func (c *WSConn) Close() error {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
	return c.ws.Close()
}

// ReadMessage blocks for the next inbound frame payload.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *WSConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		if !c.alive {
			c.mu.Unlock()
			return
		}
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.ws.WriteMessage(websocket.PingMessage, nil)
		if err != nil {
			c.alive = false
		}
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

var _ core.Conn = (*WSConn)(nil)
