package hub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"nhooyr.io/websocket"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
	// Control messages are tiny; anything larger is not from the page.
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one connected browser. Everything it receives goes through send,
// drained by writePump.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:   clientID(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  hub,
	}
}

// readPump decodes control messages until the connection drops.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && ctx.Err() == nil {
				slog.Debug("client read error", "id", c.id, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			c.hub.SendError(c, "binary messages are not supported")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("client sent invalid message", "id", c.id, "error", err)
			c.hub.SendError(c, "invalid message format")
			continue
		}

		switch msg.Type {
		case ControlPlay, ControlPause, ControlResume, ControlStop, ControlReset:
			slog.Debug("client control", "id", c.id, "type", msg.Type)
			c.hub.handleControl(msg)
		default:
			c.hub.SendError(c, "unknown message type: "+msg.Type)
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case <-ticker.C:
			if err := c.withTimeout(ctx, func(wctx context.Context) error {
				return c.conn.Ping(wctx)
			}); err != nil {
				slog.Debug("client ping failed", "id", c.id, "error", err)
				return
			}
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.withTimeout(ctx, func(wctx context.Context) error {
				return c.conn.Write(wctx, websocket.MessageText, msg)
			}); err != nil {
				slog.Debug("client write failed", "id", c.id, "error", err)
				return
			}
		}
	}
}

// withTimeout bounds one write so a stalled browser cannot hold the pump.
func (c *Client) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return fn(wctx)
}

func clientID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("150405.000000")
	}
	return hex.EncodeToString(b)
}
