package notifications

import (
	"context"
	"time"

	"kinship/internal/observability"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 256

	// Inbound frames per second and burst per connection.
	inboundRate  = 2
	inboundBurst = 5
)

var droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// Client is one websocket connection of a user.
type Client struct {
	hub *Hub

	// Conn is nil in tests that only exercise routing.
	Conn *websocket.Conn

	// Send is the buffered outbound queue drained by WritePump.
	Send chan []byte

	UserID uint

	// IncomingHandler is called for every inbound frame that passes the limiter.
	IncomingHandler func(*Client, []byte)

	limiter *rate.Limiter
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:     hub,
		Conn:    conn,
		UserID:  userID,
		Send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
	}
}

// Allow reports whether another inbound frame may be processed now.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

// ReadPump reads inbound frames until the connection fails, then unregisters
// the client.
func (c *Client) ReadPump() {
	reason := "closed"
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
		c.hub.log.LogDisconnect(context.Background(), c.UserID, reason)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.LogError(context.Background(), c.UserID, err, "read")
				reason = "error"
			}
			return
		}
		if !c.Allow() {
			observability.WebSocketEventsTotal.WithLabelValues("rate_limited").Inc()
			continue
		}
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, message)
		}
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. A full buffer drops it and tries
// to tell the client so it can re-fetch.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
		return
	default:
	}

	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	select {
	case c.Send <- droppedNotice:
	default:
	}
}
