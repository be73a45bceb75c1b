package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"kinship/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// EventMemberLeft is published on a conversation channel when a member
// leaves; the hub stops relaying that conversation to the user.
const EventMemberLeft = "member_left"

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserLimit   = errors.New("user connection limit reached")
	ErrHubShutdown = errors.New("hub is shutting down")
)

// Hub routes user and conversation events to the websocket clients that
// should see them. A client receives its user's events plus those of every
// conversation it is subscribed to.
type Hub struct {
	mu    sync.RWMutex
	users map[uint]map[*Client]struct{}
	convs map[uint]map[*Client]struct{}
	subs  map[*Client]map[uint]struct{}
	total int
	done  bool

	log *observability.WSLogger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	h := &Hub{
		users: make(map[uint]map[*Client]struct{}),
		convs: make(map[uint]map[*Client]struct{}),
		subs:  make(map[*Client]map[uint]struct{}),
	}
	h.log = observability.NewWSLogger(h.Name())
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "realtime hub" }

// Register adds a connection for userID subscribed to convIDs.
func (h *Hub) Register(userID uint, conn *websocket.Conn, convIDs []uint) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		return nil, ErrHubShutdown
	}
	if h.total >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.users[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.users[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserLimit
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.subs[client] = make(map[uint]struct{}, len(convIDs))
	for _, id := range convIDs {
		h.subscribeLocked(client, id)
	}
	h.total++
	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), userID)
	return client, nil
}

// Subscribe adds one more conversation to a registered client, for example a
// conversation created after the client connected.
func (h *Hub) Subscribe(c *Client, convID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; ok {
		h.subscribeLocked(c, convID)
	}
}

func (h *Hub) subscribeLocked(c *Client, convID uint) {
	if convID == 0 {
		return
	}
	m, ok := h.convs[convID]
	if !ok {
		m = make(map[*Client]struct{})
		h.convs[convID] = m
	}
	m[c] = struct{}{}
	h.subs[c][convID] = struct{}{}
}

// Unsubscribe removes every connection of userID from convID, for example
// after the user left the group.
func (h *Hub) Unsubscribe(userID, convID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.convs[convID]
	for c := range h.users[userID] {
		delete(m, c)
		if subs := h.subs[c]; subs != nil {
			delete(subs, convID)
		}
	}
	if m != nil && len(m) == 0 {
		delete(h.convs, convID)
	}
}

// UnregisterClient drops the client from every index and closes its queue.
func (h *Hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	convIDs, ok := h.subs[c]
	if !ok {
		return
	}
	for id := range convIDs {
		if m := h.convs[id]; m != nil {
			delete(m, c)
			if len(m) == 0 {
				delete(h.convs, id)
			}
		}
	}
	delete(h.subs, c)
	if m := h.users[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.users, c.UserID)
		}
	}
	h.total--
	observability.WebSocketConnectionsTotal.Dec()
	close(c.Send)
}

// DeliverUser sends payload to every connection of userID.
func (h *Hub) DeliverUser(userID uint, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(h.users[userID], payload, "user")
}

// DeliverConversation sends payload to every client subscribed to convID.
func (h *Hub) DeliverConversation(convID uint, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(h.convs[convID], payload, "conversation")
}

func (h *Hub) deliverLocked(clients map[*Client]struct{}, payload, kind string) {
	if len(clients) == 0 {
		return
	}
	data := []byte(payload)
	for c := range clients {
		c.TrySend(data)
	}
	observability.WebSocketEventsTotal.WithLabelValues(kind).Add(float64(len(clients)))
}

// Route delivers a pub/sub message according to its channel name.
func (h *Hub) Route(channel, payload string) {
	kind, id, ok := ParseChannel(channel)
	if !ok {
		observability.GlobalLogger.Warn("unroutable realtime channel", slog.String("channel", channel))
		return
	}
	if kind == "user" {
		h.DeliverUser(id, payload)
		return
	}
	// The leaver is dropped before delivery so only remaining members see it.
	if userID, ok := memberLeft(payload); ok {
		h.Unsubscribe(userID, id)
	}
	h.DeliverConversation(id, payload)
}

// memberLeft extracts the user id from a member_left event.
func memberLeft(payload string) (uint, bool) {
	if !strings.Contains(payload, `"`+EventMemberLeft+`"`) {
		return 0, false
	}
	var ev struct {
		Type    string `json:"type"`
		Payload struct {
			UserID uint `json:"user_id"`
		} `json:"payload"`
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Type != EventMemberLeft || ev.Payload.UserID == 0 {
		return 0, false
	}
	return ev.Payload.UserID, true
}

// StartWiring feeds everything the notifier receives into the hub.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, h.Route)
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Shutdown closes every connection with a going-away frame. Register fails
// afterwards.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.done = true
	clients := make([]*Client, 0, len(h.subs))
	for c := range h.subs {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.Conn != nil {
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
			_ = c.Conn.Close()
		}
		h.UnregisterClient(c)
	}
	return nil
}
