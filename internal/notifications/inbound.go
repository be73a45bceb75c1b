package notifications

import (
	"context"
	"encoding/json"
	"time"

	"kinship/internal/observability"
)

const inboundTimeout = 5 * time.Second

// ConversationRelay is the part of the messaging service the websocket
// endpoint drives.
type ConversationRelay interface {
	Typing(ctx context.Context, userID, convID uint, isTyping bool) error
	IsParticipant(ctx context.Context, convID, userID uint) (bool, error)
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	IsTyping       *bool  `json:"is_typing"`
}

type outboundFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// InboundHandler returns the frame handler for client messages:
//
//	{"type":"typing","conversation_id":1,"is_typing":true}
//	{"type":"subscribe","conversation_id":1}
//	{"type":"ping"}
func InboundHandler(h *Hub, relay ConversationRelay) func(*Client, []byte) {
	return func(c *Client, raw []byte) {
		var f inboundFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			reply(c, "error", map[string]string{"message": "invalid frame"})
			return
		}
		observability.WebSocketEventsTotal.WithLabelValues("inbound_" + f.Type).Inc()

		ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
		defer cancel()

		switch f.Type {
		case "ping":
			reply(c, "pong", nil)
		case "typing":
			isTyping := f.IsTyping == nil || *f.IsTyping
			if err := relay.Typing(ctx, c.UserID, f.ConversationID, isTyping); err != nil {
				reply(c, "error", map[string]any{"message": "typing rejected", "conversation_id": f.ConversationID})
			}
		case "subscribe":
			ok, err := relay.IsParticipant(ctx, f.ConversationID, c.UserID)
			if err != nil {
				h.log.LogError(ctx, c.UserID, err, "subscribe")
				return
			}
			if !ok {
				reply(c, "error", map[string]any{"message": "Not authorized", "conversation_id": f.ConversationID})
				return
			}
			h.Subscribe(c, f.ConversationID)
			reply(c, "subscribed", map[string]uint{"conversation_id": f.ConversationID})
		default:
			reply(c, "error", map[string]string{"message": "unknown frame type"})
		}
	}
}

func reply(c *Client, frameType string, payload any) {
	b, err := json.Marshal(outboundFrame{Type: frameType, Payload: payload})
	if err != nil {
		return
	}
	c.TrySend(b)
}
