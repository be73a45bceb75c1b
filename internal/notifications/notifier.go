// Package notifications relays committed events to websocket clients through
// redis pub/sub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"kinship/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	userChannelPrefix = "notifications:user:"
	convChannelPrefix = "chat:conv:"
)

// Notifier publishes realtime events into redis channels. A nil client turns
// every call into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events actually leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a payload to one user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.publish(ctx, UserChannel(userID), payload)
}

// PublishChatMessage sends a payload to every subscriber of a conversation.
func (n *Notifier) PublishChatMessage(ctx context.Context, conversationID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.publish(ctx, ConversationChannel(conversationID), payload)
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	ctx, span := observability.StartRedisSpan(ctx, "publish")
	span.SetAttributes(attribute.String("messaging.destination", channel))
	err := n.rdb.Publish(ctx, channel, payload).Err()
	observability.EndSpan(span, err)
	return err
}

// StartPatternSubscriber subscribes to user and conversation channels and
// calls onMessage for each message until ctx is done.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", convChannelPrefix+"*")
	// Wait for the subscription so events published right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				dispatch(msg.Channel, msg.Payload, onMessage)
			}
		}
	}()
	return nil
}

func dispatch(channel, payload string, onMessage func(channel, payload string)) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.Error("panic in realtime subscriber",
				slog.String("channel", channel),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	onMessage(channel, payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ConversationChannel derives the Redis channel name for a conversation.
func ConversationChannel(conversationID uint) string {
	return convChannelPrefix + strconv.FormatUint(uint64(conversationID), 10)
}

// ParseChannel splits a channel name into its kind ("user" or "conversation")
// and id.
func ParseChannel(channel string) (kind string, id uint, ok bool) {
	var raw string
	switch {
	case strings.HasPrefix(channel, userChannelPrefix):
		kind, raw = "user", strings.TrimPrefix(channel, userChannelPrefix)
	case strings.HasPrefix(channel, convChannelPrefix):
		kind, raw = "conversation", strings.TrimPrefix(channel, convChannelPrefix)
	default:
		return "", 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return "", 0, false
	}
	return kind, uint(v), true
}
