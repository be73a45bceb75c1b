// Package service provides application business logic (accounts, posts, follows, messaging, etc.).
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"kinship/internal/models"
	"kinship/internal/observability"
	"kinship/internal/repository"

	"gorm.io/gorm"
)

// Realtime event types published after a write commits.
const (
	EventNotificationCreated = "notification_created"
	EventMessageReceived     = "message_received"
	EventMessageDeleted      = "message_deleted"
	EventConversationUpdated = "conversation_updated"
	EventTyping              = "typing"
	EventMemberLeft          = "member_left"
)

// EventPublisher fans committed events out to realtime subscribers.
// notifications.Notifier satisfies it.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
	PublishChatMessage(ctx context.Context, conversationID uint, payload string) error
}

// Event is the envelope pushed to websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func encodeEvent(eventType string, payload any) (string, bool) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		observability.GlobalLogger.Error("failed to marshal event",
			slog.String("event_type", eventType), slog.String("error", err.Error()))
		return "", false
	}
	return string(b), true
}

// publishToUser is best effort: the write already committed and clients can
// always fall back to polling.
func publishToUser(ctx context.Context, pub EventPublisher, userID uint, eventType string, payload any) {
	if pub == nil {
		return
	}
	msg, ok := encodeEvent(eventType, payload)
	if !ok {
		return
	}
	if err := pub.PublishUser(ctx, userID, msg); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "publish user event failed",
			slog.String("event_type", eventType),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}
}

func publishToConversation(ctx context.Context, pub EventPublisher, convID uint, eventType string, payload any) {
	if pub == nil {
		return
	}
	msg, ok := encodeEvent(eventType, payload)
	if !ok {
		return
	}
	if err := pub.PublishChatMessage(ctx, convID, msg); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "publish conversation event failed",
			slog.String("event_type", eventType),
			slog.Uint64("conversation_id", uint64(convID)),
			slog.String("error", err.Error()))
	}
}

// notifyCreated records metrics and publishes one notification to its recipient.
func notifyCreated(ctx context.Context, pub EventPublisher, n *models.Notification) {
	if n == nil || n.ID == 0 {
		return
	}
	observability.NotificationsCreated.WithLabelValues(string(n.ActionType)).Inc()
	publishToUser(ctx, pub, n.UserID, EventNotificationCreated, n)
}

// newNotification builds a notification unless the actor is the recipient.
func newNotification(recipient, actor uint, action models.NotificationAction) *models.Notification {
	if recipient == 0 || recipient == actor {
		return nil
	}
	return &models.Notification{UserID: recipient, ActorID: actor, ActionType: action}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// notFoundOr maps a missing row to a NOT_FOUND AppError carrying msg and
// wraps everything else as internal.
func notFoundOr(err error, msg string) error {
	if isNotFound(err) {
		return models.NewNotFoundError(msg, nil)
	}
	return internal(err)
}

// internal passes AppErrors through and wraps anything else.
func internal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}
