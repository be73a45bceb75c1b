package server

import (
	"context"
	"log/slog"

	"kinship/internal/featureflags"
	"kinship/internal/middleware"
	"kinship/internal/models"
	"kinship/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade gates GET /api/ws: the realtime flag must be on for the
// caller, redis must be wired and the request must be an upgrade.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	userID := currentUserID(c)
	if s.hub == nil || !s.featureFlags.Enabled(featureflags.RealtimePush, userID) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Realtime push is unavailable; poll the REST endpoints instead",
		})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// Subscriptions are resolved before the upgrade so a failure is still an HTTP error.
	convs, err := s.conversationService.ListConversations(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	convIDs := make([]uint, 0, len(convs))
	for _, conv := range convs {
		convIDs = append(convIDs, conv.ID)
	}
	c.Locals("convIDs", convIDs)
	return c.Next()
}

// WebsocketHandler relays the caller's notifications and conversation events
// and accepts typing and subscribe frames.
// @Summary Realtime push
// @Description Websocket upgrade; pass the access token as ?token=
// @Tags realtime
// @Param token query string true "Access token"
// @Success 101
// @Failure 503 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		convIDs, _ := conn.Locals("convIDs").([]uint)
		ctx := context.WithValue(context.Background(), middleware.UserIDKey, userID)

		client, err := s.hub.Register(userID, conn, convIDs)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "websocket register rejected", slog.String("error", err.Error()))
			_ = conn.WriteJSON(fiber.Map{"type": "error", "payload": fiber.Map{"message": err.Error()}})
			_ = conn.Close()
			return
		}
		client.IncomingHandler = notifications.InboundHandler(s.hub, s.conversationService)

		go client.WritePump()
		client.ReadPump()
	})
}
