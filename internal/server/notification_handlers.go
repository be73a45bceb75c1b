package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications
// @Summary Notification feed
// @Description Latest follow, like and comment notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Notification
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	list, err := s.notificationService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

// GetUnreadCount handles GET /api/notifications/unread-count
// @Summary Unread counters
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UnreadCounts
// @Router /notifications/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	counts, err := s.notificationService.UnreadCounts(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(counts)
}

// MarkNotificationRead handles PATCH /api/notifications/:id
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notificationService.MarkRead(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Marked as read"})
}

// MarkAllNotificationsRead handles PATCH /api/notifications
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "All notifications marked as read",
		"updated": n,
	})
}

// Search handles GET /api/search?q=
// @Summary Search users and posts
// @Tags search
// @Produce json
// @Security BearerAuth
// @Param q query string true "Term (at least 2 characters)"
// @Success 200 {object} service.SearchResult
// @Failure 400 {object} models.ErrorResponse
// @Router /search [get]
func (s *Server) Search(c *fiber.Ctx) error {
	res, err := s.searchService.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(res)
}
