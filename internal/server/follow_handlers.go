package server

import (
	"github.com/gofiber/fiber/v2"
)

// Follow handles POST /api/follows
// @Summary Follow a user
// @Tags follows
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{following_id=int} true "Target"
// @Success 201 {object} models.FollowCounts
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /follows [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	var req struct {
		FollowingID uint `json:"following_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	counts, err := s.followService.Follow(c.UserContext(), currentUserID(c), req.FollowingID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(counts)
}

// Unfollow handles DELETE /api/follows/:followingId
func (s *Server) Unfollow(c *fiber.Ctx) error {
	followingID, err := s.parseID(c, "followingId")
	if err != nil {
		return nil
	}

	counts, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), followingID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(counts)
}

// IsFollowing handles GET /api/follows/me/following/:userId
func (s *Server) IsFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	ok, err := s.followService.IsFollowing(c.UserContext(), currentUserID(c), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"isFollowing": ok})
}

// GetFriends handles GET /api/friends
// @Summary Mutual follows
// @Tags follows
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSummary
// @Router /friends [get]
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.followService.Friends(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(friends)
}
