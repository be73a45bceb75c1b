package server

import (
	"kinship/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profile
// @Summary Own profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ProfileView
// @Router /profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	view, err := s.profileService.GetOwn(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// GetPublicProfile handles GET /api/profile/:id
// @Summary Public profile
// @Tags profile
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{id} [get]
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	view, err := s.profileService.GetPublic(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(view)
}

// UpdateMyProfile handles PUT /api/profile
// @Summary Update own profile
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProfileInput true "Profile fields"
// @Success 200 {object} models.ProfileUser
// @Failure 400 {object} models.ErrorResponse
// @Router /profile [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req service.UpdateProfileInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)

	updated, err := s.profileService.Update(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(updated)
}

// DiscoverUsers handles GET /api/users
// @Summary Suggested users
// @Description Users the caller does not follow yet, with mutual follower hints
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SuggestedUser
// @Router /users [get]
func (s *Server) DiscoverUsers(c *fiber.Ctx) error {
	users, err := s.userService.Discover(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(user)
}
