package server

import (
	"kinship/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description A post needs content, an image URL or a shared post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreatePostInput true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)

	post, err := s.postService.CreatePost(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed handles GET /api/posts
// @Summary Feed
// @Description Own and followed authors' posts, newest first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPageSize)

	posts, err := s.postService.Feed(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /api/posts/user/:userId
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPageSize)

	posts, err := s.postService.ListByUser(c.UserContext(), authorID, currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.UpdatePostInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.PostID = id

	post, err := s.postService.UpdatePost(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

type postRef struct {
	PostID uint `json:"post_id"`
}

// LikePost handles POST /api/likes
// @Summary Like a post
// @Tags likes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{post_id=int} true "Post"
// @Success 201 {object} models.Like
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /likes [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	var req postRef
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	like, err := s.interactionService.Like(c.UserContext(), currentUserID(c), req.PostID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// UnlikePost handles DELETE /api/likes/:postId
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.interactionService.Unlike(c.UserContext(), currentUserID(c), postID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unliked"})
}

// SavePost handles POST /api/saves
func (s *Server) SavePost(c *fiber.Ctx) error {
	var req postRef
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.interactionService.Save(c.UserContext(), currentUserID(c), req.PostID); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Post saved"})
}

// UnsavePost handles DELETE /api/saves/:postId
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}

	if err := s.interactionService.Unsave(c.UserContext(), currentUserID(c), postID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post unsaved"})
}

// GetSavedPosts handles GET /api/saves
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	saved, err := s.interactionService.ListSaved(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(saved)
}
