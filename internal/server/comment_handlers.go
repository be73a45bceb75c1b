package server

import (
	"log/slog"

	"kinship/internal/featureflags"
	"kinship/internal/middleware"
	"kinship/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/comments/:postId
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body service.CreateCommentInput true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /comments/{postId} [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req service.CreateCommentInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.UserID = currentUserID(c)
	req.PostID = postID

	ctx := c.UserContext()
	comment, err := s.commentService.CreateComment(ctx, req)
	if err != nil {
		return respondServiceError(c, err)
	}

	// The response carries the commenter like the listing does.
	if author, err := s.userService.GetUser(ctx, req.UserID); err == nil && author.Profile != nil {
		comment.CommenterUsername = author.Profile.Username
		comment.CommenterAvatar = author.Profile.AvatarURL
	} else if err != nil {
		middleware.Logger.WarnContext(ctx, "load commenter failed", slog.String("error", err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /api/comments/:postId
// @Summary List comments
// @Description Newest first; tree=true nests replies under their parents
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param tree query bool false "Nest replies"
// @Success 200 {array} models.Comment
// @Router /comments/{postId} [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	tree := c.QueryBool("tree", false) &&
		s.featureFlags.Enabled(featureflags.CommentTrees, currentUserID(c))

	comments, err := s.commentService.ListComments(c.UserContext(), postID, tree)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comments)
}

// DeleteComment handles DELETE /api/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	err = s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
