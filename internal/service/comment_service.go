package service

import (
	"context"

	"kinship/internal/models"
	"kinship/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	publisher   EventPublisher
}

type CreateCommentInput struct {
	UserID          uint   `json:"-"`
	PostID          uint   `json:"-"`
	Content         string `json:"content"`
	ParentCommentID *uint  `json:"parent_comment_id"`
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	publisher EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisher,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	content := models.NullableString(in.Content)
	if content == nil {
		return nil, models.NewValidationError("Comment content is required")
	}
	if len([]rune(*content)) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	ownerID, err := s.postRepo.OwnerID(ctx, in.PostID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewValidationError("Post not found")
		}
		return nil, internal(err)
	}

	if in.ParentCommentID != nil && *in.ParentCommentID == 0 {
		in.ParentCommentID = nil
	}
	if in.ParentCommentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentCommentID)
		if err != nil && !isNotFound(err) {
			return nil, internal(err)
		}
		if parent == nil || parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment not found")
		}
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		UserID:          in.UserID,
		ParentCommentID: in.ParentCommentID,
		Content:         *content,
	}
	notif := newNotification(ownerID, in.UserID, models.NotificationComment)
	if notif != nil {
		notif.PostID = &in.PostID
	}
	if err := s.commentRepo.Create(ctx, comment, notif); err != nil {
		return nil, internal(err)
	}
	notifyCreated(ctx, s.publisher, notif)
	return comment, nil
}

// ListComments returns the post's comments newest first, or nested under
// their parents when tree is set.
func (s *CommentService) ListComments(ctx context.Context, postID uint, tree bool) ([]*models.Comment, error) {
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, internal(err)
	}
	if comments == nil {
		return []*models.Comment{}, nil
	}
	if tree {
		return models.BuildCommentTree(comments), nil
	}
	return comments, nil
}

// DeleteComment allows the comment author and the post owner.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return notFoundOr(err, "Comment")
	}

	if comment.UserID != in.UserID {
		postOwner, err := s.postRepo.OwnerID(ctx, comment.PostID)
		if err != nil && !isNotFound(err) {
			return internal(err)
		}
		if postOwner != in.UserID {
			return models.NewForbiddenError("Not authorized to delete this comment")
		}
	}

	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return notFoundOr(err, "Comment")
	}
	return nil
}
