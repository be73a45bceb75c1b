package service

import (
	"context"

	"kinship/internal/cache"
	"kinship/internal/models"
	"kinship/internal/repository"
)

const maxPostContentLen = 10000

type PostService struct {
	postRepo repository.PostRepository
}

// CreatePostInput is a new post, an image post or a share.
type CreatePostInput struct {
	UserID       uint    `json:"-"`
	Content      *string `json:"content"`
	ImageURL     *string `json:"image_url"`
	SharedPostID *uint   `json:"shared_post_id"`
}

// UpdatePostInput edits the fields that are non-nil.
type UpdatePostInput struct {
	UserID   uint    `json:"-"`
	PostID   uint    `json:"-"`
	Content  *string `json:"content"`
	ImageURL *string `json:"image_url"`
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := trimmed(in.Content)
	image := trimmed(in.ImageURL)
	if in.SharedPostID != nil && *in.SharedPostID == 0 {
		in.SharedPostID = nil
	}

	if content == nil && image == nil && in.SharedPostID == nil {
		return nil, models.NewValidationError("Post must have content, an image, or be a share")
	}
	if content != nil && len([]rune(*content)) > maxPostContentLen {
		return nil, models.NewValidationError("Post too long (max 10000 characters)")
	}
	if in.SharedPostID != nil {
		ok, err := s.postRepo.Exists(ctx, *in.SharedPostID)
		if err != nil {
			return nil, internal(err)
		}
		if !ok {
			return nil, models.NewNotFoundError("Shared post", nil)
		}
	}

	post := &models.Post{
		UserID:       in.UserID,
		Content:      content,
		ImageURL:     image,
		SharedPostID: in.SharedPostID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, internal(err)
	}
	cache.InvalidateStats(ctx, in.UserID)

	return s.GetPost(ctx, post.ID, in.UserID)
}

// Feed returns the viewer's and followed authors' posts, newest first.
func (s *PostService) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	posts, err := s.postRepo.Feed(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, internal(err)
	}
	return nonNilPosts(posts), nil
}

func (s *PostService) ListByUser(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Post, error) {
	posts, err := s.postRepo.ListByUser(ctx, authorID, viewerID, limit, offset)
	if err != nil {
		return nil, internal(err)
	}
	return nonNilPosts(posts), nil
}

func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, viewerID)
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}
	return post, nil
}

// UpdatePost lets the author change content and image. A blank value clears
// the field, but the post must keep something to show.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, notFoundOr(err, "Post")
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("Not authorized to edit this post")
	}
	if in.Content == nil && in.ImageURL == nil {
		return nil, models.NewValidationError("content or image_url required")
	}

	fields := map[string]any{}
	content, image := post.Content, post.ImageURL
	if in.Content != nil {
		content = trimmed(in.Content)
		if content != nil && len([]rune(*content)) > maxPostContentLen {
			return nil, models.NewValidationError("Post too long (max 10000 characters)")
		}
		fields["content"] = content
	}
	if in.ImageURL != nil {
		image = trimmed(in.ImageURL)
		fields["image_url"] = image
	}
	if content == nil && image == nil && post.SharedPostID == nil {
		return nil, models.NewValidationError("Post must have content, an image, or be a share")
	}

	if err := s.postRepo.Update(ctx, in.PostID, fields); err != nil {
		return nil, internal(err)
	}
	return s.GetPost(ctx, in.PostID, in.UserID)
}

// DeletePost removes an own post together with its comments, likes, saves
// and notifications.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	ownerID, err := s.postRepo.OwnerID(ctx, postID)
	if err != nil {
		return notFoundOr(err, "Post")
	}
	if ownerID != userID {
		return models.NewForbiddenError("Not authorized to delete this post")
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return notFoundOr(err, "Post")
	}
	cache.InvalidateStats(ctx, userID)
	return nil
}

func nonNilPosts(posts []*models.Post) []*models.Post {
	if posts == nil {
		return []*models.Post{}
	}
	return posts
}
