package repository

import (
	"context"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error)
	Exists(ctx context.Context, id uint) (bool, error)
	OwnerID(ctx context.Context, id uint) (uint, error)
	Feed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error)
	ListByUser(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Post, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withPostDetails selects the read-time counters and viewer flags alongside
// posts.* and preloads the author and the shared post one level deep.
func withPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.
		Select(`posts.*,
	(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS like_count,
	(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count,
	EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked_by_user,
	EXISTS(SELECT 1 FROM saved_posts WHERE saved_posts.post_id = posts.id AND saved_posts.user_id = ?) AS saved_by_user,
	EXISTS(SELECT 1 FROM follows WHERE follows.follower_id = ? AND follows.following_id = posts.user_id) AS user_is_following`,
			viewerID, viewerID, viewerID).
		Preload("User.Profile").
		Preload("SharedPost.User.Profile")
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Omit("User", "SharedPost").Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	var post models.Post
	if err := withPostDetails(r.db.WithContext(ctx), viewerID).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// OwnerID returns gorm.ErrRecordNotFound for unknown posts.
func (r *postRepository) OwnerID(ctx context.Context, id uint) (uint, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&post, id).Error; err != nil {
		return 0, err
	}
	return post.UserID, nil
}

// Feed returns the viewer's own posts and posts by authors they follow, newest first.
func (r *postRepository) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []*models.Post
	err := withPostDetails(readDB(r.db).WithContext(ctx), viewerID).
		Where("posts.user_id = ? OR posts.user_id IN (SELECT following_id FROM follows WHERE follower_id = ?)", viewerID, viewerID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListByUser(ctx context.Context, authorID, viewerID uint, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)
	var posts []*models.Post
	err := withPostDetails(readDB(r.db).WithContext(ctx), viewerID).
		Where("posts.user_id = ?", authorID).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *postRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the post with everything that hangs off it in one
// transaction. Shares of the post keep existing with shared_post_id cleared.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("post_id = ? OR comment_id IN (?)", id, commentIDs).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.SavedPost{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("shared_post_id = ?", id).Update("shared_post_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
