package repository

import (
	"context"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment, notif *models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func withCommenter(db *gorm.DB) *gorm.DB {
	return db.
		Select("comments.*, profiles.username AS commenter_username, profiles.avatar_url AS commenter_avatar").
		Joins("LEFT JOIN profiles ON profiles.user_id = comments.user_id")
}

// Create inserts the comment and, when notif is non-nil, a notification
// pointing at it, then reloads the comment with its commenter.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment, notif *models.Notification) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Post", "User", "Parent").Create(comment).Error; err != nil {
			return err
		}
		if notif == nil {
			return nil
		}
		notif.CommentID = &comment.ID
		return tx.Omit("User", "Actor", "Post").Create(notif).Error
	})
	if err != nil {
		return err
	}
	return withCommenter(r.db.WithContext(ctx)).First(comment, comment.ID).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns a flat list, newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := withCommenter(readDB(r.db).WithContext(ctx)).
		Where("comments.post_id = ?", postID).
		Order("comments.created_at DESC, comments.id DESC").
		Find(&comments).Error
	return comments, err
}

// Delete drops the comment's notifications first, detaches replies and then
// removes the comment, all in one transaction.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).Where("parent_comment_id = ?", id).Update("parent_comment_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
