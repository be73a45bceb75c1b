package repository

import (
	"context"

	"kinship/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository covers likes and saves.
type InteractionRepository interface {
	Like(ctx context.Context, like *models.Like, notif *models.Notification) error
	Unlike(ctx context.Context, userID, postID uint) (bool, error)
	Save(ctx context.Context, userID, postID uint) error
	Unsave(ctx context.Context, userID, postID uint) (bool, error)
	ListSaved(ctx context.Context, userID uint) ([]models.PostSummary, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository returns a new InteractionRepository implementation.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

// Like inserts the like and its notification atomically. A repeated like
// fails with ErrDuplicate.
func (r *interactionRepository) Like(ctx context.Context, like *models.Like, notif *models.Notification) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Post").Create(like).Error; err != nil {
			return err
		}
		if notif == nil {
			return nil
		}
		return tx.Omit("User", "Actor", "Post").Create(notif).Error
	})
	return writeErr(err)
}

func (r *interactionRepository) Unlike(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	return res.RowsAffected > 0, res.Error
}

// Save is idempotent.
func (r *interactionRepository) Save(ctx context.Context, userID, postID uint) error {
	saved := models.SavedPost{UserID: userID, PostID: postID}
	return r.db.WithContext(ctx).
		Omit("User", "Post").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&saved).Error
}

func (r *interactionRepository) Unsave(ctx context.Context, userID, postID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{})
	return res.RowsAffected > 0, res.Error
}

// ListSaved returns the user's saved posts, most recently saved first.
func (r *interactionRepository) ListSaved(ctx context.Context, userID uint) ([]models.PostSummary, error) {
	var out []models.PostSummary
	err := readDB(r.db).WithContext(ctx).
		Table("saved_posts AS sp").
		Select(`p.id, p.content, p.image_url, p.created_at, sp.created_at AS saved_at,
	u.id AS user_id, pr.username AS author_username, pr.avatar_url AS author_avatar`).
		Joins("JOIN posts p ON p.id = sp.post_id").
		Joins("JOIN users u ON u.id = p.user_id").
		Joins("LEFT JOIN profiles pr ON pr.user_id = u.id").
		Where("sp.user_id = ?", userID).
		Order("sp.created_at DESC, sp.id DESC").
		Scan(&out).Error
	return out, err
}
