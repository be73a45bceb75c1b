package repository

import (
	"context"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines persistence operations for the follow graph.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow, notif *models.Notification) error
	Delete(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	Friends(ctx context.Context, userID uint) ([]models.UserSummary, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create stores the edge and, when notif is non-nil, its notification in the same transaction.
func (r *followRepository) Create(ctx context.Context, follow *models.Follow, notif *models.Notification) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Follower", "Following").Create(follow).Error; err != nil {
			return err
		}
		if notif == nil {
			return nil
		}
		return tx.Omit("User", "Actor", "Post").Create(notif).Error
	})
	return writeErr(err)
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected > 0, res.Error
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var n int64
	err := readDB(r.db).WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&n).Error
	return n > 0, err
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("following_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&n).Error
	return n, err
}

// Friends returns users with a follow edge in both directions.
func (r *followRepository) Friends(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	var out []models.UserSummary
	err := readDB(r.db).WithContext(ctx).
		Table("follows AS f").
		Select("u.id, u.email, p.username, p.avatar_url").
		Joins("JOIN follows back ON back.follower_id = f.following_id AND back.following_id = f.follower_id").
		Joins("JOIN users u ON u.id = f.following_id").
		Joins("LEFT JOIN profiles p ON p.user_id = u.id").
		Where("f.follower_id = ?", userID).
		Order("p.username ASC, u.id ASC").
		Scan(&out).Error
	return out, err
}
