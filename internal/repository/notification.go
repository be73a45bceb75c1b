package repository

import (
	"context"
	"time"

	"kinship/internal/models"

	"gorm.io/gorm"
)

// NotificationFeedLimit caps GET /notifications.
const NotificationFeedLimit = 50

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	ListForUser(ctx context.Context, userID uint) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint) (bool, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	UnreadCounts(ctx context.Context, userID uint) (models.UnreadCounts, error)
	PruneRead(ctx context.Context, olderThan time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// ListForUser returns the latest non-message notifications with actor details.
func (r *notificationRepository) ListForUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var out []models.Notification
	err := readDB(r.db).WithContext(ctx).
		Select("notifications.*, profiles.username AS actor_username, profiles.avatar_url AS actor_avatar").
		Joins("LEFT JOIN profiles ON profiles.user_id = notifications.actor_id").
		Where("notifications.user_id = ? AND notifications.action_type <> ?", userID, models.NotificationMessage).
		Order("notifications.created_at DESC, notifications.id DESC").
		Limit(NotificationFeedLimit).
		Find(&out).Error
	return out, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UnreadCounts reports unread non-message notifications and unread messages
// sent to the user by others.
func (r *notificationRepository) UnreadCounts(ctx context.Context, userID uint) (models.UnreadCounts, error) {
	var counts models.UnreadCounts
	db := readDB(r.db).WithContext(ctx)
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ? AND action_type <> ?", userID, false, models.NotificationMessage).
		Count(&counts.Notifications).Error
	if err != nil {
		return counts, err
	}
	err = db.Model(&models.Message{}).
		Joins("JOIN participants ON participants.conversation_id = messages.conversation_id AND participants.user_id = ?", userID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&counts.Messages).Error
	return counts, err
}

// PruneRead deletes read notifications created before olderThan.
func (r *notificationRepository) PruneRead(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, olderThan).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
