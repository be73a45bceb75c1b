package models

import "time"

// NotificationAction is the kind of activity a notification reports.
type NotificationAction string

const (
	NotificationFollow  NotificationAction = "follow"
	NotificationLike    NotificationAction = "like"
	NotificationComment NotificationAction = "comment"
	NotificationMessage NotificationAction = "message"
)

// Notification is a denormalized activity record for UserID caused by ActorID.
type Notification struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	UserID         uint               `gorm:"not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	ActorID        uint               `gorm:"not null" json:"actor_id"`
	ActionType     NotificationAction `gorm:"type:varchar(20);not null" json:"action_type"`
	PostID         *uint              `gorm:"index" json:"post_id"`
	CommentID      *uint              `gorm:"index" json:"comment_id"`
	ConversationID *uint              `json:"conversation_id"`
	IsRead         bool               `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time          `gorm:"index:idx_notifications_user_created,priority:2" json:"created_at"`

	ActorUsername *string `gorm:"->;-:migration" json:"actor_username"`
	ActorAvatar   *string `gorm:"->;-:migration" json:"actor_avatar"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Actor User  `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"-"`
	Post  *Post `gorm:"foreignKey:PostID" json:"-"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// UnreadCounts summarizes what the caller has not seen yet.
type UnreadCounts struct {
	Notifications int64 `json:"notifications"`
	Messages      int64 `json:"messages"`
}
