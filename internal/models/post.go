package models

import "time"

// Post represents a post. A post with SharedPostID set is a share of another post.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content      *string   `gorm:"type:text" json:"content"`
	ImageURL     *string   `gorm:"type:text" json:"image_url"`
	SharedPostID *uint     `gorm:"index" json:"shared_post_id"`
	SharedPost   *Post     `gorm:"foreignKey:SharedPostID;constraint:OnDelete:SET NULL" json:"shared_post,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Computed per request, never persisted.
	LikeCount       int64 `gorm:"->;-:migration" json:"like_count"`
	CommentCount    int64 `gorm:"->;-:migration" json:"comment_count"`
	LikedByUser     bool  `gorm:"->;-:migration" json:"liked_by_user"`
	SavedByUser     bool  `gorm:"->;-:migration" json:"saved_by_user"`
	UserIsFollowing bool  `gorm:"->;-:migration" json:"user_is_following"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// Like marks a post as liked by a user; the row itself is the state.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}

// SavedPost is a private bookmark.
type SavedPost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_saved_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_saved_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (SavedPost) TableName() string {
	return "saved_posts"
}

// PostSummary is the flat post row used by saved-post and search listings.
type PostSummary struct {
	ID             uint       `json:"id"`
	Content        *string    `json:"content"`
	ImageURL       *string    `json:"image_url"`
	CreatedAt      time.Time  `json:"created_at"`
	SavedAt        *time.Time `json:"saved_at,omitempty"`
	UserID         uint       `json:"user_id"`
	AuthorUsername *string    `json:"author_username"`
	AuthorAvatar   *string    `json:"author_avatar"`
}
