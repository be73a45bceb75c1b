package models

import "time"

// Comment belongs to a post; ParentCommentID builds a reply tree of any depth.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	Content         string    `gorm:"type:text;not null" json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"-"`

	CommenterUsername *string `gorm:"->;-:migration" json:"commenter_username"`
	CommenterAvatar   *string `gorm:"->;-:migration" json:"commenter_avatar"`

	Replies []*Comment `gorm:"-" json:"replies,omitempty"`

	Post   Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User   User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Parent *Comment `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName specifies the table name for GORM
func (Comment) TableName() string {
	return "comments"
}

// BuildCommentTree nests a flat comment list under their parents. Comments
// whose parent is missing from the list are treated as roots. Order within
// each level follows the input order.
func BuildCommentTree(flat []*Comment) []*Comment {
	byID := make(map[uint]*Comment, len(flat))
	for _, c := range flat {
		c.Replies = nil
		byID[c.ID] = c
	}
	roots := make([]*Comment, 0, len(flat))
	for _, c := range flat {
		if c.ParentCommentID != nil {
			if parent, ok := byID[*c.ParentCommentID]; ok && parent != c {
				parent.Replies = append(parent.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}
