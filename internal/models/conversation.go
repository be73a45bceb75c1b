package models

import (
	"strings"
	"time"
)

// Conversation is either a 1:1 thread or a named group thread.
type Conversation struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	IsGroup          bool      `gorm:"not null;default:false" json:"is_group"`
	GroupName        *string   `gorm:"type:varchar(100)" json:"group_name"`
	GroupAvatarURL   *string   `gorm:"type:text" json:"group_avatar_url"`
	GroupDescription *string   `gorm:"type:text" json:"group_description"`
	CreatedBy        *uint     `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`

	Participants []Participant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Creator      *User         `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// Participant is a membership edge between a user and a conversation.
type Participant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;uniqueIndex:idx_participant_pair" json:"conversation_id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_participant_pair;index" json:"user_id"`
	CreatedAt      time.Time `json:"joined_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Participant) TableName() string {
	return "participants"
}

// MessageKind separates human-authored content from server announcements.
type MessageKind string

const (
	// MessageKindUser is content written by the sender.
	MessageKindUser MessageKind = "user"
	// MessageKindSystem announces a membership change ("X added Y", "X left the conversation").
	MessageKindSystem MessageKind = "system"
)

// Message belongs to a conversation. ParentMessageID quotes another message
// of the same conversation.
type Message struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ConversationID  uint        `gorm:"not null;index:idx_messages_conv_created,priority:1" json:"conversation_id"`
	SenderID        uint        `gorm:"not null;index" json:"sender_id"`
	Content         string      `gorm:"type:text;not null" json:"content"`
	IsRead          bool        `gorm:"not null;default:false" json:"is_read"`
	ParentMessageID *uint       `gorm:"index" json:"parent_message_id"`
	Kind            MessageKind `gorm:"type:varchar(16);not null;default:'user'" json:"kind"`
	CreatedAt       time.Time   `gorm:"index:idx_messages_conv_created,priority:2" json:"created_at"`

	Conversation Conversation `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
	Sender       User         `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	Parent       *Message     `gorm:"foreignKey:ParentMessageID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// IsSystem reports whether the message is a server announcement.
func (m *Message) IsSystem() bool {
	return m.Kind == MessageKindSystem
}

// MessageView is a message joined with its sender and one level of quoted parent.
type MessageView struct {
	ID                   uint        `json:"id"`
	ConversationID       uint        `json:"conversation_id"`
	Content              string      `json:"content"`
	Kind                 MessageKind `json:"kind"`
	IsSystemMessage      bool        `gorm:"-" json:"is_system_message"`
	IsRead               bool        `json:"is_read"`
	CreatedAt            time.Time   `json:"created_at"`
	SenderID             uint        `json:"sender_id"`
	SenderUsername       *string     `json:"sender_username"`
	SenderAvatar         *string     `json:"sender_avatar"`
	ParentMessageID      *uint       `json:"parent_message_id"`
	ParentContent        *string     `json:"parent_content"`
	ParentSenderID       *uint       `json:"parent_sender_id"`
	ParentSenderUsername *string     `json:"parent_sender_username"`
}

// ConversationSummary is one row of the caller's inbox.
type ConversationSummary struct {
	ID             uint       `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	IsGroup        bool       `json:"is_group"`
	GroupName      *string    `json:"group_name"`
	GroupAvatarURL *string    `json:"group_avatar_url"`
	OtherUserID    *uint      `json:"other_user_id"`
	OtherUsername  *string    `json:"other_username"`
	OtherAvatar    *string    `json:"other_avatar"`
	LastMessage    *string    `json:"last_message"`
	LastMessageAt  *time.Time `json:"last_message_at"`
	SenderID       *uint      `json:"sender_id"`
	SenderUsername *string    `json:"sender_username"`
	IsOwnMessage   bool       `json:"is_own_message"`
	UnreadCount    int64      `json:"unread_count"`
}

// GroupInfo is group metadata plus its roster.
type GroupInfo struct {
	ID               uint          `json:"id"`
	GroupName        *string       `json:"group_name"`
	GroupAvatarURL   *string       `json:"group_avatar_url"`
	GroupDescription *string       `json:"group_description"`
	CreatedBy        *uint         `json:"created_by"`
	CreatedAt        time.Time     `json:"created_at"`
	Members          []UserSummary `json:"members"`
}

// MemberAddedText is the system message body for an add-members event.
func MemberAddedText(adder string, added []string) string {
	return adder + " added " + strings.Join(added, ", ")
}

// MemberLeftText is the system message body for a leave event.
func MemberLeftText(name string) string {
	return name + " left the conversation"
}
