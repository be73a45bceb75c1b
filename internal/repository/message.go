package repository

import (
	"context"

	"kinship/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message, notifs []models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	MarkConversationRead(ctx context.Context, convID, readerID uint) (int64, error)
	ListForConversation(ctx context.Context, convID uint) ([]models.MessageView, error)
	Delete(ctx context.Context, id uint) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new MessageRepository implementation.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts the message and the recipients' notifications atomically.
// Each notification's ConversationID is set to the message's conversation.
func (r *messageRepository) Create(ctx context.Context, msg *models.Message, notifs []models.Notification) error {
	if msg.Kind == "" {
		msg.Kind = models.MessageKindUser
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}
		for i := range notifs {
			notifs[i].ConversationID = &msg.ConversationID
		}
		return createNotifications(tx.Omit(clause.Associations), notifs)
	})
}

func (r *messageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkConversationRead flips every unread message not sent by readerID and
// the reader's message notifications for the conversation. It returns the
// number of messages changed.
func (r *messageRepository) MarkConversationRead(ctx context.Context, convID, readerID uint) (int64, error) {
	var changed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", convID, readerID, false).
			Update("is_read", true)
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected
		return tx.Model(&models.Notification{}).
			Where("user_id = ? AND conversation_id = ? AND action_type = ? AND is_read = ?",
				readerID, convID, models.NotificationMessage, false).
			Update("is_read", true).Error
	})
	return changed, err
}

// ListForConversation returns messages oldest first with sender details and
// one level of quoted parent.
func (r *messageRepository) ListForConversation(ctx context.Context, convID uint) ([]models.MessageView, error) {
	var out []models.MessageView
	err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select(`m.id, m.conversation_id, m.content, m.kind, m.is_read, m.created_at, m.sender_id,
	sp.username AS sender_username, sp.avatar_url AS sender_avatar,
	m.parent_message_id, pm.content AS parent_content, pm.sender_id AS parent_sender_id,
	pp.username AS parent_sender_username`).
		Joins("LEFT JOIN profiles sp ON sp.user_id = m.sender_id").
		Joins("LEFT JOIN messages pm ON pm.id = m.parent_message_id").
		Joins("LEFT JOIN profiles pp ON pp.user_id = pm.sender_id").
		Where("m.conversation_id = ?", convID).
		Order("m.created_at ASC, m.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsSystemMessage = out[i].Kind == models.MessageKindSystem
	}
	return out, nil
}

// Delete hard-deletes the message. Replies keep existing with their parent
// pointer cleared.
func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).Where("parent_message_id = ?", id).Update("parent_message_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Message{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
