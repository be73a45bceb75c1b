package repository

import (
	"context"
	"fmt"
	"log/slog"

	"kinship/internal/models"
	"kinship/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository manages conversations, membership and the system
// messages that membership changes produce.
type ConversationRepository interface {
	FindOrCreateDirect(ctx context.Context, a, b uint) (id uint, created bool, err error)
	CreateGroup(ctx context.Context, conv *models.Conversation, memberIDs []uint) error
	AddMembers(ctx context.Context, convID, adderID uint, memberIDs []uint) (*models.Message, error)
	Leave(ctx context.Context, convID, userID uint) (*models.Message, error)
	UpdateGroup(ctx context.Context, convID uint, fields map[string]any) error
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	IsParticipant(ctx context.Context, convID, userID uint) (bool, error)
	ParticipantIDs(ctx context.Context, convID uint) ([]uint, error)
	Members(ctx context.Context, convID uint) ([]models.UserSummary, error)
	OtherParticipant(ctx context.Context, convID, userID uint) (*models.UserSummary, error)
	ListForUser(ctx context.Context, userID uint) ([]models.ConversationSummary, error)
}

type conversationRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewConversationRepository returns a new ConversationRepository implementation.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db, log: observability.NewRepoLogger("conversations")}
}

// lockDirectPair serializes find-or-create for one unordered pair on postgres.
// Other dialects rely on the surrounding transaction alone.
func lockDirectPair(tx *gorm.DB, lo, hi uint) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", fmt.Sprintf("direct:%d:%d", lo, hi)).Error
}

func findDirect(tx *gorm.DB, lo, hi uint) (uint, error) {
	var ids []uint
	err := tx.Raw(`
SELECT c.id FROM conversations c
JOIN participants p1 ON p1.conversation_id = c.id AND p1.user_id = ?
JOIN participants p2 ON p2.conversation_id = c.id AND p2.user_id = ?
WHERE c.is_group = ?
	AND (SELECT COUNT(*) FROM participants p WHERE p.conversation_id = c.id) = 2
ORDER BY c.id
LIMIT 1`, lo, hi, false).Scan(&ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

// FindOrCreateDirect returns the 1:1 conversation between a and b, creating it
// (with both participants) when none exists. The argument order does not matter.
func (r *conversationRepository) FindOrCreateDirect(ctx context.Context, a, b uint) (uint, bool, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}

	var (
		id      uint
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDirectPair(tx, lo, hi); err != nil {
			return err
		}
		existing, err := findDirect(tx, lo, hi)
		if err != nil {
			return err
		}
		if existing != 0 {
			id = existing
			return nil
		}

		conv := models.Conversation{IsGroup: false}
		if err := tx.Omit(clause.Associations).Create(&conv).Error; err != nil {
			return err
		}
		participants := []models.Participant{
			{ConversationID: conv.ID, UserID: lo},
			{ConversationID: conv.ID, UserID: hi},
		}
		if err := tx.Omit(clause.Associations).Create(&participants).Error; err != nil {
			return err
		}
		id, created = conv.ID, true
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "find_or_create_direct")
		return 0, false, err
	}
	if created {
		r.log.LogWrite(ctx, "create_direct", slog.Uint64("conversation_id", uint64(id)))
	}
	return id, created, nil
}

// CreateGroup inserts the conversation and one participant per member id.
// Unknown member ids fail with ErrMissingUsers and nothing is written.
func (r *conversationRepository) CreateGroup(ctx context.Context, conv *models.Conversation, memberIDs []uint) error {
	memberIDs = DistinctIDs(memberIDs)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := countUsers(tx, memberIDs)
		if err != nil {
			return err
		}
		if int(n) != len(memberIDs) {
			return ErrMissingUsers
		}

		conv.IsGroup = true
		if err := tx.Omit(clause.Associations).Create(conv).Error; err != nil {
			return err
		}
		participants := make([]models.Participant, 0, len(memberIDs))
		for _, uid := range memberIDs {
			participants = append(participants, models.Participant{ConversationID: conv.ID, UserID: uid})
		}
		return tx.Omit(clause.Associations).Create(&participants).Error
	})
	if err != nil {
		return err
	}
	r.log.LogWrite(ctx, "create_group", slog.Uint64("conversation_id", uint64(conv.ID)), slog.Int("members", len(memberIDs)))
	return nil
}

// displayNames maps user ids to their username, "User" when unset.
func displayNames(tx *gorm.DB, ids []uint) (map[uint]string, error) {
	var rows []struct {
		UserID   uint
		Username *string
	}
	err := tx.Model(&models.Profile{}).Select("user_id, username").Where("user_id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(ids))
	for _, id := range ids {
		names[id] = "User"
	}
	for _, row := range rows {
		names[row.UserID] = (&models.Profile{Username: row.Username}).DisplayName()
	}
	return names, nil
}

// AddMembers inserts the given members, skipping existing ones. When at least
// one member is new a single system message naming only the new members is
// appended and returned; otherwise the returned message is nil.
func (r *conversationRepository) AddMembers(ctx context.Context, convID, adderID uint, memberIDs []uint) (*models.Message, error) {
	memberIDs = DistinctIDs(memberIDs)
	var sysMsg *models.Message

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := countUsers(tx, memberIDs)
		if err != nil {
			return err
		}
		if int(n) != len(memberIDs) {
			return ErrMissingUsers
		}

		var existing []uint
		if err := tx.Model(&models.Participant{}).
			Where("conversation_id = ? AND user_id IN ?", convID, memberIDs).
			Pluck("user_id", &existing).Error; err != nil {
			return err
		}
		present := make(map[uint]bool, len(existing))
		for _, id := range existing {
			present[id] = true
		}
		var added []uint
		rows := make([]models.Participant, 0, len(memberIDs))
		for _, id := range memberIDs {
			if !present[id] {
				added = append(added, id)
			}
			rows = append(rows, models.Participant{ConversationID: convID, UserID: id})
		}

		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rows).Error; err != nil {
			return err
		}
		if len(added) == 0 {
			return nil
		}

		names, err := displayNames(tx, append([]uint{adderID}, added...))
		if err != nil {
			return err
		}
		addedNames := make([]string, 0, len(added))
		for _, id := range added {
			addedNames = append(addedNames, names[id])
		}
		sysMsg = &models.Message{
			ConversationID: convID,
			SenderID:       adderID,
			Content:        models.MemberAddedText(names[adderID], addedNames),
			Kind:           models.MessageKindSystem,
		}
		return tx.Omit(clause.Associations).Create(sysMsg).Error
	})
	if err != nil {
		return nil, err
	}
	if sysMsg != nil {
		r.log.LogWrite(ctx, "add_members", slog.Uint64("conversation_id", uint64(convID)), slog.String("content", sysMsg.Content))
	}
	return sysMsg, nil
}

// Leave removes exactly one participant row and appends the "left" system
// message attributed to the leaver. gorm.ErrRecordNotFound when the user was
// not a participant.
func (r *conversationRepository) Leave(ctx context.Context, convID, userID uint) (*models.Message, error) {
	var sysMsg *models.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		names, err := displayNames(tx, []uint{userID})
		if err != nil {
			return err
		}
		res := tx.Where("conversation_id = ? AND user_id = ?", convID, userID).Delete(&models.Participant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		sysMsg = &models.Message{
			ConversationID: convID,
			SenderID:       userID,
			Content:        models.MemberLeftText(names[userID]),
			Kind:           models.MessageKindSystem,
		}
		return tx.Omit(clause.Associations).Create(sysMsg).Error
	})
	if err != nil {
		return nil, err
	}
	r.log.LogWrite(ctx, "leave", slog.Uint64("conversation_id", uint64(convID)), slog.Uint64("user_id", uint64(userID)))
	return sysMsg, nil
}

func (r *conversationRepository) UpdateGroup(ctx context.Context, convID uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).Where("id = ?", convID).Updates(fields).Error
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepository) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Count(&n).Error
	return n > 0, err
}

func (r *conversationRepository) ParticipantIDs(ctx context.Context, convID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("conversation_id = ?", convID).
		Order("id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func membersQuery(db *gorm.DB, convID uint) *gorm.DB {
	return db.Table("participants AS pa").
		Select("u.id, p.username, p.full_name, p.avatar_url").
		Joins("JOIN users u ON u.id = pa.user_id").
		Joins("LEFT JOIN profiles p ON p.user_id = u.id").
		Where("pa.conversation_id = ?", convID).
		Order("pa.id ASC")
}

// Members returns the roster in join order.
func (r *conversationRepository) Members(ctx context.Context, convID uint) ([]models.UserSummary, error) {
	var out []models.UserSummary
	err := membersQuery(readDB(r.db).WithContext(ctx), convID).Scan(&out).Error
	return out, err
}

// OtherParticipant returns the first participant that is not userID, or
// gorm.ErrRecordNotFound.
func (r *conversationRepository) OtherParticipant(ctx context.Context, convID, userID uint) (*models.UserSummary, error) {
	var out []models.UserSummary
	err := membersQuery(r.db.WithContext(ctx), convID).
		Where("pa.user_id <> ?", userID).
		Limit(1).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &out[0], nil
}

// ListForUser summarizes every conversation the user participates in,
// most recent activity first; conversations without messages sort last.
func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	const q = `
SELECT c.id, c.created_at, c.is_group, c.group_name, c.group_avatar_url,
	other.user_id AS other_user_id, op.username AS other_username, op.avatar_url AS other_avatar,
	lm.content AS last_message, lm.created_at AS last_message_at,
	lm.sender_id AS sender_id, sp.username AS sender_username,
	(SELECT COUNT(*) FROM messages um
		WHERE um.conversation_id = c.id AND um.sender_id <> ? AND um.is_read = ?) AS unread_count
FROM conversations c
JOIN participants me ON me.conversation_id = c.id AND me.user_id = ?
LEFT JOIN participants other ON other.conversation_id = c.id AND other.user_id <> ? AND c.is_group = ?
LEFT JOIN profiles op ON op.user_id = other.user_id
LEFT JOIN messages lm ON lm.id = (
	SELECT m.id FROM messages m WHERE m.conversation_id = c.id
	ORDER BY m.created_at DESC, m.id DESC LIMIT 1)
LEFT JOIN profiles sp ON sp.user_id = lm.sender_id
ORDER BY lm.created_at DESC NULLS LAST, c.created_at DESC, c.id DESC`

	var out []models.ConversationSummary
	if err := readDB(r.db).WithContext(ctx).Raw(q, userID, false, userID, userID, false).Scan(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsOwnMessage = out[i].SenderID != nil && *out[i].SenderID == userID
	}
	return out, nil
}
