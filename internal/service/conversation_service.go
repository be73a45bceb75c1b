package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"kinship/internal/models"
	"kinship/internal/observability"
	"kinship/internal/repository"
	"kinship/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ConversationService implements direct and group messaging.
type ConversationService struct {
	convRepo  repository.ConversationRepository
	msgRepo   repository.MessageRepository
	userRepo  repository.UserRepository
	publisher EventPublisher
}

// SendMessageInput targets either an existing conversation or a recipient,
// in which case the 1:1 conversation is found or created first.
type SendMessageInput struct {
	SenderID        uint   `json:"-"`
	ConversationID  uint   `json:"conversation_id" validate:"required_without=RecipientID"`
	RecipientID     uint   `json:"recipient_id"`
	Content         string `json:"content" validate:"required,max=10000"`
	ParentMessageID *uint  `json:"parent_message_id"`
}

// CreateGroupInput is a new group. MemberIDs nil means the field was absent.
type CreateGroupInput struct {
	CreatorID uint   `json:"-"`
	GroupName string `json:"group_name" validate:"required,max=100"`
	MemberIDs []uint `json:"member_ids" validate:"required"`
}

type groupNameInput struct {
	GroupName string `json:"group_name" validate:"required,max=100"`
}

// GroupCreated is returned after a group is created.
type GroupCreated struct {
	ConversationID uint   `json:"conversation_id"`
	GroupName      string `json:"group_name"`
	IsGroup        bool   `json:"is_group"`
	Members        []uint `json:"members"`
	Message        string `json:"message"`
}

// MemberLeftEvent tells realtime subscribers that UserID is no longer a
// participant.
type MemberLeftEvent struct {
	ConversationID uint `json:"conversation_id"`
	UserID         uint `json:"user_id"`
}

// TypingEvent is relayed to the other participants of a conversation.
type TypingEvent struct {
	ConversationID uint   `json:"conversation_id"`
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	IsTyping       bool   `json:"is_typing"`
	ExpiresInMS    int    `json:"expires_in_ms"`
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
) *ConversationService {
	return &ConversationService{
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// ListConversations returns the caller's inbox, most recent activity first.
func (s *ConversationService) ListConversations(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	out, err := s.convRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	if out == nil {
		out = []models.ConversationSummary{}
	}
	return out, nil
}

// StartDirect returns the 1:1 conversation with recipientID, creating it when
// needed. Calls for the same pair in either order converge on one id.
func (s *ConversationService) StartDirect(ctx context.Context, userID, recipientID uint) (uint, bool, error) {
	if recipientID == 0 {
		return 0, false, models.NewValidationError("recipient_id required")
	}
	if recipientID == userID {
		return 0, false, models.NewValidationError("Cannot message yourself")
	}
	exists, err := s.userRepo.Exists(ctx, recipientID)
	if err != nil {
		return 0, false, internal(err)
	}
	if !exists {
		return 0, false, models.NewNotFoundError("Recipient", nil)
	}

	id, created, err := s.convRepo.FindOrCreateDirect(ctx, userID, recipientID)
	if err != nil {
		return 0, false, internal(err)
	}
	return id, created, nil
}

// SendMessage persists a user message and notifies every other participant.
func (s *ConversationService) SendMessage(ctx context.Context, in SendMessageInput) (_ *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "SendMessage",
		attribute.Int64("conversation.id", int64(in.ConversationID)))
	defer func() { observability.EndSpan(span, err) }()

	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	content := in.Content
	if in.RecipientID != 0 && in.RecipientID == in.SenderID {
		return nil, models.NewValidationError("Cannot message yourself")
	}

	convID := in.ConversationID
	if convID == 0 {
		id, _, err := s.StartDirect(ctx, in.SenderID, in.RecipientID)
		if err != nil {
			return nil, err
		}
		convID = id
	}

	if err := s.requireParticipant(ctx, convID, in.SenderID, "Not authorized"); err != nil {
		return nil, err
	}

	if in.ParentMessageID != nil && *in.ParentMessageID == 0 {
		in.ParentMessageID = nil
	}
	if in.ParentMessageID != nil {
		parent, err := s.msgRepo.GetByID(ctx, *in.ParentMessageID)
		if err != nil && !isNotFound(err) {
			return nil, internal(err)
		}
		if parent == nil || parent.ConversationID != convID {
			return nil, models.NewValidationError("Parent message not found")
		}
	}

	participants, err := s.convRepo.ParticipantIDs(ctx, convID)
	if err != nil {
		return nil, internal(err)
	}
	notifs := make([]models.Notification, 0, len(participants))
	for _, uid := range participants {
		if n := newNotification(uid, in.SenderID, models.NotificationMessage); n != nil {
			notifs = append(notifs, *n)
		}
	}

	msg := &models.Message{
		ConversationID:  convID,
		SenderID:        in.SenderID,
		Content:         content,
		ParentMessageID: in.ParentMessageID,
		Kind:            models.MessageKindUser,
	}
	if err := s.msgRepo.Create(ctx, msg, notifs); err != nil {
		return nil, internal(err)
	}

	observability.MessagesSent.WithLabelValues(string(models.MessageKindUser)).Inc()
	observability.NotificationsCreated.WithLabelValues(string(models.NotificationMessage)).Add(float64(len(notifs)))
	publishToConversation(ctx, s.publisher, convID, EventMessageReceived, msg)
	return msg, nil
}

// GetThread marks the conversation read for the caller and returns its
// messages oldest first.
func (s *ConversationService) GetThread(ctx context.Context, userID, convID uint) ([]models.MessageView, error) {
	if err := s.requireParticipant(ctx, convID, userID, "Not authorized"); err != nil {
		return nil, err
	}
	if _, err := s.msgRepo.MarkConversationRead(ctx, convID, userID); err != nil {
		return nil, internal(err)
	}
	out, err := s.msgRepo.ListForConversation(ctx, convID)
	if err != nil {
		return nil, internal(err)
	}
	if out == nil {
		out = []models.MessageView{}
	}
	return out, nil
}

// GetInfo returns the other participant of the conversation.
func (s *ConversationService) GetInfo(ctx context.Context, userID, convID uint) (*models.UserSummary, error) {
	if err := s.requireParticipant(ctx, convID, userID, "Not authorized"); err != nil {
		return nil, err
	}
	other, err := s.convRepo.OtherParticipant(ctx, convID, userID)
	if err != nil {
		return nil, notFoundOr(err, "Other participant")
	}
	return other, nil
}

// DeleteMessage hard-deletes a message the caller sent.
func (s *ConversationService) DeleteMessage(ctx context.Context, userID, messageID uint) error {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return notFoundOr(err, "Message")
	}
	if msg.SenderID != userID {
		return models.NewForbiddenError("Cannot delete other users messages")
	}
	if err := s.msgRepo.Delete(ctx, messageID); err != nil {
		return notFoundOr(err, "Message")
	}
	publishToConversation(ctx, s.publisher, msg.ConversationID, EventMessageDeleted, map[string]uint{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
	})
	return nil
}

// CreateGroup creates a group from at least two distinct member ids; the
// creator is added when not listed.
func (s *ConversationService) CreateGroup(ctx context.Context, in CreateGroupInput) (*GroupCreated, error) {
	in.GroupName = strings.TrimSpace(in.GroupName)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	name := in.GroupName
	members := repository.DistinctIDs(in.MemberIDs)
	if len(members) < 2 {
		return nil, models.NewValidationError("Group must have at least 2 members")
	}
	if !slices.Contains(members, in.CreatorID) {
		members = append(members, in.CreatorID)
	}

	creator := in.CreatorID
	conv := &models.Conversation{GroupName: &name, CreatedBy: &creator}
	if err := s.convRepo.CreateGroup(ctx, conv, members); err != nil {
		if errors.Is(err, repository.ErrMissingUsers) {
			return nil, models.NewValidationError("One or more members do not exist")
		}
		return nil, internal(err)
	}

	publishToConversation(ctx, s.publisher, conv.ID, EventConversationUpdated, conv)
	return &GroupCreated{
		ConversationID: conv.ID,
		GroupName:      name,
		IsGroup:        true,
		Members:        members,
		Message:        "Group conversation created",
	}, nil
}

// GetGroup returns group metadata and the member roster.
func (s *ConversationService) GetGroup(ctx context.Context, userID, convID uint) (*models.GroupInfo, error) {
	conv, err := s.requireGroupMember(ctx, convID, userID, "Not authorized")
	if err != nil {
		return nil, err
	}
	members, err := s.convRepo.Members(ctx, convID)
	if err != nil {
		return nil, internal(err)
	}
	if members == nil {
		members = []models.UserSummary{}
	}
	return &models.GroupInfo{
		ID:               conv.ID,
		GroupName:        conv.GroupName,
		GroupAvatarURL:   conv.GroupAvatarURL,
		GroupDescription: conv.GroupDescription,
		CreatedBy:        conv.CreatedBy,
		CreatedAt:        conv.CreatedAt,
		Members:          members,
	}, nil
}

// AddMembers adds the given users. Existing members are skipped and exactly
// one system message names the new ones; nothing new means no message.
func (s *ConversationService) AddMembers(ctx context.Context, userID, convID uint, memberIDs []uint) (_ *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "AddMembers",
		attribute.Int64("conversation.id", int64(convID)), attribute.Int("members.requested", len(memberIDs)))
	defer func() { observability.EndSpan(span, err) }()

	if memberIDs == nil {
		return nil, models.NewValidationError("member_ids array required")
	}
	if _, err := s.requireGroupMember(ctx, convID, userID, "Not authorized"); err != nil {
		return nil, err
	}
	memberIDs = repository.DistinctIDs(memberIDs)
	if len(memberIDs) == 0 {
		return nil, nil
	}

	sysMsg, err := s.convRepo.AddMembers(ctx, convID, userID, memberIDs)
	if err != nil {
		if errors.Is(err, repository.ErrMissingUsers) {
			return nil, models.NewValidationError("One or more members do not exist")
		}
		return nil, internal(err)
	}
	s.announce(ctx, sysMsg)
	return sysMsg, nil
}

func (s *ConversationService) RenameGroup(ctx context.Context, userID, convID uint, name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Struct(groupNameInput{GroupName: name}); err != nil {
		return "", err
	}
	if err := s.updateGroup(ctx, userID, convID, map[string]any{"group_name": name}); err != nil {
		return "", err
	}
	return name, nil
}

func (s *ConversationService) SetGroupPhoto(ctx context.Context, userID, convID uint, avatarURL string) (string, error) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		return "", models.NewValidationError("group_avatar_url required")
	}
	if err := s.updateGroup(ctx, userID, convID, map[string]any{"group_avatar_url": avatarURL}); err != nil {
		return "", err
	}
	return avatarURL, nil
}

// SetGroupDescription sets or, with a blank value, clears the description.
func (s *ConversationService) SetGroupDescription(ctx context.Context, userID, convID uint, description string) (*string, error) {
	desc := models.NullableString(description)
	if err := s.updateGroup(ctx, userID, convID, map[string]any{"group_description": desc}); err != nil {
		return nil, err
	}
	return desc, nil
}

// LeaveGroup removes the caller and posts the "left" system message. The last
// member may leave; the group then has no participants.
func (s *ConversationService) LeaveGroup(ctx context.Context, userID, convID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ConversationService", "LeaveGroup",
		attribute.Int64("conversation.id", int64(convID)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.requireGroupMember(ctx, convID, userID, "Not a group member"); err != nil {
		return err
	}
	sysMsg, err := s.convRepo.Leave(ctx, convID, userID)
	if err != nil {
		if isNotFound(err) {
			return models.NewForbiddenError("Not a group member")
		}
		return internal(err)
	}
	s.announce(ctx, sysMsg)
	publishToConversation(ctx, s.publisher, convID, EventMemberLeft, MemberLeftEvent{
		ConversationID: convID,
		UserID:         userID,
	})
	return nil
}

// Typing relays a typing indicator to the conversation.
func (s *ConversationService) Typing(ctx context.Context, userID, convID uint, isTyping bool) error {
	if err := s.requireParticipant(ctx, convID, userID, "Not authorized"); err != nil {
		return err
	}
	name := "User"
	if u, err := s.userRepo.GetByID(ctx, userID); err == nil {
		name = u.Profile.DisplayName()
	}
	publishToConversation(ctx, s.publisher, convID, EventTyping, TypingEvent{
		ConversationID: convID,
		UserID:         userID,
		Username:       name,
		IsTyping:       isTyping,
		ExpiresInMS:    5000,
	})
	return nil
}

// IsParticipant reports membership without producing an AppError.
func (s *ConversationService) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	return s.convRepo.IsParticipant(ctx, convID, userID)
}

func (s *ConversationService) updateGroup(ctx context.Context, userID, convID uint, fields map[string]any) error {
	if _, err := s.requireGroupMember(ctx, convID, userID, "Not a group member"); err != nil {
		return err
	}
	if err := s.convRepo.UpdateGroup(ctx, convID, fields); err != nil {
		return internal(err)
	}
	publishToConversation(ctx, s.publisher, convID, EventConversationUpdated, fields)
	return nil
}

func (s *ConversationService) announce(ctx context.Context, sysMsg *models.Message) {
	if sysMsg == nil {
		return
	}
	observability.MessagesSent.WithLabelValues(string(models.MessageKindSystem)).Inc()
	publishToConversation(ctx, s.publisher, sysMsg.ConversationID, EventMessageReceived, sysMsg)
}

func (s *ConversationService) requireParticipant(ctx context.Context, convID, userID uint, msg string) error {
	ok, err := s.convRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return internal(err)
	}
	if !ok {
		return models.NewForbiddenError(msg)
	}
	return nil
}

// requireGroupMember checks membership first, then that the conversation is
// a group.
func (s *ConversationService) requireGroupMember(ctx context.Context, convID, userID uint, msg string) (*models.Conversation, error) {
	if err := s.requireParticipant(ctx, convID, userID, msg); err != nil {
		return nil, err
	}
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		return nil, notFoundOr(err, "Group")
	}
	if !conv.IsGroup {
		return nil, models.NewNotFoundError("Group", nil)
	}
	return conv, nil
}
