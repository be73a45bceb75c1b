package server

import (
	"kinship/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/messages
// @Summary Inbox
// @Description Conversations with last message and unread count, most recent first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ConversationSummary
// @Router /messages [get]
func (s *Server) GetConversations(c *fiber.Ctx) error {
	list, err := s.conversationService.ListConversations(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(list)
}

// CreateConversation handles POST /api/messages/create
// @Summary Start a direct conversation
// @Description Returns the existing 1:1 conversation for the pair when there is one
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{recipient_id=int} true "Recipient"
// @Success 201 {object} object{conversation_id=int,created=bool,message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/create [post]
func (s *Server) CreateConversation(c *fiber.Ctx) error {
	var req struct {
		RecipientID uint `json:"recipient_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	id, created, err := s.conversationService.StartDirect(c.UserContext(), currentUserID(c), req.RecipientID)
	if err != nil {
		return respondServiceError(c, err)
	}

	msg := "Conversation created"
	if !created {
		msg = "Conversation already exists"
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"conversation_id": id,
		"created":         created,
		"message":         msg,
	})
}

// SendMessage handles POST /api/messages
// @Summary Send a message
// @Description Targets conversation_id, or recipient_id which opens the 1:1 conversation first
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SendMessageInput true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req service.SendMessageInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.SenderID = currentUserID(c)

	msg, err := s.conversationService.SendMessage(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetMessages handles GET /api/messages/:id
// @Summary Conversation thread
// @Description Marks the caller's incoming messages read, then returns the thread oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {array} models.MessageView
// @Failure 403 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	thread, err := s.conversationService.GetThread(c.UserContext(), currentUserID(c), convID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(thread)
}

// GetConversationInfo handles GET /api/messages/:id/info
func (s *Server) GetConversationInfo(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	other, err := s.conversationService.GetInfo(c.UserContext(), currentUserID(c), convID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(other)
}

// DeleteMessage handles DELETE /api/messages/:messageId
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	messageID, err := s.parseID(c, "messageId")
	if err != nil {
		return nil
	}

	if err := s.conversationService.DeleteMessage(c.UserContext(), currentUserID(c), messageID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted successfully"})
}

// CreateGroup handles POST /api/messages/group/create
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateGroupInput true "Group"
// @Success 201 {object} service.GroupCreated
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/group/create [post]
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req service.CreateGroupInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.CreatorID = currentUserID(c)

	created, err := s.conversationService.CreateGroup(c.UserContext(), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetGroup handles GET /api/messages/group/:id
// @Summary Group info
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Conversation ID"
// @Success 200 {object} models.GroupInfo
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/group/{id} [get]
func (s *Server) GetGroup(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	info, err := s.conversationService.GetGroup(c.UserContext(), currentUserID(c), convID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(info)
}

// AddGroupMembers handles POST /api/messages/group/:id/members
func (s *Server) AddGroupMembers(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		MemberIDs []uint `json:"member_ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	sysMsg, err := s.conversationService.AddMembers(c.UserContext(), currentUserID(c), convID, req.MemberIDs)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":        "Members added successfully",
		"system_message": sysMsg,
	})
}

// RenameGroup handles PUT /api/messages/group/:id/name
func (s *Server) RenameGroup(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		GroupName string `json:"group_name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	name, err := s.conversationService.RenameGroup(c.UserContext(), currentUserID(c), convID, req.GroupName)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group name updated", "group_name": name})
}

// SetGroupPhoto handles PUT /api/messages/group/:id/photo
func (s *Server) SetGroupPhoto(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		GroupAvatarURL string `json:"group_avatar_url"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	url, err := s.conversationService.SetGroupPhoto(c.UserContext(), currentUserID(c), convID, req.GroupAvatarURL)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group photo updated", "group_avatar_url": url})
}

// SetGroupDescription handles PUT /api/messages/group/:id/description
func (s *Server) SetGroupDescription(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		GroupDescription string `json:"group_description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	desc, err := s.conversationService.SetGroupDescription(c.UserContext(), currentUserID(c), convID, req.GroupDescription)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Group description updated", "group_description": desc})
}

// LeaveGroup handles DELETE /api/messages/group/:id/leave
func (s *Server) LeaveGroup(c *fiber.Ctx) error {
	convID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.conversationService.LeaveGroup(c.UserContext(), currentUserID(c), convID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left group successfully"})
}
