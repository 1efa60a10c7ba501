package controller

import (
	"errors"
	"net/http"

	"tealchat/model"
	"tealchat/provider"
	"tealchat/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatController struct{}

var chatService = service.ChatService{}
var titleService = service.TitleService{}

// ownerScope resolves the request's owner: the authenticated user id when
// a valid token was presented, otherwise the anonymous device id supplied
// by the client. Neither means the request cannot be scoped at all.
func ownerScope(c *gin.Context, anonymousID string) (*uint, string, bool) {
	if v, ok := c.Get("UserId"); ok {
		if id, ok := v.(uint); ok {
			return &id, "", true
		}
	}
	if anonymousID != "" {
		return nil, anonymousID, true
	}
	return nil, "", false
}

// loadOwnedConversation fetches the conversation addressed by the route,
// scoped to the requesting owner. Any miss reads as 404 so ids cannot be
// probed across owners.
func loadOwnedConversation(c *gin.Context, anonymousID string) (*model.Conversation, bool) {
	userID, anonID, ok := ownerScope(c, anonymousID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	conv, err := model.GetConversationForOwner(c.Param("chatId"), userID, anonID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found or unauthorized"})
		return nil, false
	}
	return conv, true
}

// ListModels serves the static model catalog.
func (ch ChatController) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": provider.Catalog()})
}

// ListChats returns the owner's conversations, most recently updated
// first.
func (ch ChatController) ListChats(c *gin.Context) {
	userID, anonID, ok := ownerScope(c, c.Query("anonymousId"))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	chats, err := model.ListConversations(userID, anonID)
	if err != nil {
		logger.Warnf("[%s] list chats error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// CreateChat creates a conversation for the owner with the selected
// model.
func (ch ChatController) CreateChat(c *gin.Context) {
	var input struct {
		AnonymousID string `json:"anonymousId"`
		Title       string `json:"title"`
		ModelID     string `json:"modelId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userID, anonID, ok := ownerScope(c, input.AnonymousID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	title := input.Title
	if title == "" {
		title = "New Chat"
	}

	conv := &model.Conversation{
		ID:      uuid.New().String(),
		Title:   title,
		UserID:  userID,
		ModelID: input.ModelID,
	}
	if userID == nil {
		conv.AnonymousID = &anonID
	}

	if err := model.CreateConversation(conv); err != nil {
		logger.Warnf("[%s] create chat error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": conv})
}

// DeleteChat removes a conversation and its messages.
func (ch ChatController) DeleteChat(c *gin.Context) {
	conv, ok := loadOwnedConversation(c, c.Query("anonymousId"))
	if !ok {
		return
	}

	if err := model.DeleteConversation(conv.ID); err != nil {
		logger.Warnf("[%s] delete chat error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListMessages returns a conversation's messages, oldest first.
func (ch ChatController) ListMessages(c *gin.Context) {
	conv, ok := loadOwnedConversation(c, c.Query("anonymousId"))
	if !ok {
		return
	}

	msgs, err := model.ListMessages(conv.ID)
	if err != nil {
		logger.Warnf("[%s] list messages error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// CreateMessage inserts the user's message with its final content and an
// empty model placeholder to stream into, then bumps the conversation
// timestamp.
func (ch ChatController) CreateMessage(c *gin.Context) {
	var input struct {
		AnonymousID string `json:"anonymousId"`
		Content     string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if anonQuery := c.Query("anonymousId"); input.AnonymousID == "" {
		input.AnonymousID = anonQuery
	}

	conv, ok := loadOwnedConversation(c, input.AnonymousID)
	if !ok {
		return
	}

	userMessage := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           provider.RoleUser,
		Content:        input.Content,
	}
	if err := model.CreateMessage(userMessage); err != nil {
		logger.Warnf("[%s] create user message error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create message"})
		return
	}

	aiMessage := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           provider.RoleModel,
		Content:        "",
	}
	if err := model.CreateMessage(aiMessage); err != nil {
		logger.Warnf("[%s] create placeholder error, %s", c.GetString("requestId"), err)
		// Best effort cleanup so the user message is not left unanswered.
		if delErr := model.DeleteMessage(userMessage.ID); delErr != nil {
			logger.Warnf("[%s] cleanup user message error, %s", c.GetString("requestId"), delErr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create message"})
		return
	}

	if err := model.TouchConversation(conv.ID); err != nil {
		logger.Warnf("[%s] touch conversation error, %s", c.GetString("requestId"), err)
	}

	c.JSON(http.StatusOK, gin.H{"userMessage": userMessage, "aiMessage": aiMessage})
}

// Stream relays the model's completion for a placeholder message to the
// client and persists the final text when the stream ends.
func (ch ChatController) Stream(c *gin.Context) {
	var input struct {
		AnonymousID string `json:"anonymousId"`
	}
	// Body is optional for authenticated callers.
	_ = c.ShouldBindJSON(&input)

	conv, ok := loadOwnedConversation(c, input.AnonymousID)
	if !ok {
		return
	}

	msg, err := model.GetMessage(conv.ID, c.Param("messageId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
		return
	}
	if msg.Role != provider.RoleModel {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Not a model message"})
		return
	}
	if msg.Content != "" {
		// A finalized message is never reopened; retries create a new
		// placeholder.
		c.JSON(http.StatusConflict, gin.H{"error": "Message already finalized"})
		return
	}

	err = chatService.StreamCompletion(c, conv, msg.ID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrStreamInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case !c.Writer.Written():
		logger.Warnf("[%s] stream setup error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		// Bytes already reached the client; the failed flag on the
		// message row carries the error state.
		logger.Warnf("[%s] stream aborted mid-flight, %s", c.GetString("requestId"), err)
	}
}

// GenerateTitle derives a short conversation title from the first user
// message.
func (ch ChatController) GenerateTitle(c *gin.Context) {
	var input struct {
		AnonymousID string `json:"anonymousId"`
	}
	_ = c.ShouldBindJSON(&input)

	conv, ok := loadOwnedConversation(c, input.AnonymousID)
	if !ok {
		return
	}

	title, err := titleService.GenerateTitle(c.Request.Context(), conv.ID)
	if err != nil {
		logger.Warnf("[%s] generate title error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate title"})
		return
	}

	conv.Title = title
	c.JSON(http.StatusOK, gin.H{"chat": conv})
}

// Export serves the conversation transcript as markdown or HTML.
func (ch ChatController) Export(c *gin.Context) {
	conv, ok := loadOwnedConversation(c, c.Query("anonymousId"))
	if !ok {
		return
	}

	msgs, err := model.ListMessages(conv.ID)
	if err != nil {
		logger.Warnf("[%s] export error, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export chat"})
		return
	}

	switch c.DefaultQuery("format", "markdown") {
	case "html":
		html, err := service.TranscriptHTML(conv, msgs)
		if err != nil {
			logger.Warnf("[%s] render export error, %s", c.GetString("requestId"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render chat"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	default:
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(service.TranscriptMarkdown(conv, msgs)))
	}
}
