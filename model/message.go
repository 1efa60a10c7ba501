package model

import (
	"fmt"
	"time"

	"tealchat/platform"
)

// Message is one turn in a conversation. User messages carry their final
// content from creation; model messages start empty and are finalized
// exactly once when their stream completes. Failed marks a model message
// whose stream errored before completion.
type Message struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);index:idx_conversation_id_created_at" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16)" json:"role"`
	Content        string    `gorm:"type:text" json:"content"`
	Failed         bool      `gorm:"default:false" json:"failed"`
	CreatedAt      time.Time `gorm:"index:idx_conversation_id_created_at" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func CreateMessage(msg *Message) error {
	db := platform.DB
	return db.Create(msg).Error
}

func DeleteMessage(id string) error {
	db := platform.DB
	return db.Where("id = ?", id).Delete(&Message{}).Error
}

// GetMessage fetches a message within one conversation.
func GetMessage(conversationID string, id string) (*Message, error) {
	var msg Message
	db := platform.DB
	if err := db.Where("id = ? AND conversation_id = ?", id, conversationID).First(&msg).Error; err != nil {
		return nil, fmt.Errorf("message not found: %w", err)
	}
	return &msg, nil
}

// ListMessages returns all messages of a conversation, oldest first.
func ListMessages(conversationID string) ([]Message, error) {
	db := platform.DB
	var msgs []Message
	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// RecentHistory returns the limit most recent non-empty messages of a
// conversation, oldest first. Pending placeholders have empty content and
// are therefore never part of the history sent upstream.
func RecentHistory(conversationID string, limit int) ([]Message, error) {
	db := platform.DB
	var msgs []Message
	err := db.Where("conversation_id = ? AND content <> ''", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// FirstUserMessage returns the oldest user message of a conversation.
func FirstUserMessage(conversationID string) (*Message, error) {
	var msg Message
	db := platform.DB
	err := db.Where("conversation_id = ? AND role = ?", conversationID, "user").
		Order("created_at ASC").
		First(&msg).Error
	if err != nil {
		return nil, fmt.Errorf("no user message found: %w", err)
	}
	return &msg, nil
}

// FinalizeMessage sets a message's content to its final streamed text.
// Writing the same text twice leaves the row in the same state.
func FinalizeMessage(id string, content string) error {
	db := platform.DB
	if err := db.Model(&Message{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "failed": false}).Error; err != nil {
		return fmt.Errorf("failed to finalize message: %w", err)
	}
	return nil
}

// MarkMessageFailed flags a model message whose stream errored. Content is
// left untouched so a partial response is never presented as complete.
func MarkMessageFailed(id string) error {
	db := platform.DB
	if err := db.Model(&Message{}).Where("id = ?", id).Update("failed", true).Error; err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	return nil
}
