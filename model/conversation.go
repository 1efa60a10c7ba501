package model

import (
	"errors"
	"fmt"
	"time"

	"tealchat/platform"

	"gorm.io/gorm"
)

// Conversation is one chat thread. Exactly one of UserID and AnonymousID
// is set: authenticated users own conversations by user id, everyone else
// by a client-generated anonymous device id.
type Conversation struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(255)" json:"title"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	AnonymousID *string   `gorm:"type:varchar(64);index" json:"anonymous_id"`
	ModelID     string    `gorm:"type:varchar(64)" json:"model_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func CreateConversation(conv *Conversation) error {
	db := platform.DB
	return db.Create(conv).Error
}

// ownerScope narrows a query to conversations held by one owner.
func ownerScope(db *gorm.DB, userID *uint, anonymousID string) *gorm.DB {
	if userID != nil {
		return db.Where("user_id = ?", *userID)
	}
	return db.Where("anonymous_id = ?", anonymousID)
}

// GetConversationForOwner fetches a conversation only if the given owner
// holds it. A row owned by someone else reads as not found.
func GetConversationForOwner(id string, userID *uint, anonymousID string) (*Conversation, error) {
	var conv Conversation
	db := ownerScope(platform.DB.Where("id = ?", id), userID, anonymousID)
	if err := db.First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &conv, nil
}

// ListConversations returns an owner's conversations, most recently
// updated first.
func ListConversations(userID *uint, anonymousID string) ([]Conversation, error) {
	db := ownerScope(platform.DB, userID, anonymousID)
	var convs []Conversation
	if err := db.Order("updated_at DESC").Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and all of its messages.
func DeleteConversation(id string) error {
	db := platform.DB
	if err := db.Where("conversation_id = ?", id).Delete(&Message{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if err := db.Where("id = ?", id).Delete(&Conversation{}).Error; err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// TouchConversation bumps the last-updated timestamp.
func TouchConversation(id string) error {
	db := platform.DB
	if err := db.Model(&Conversation{}).Where("id = ?", id).Update("updated_at", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// UpdateConversationTitle sets a conversation's title.
func UpdateConversationTitle(id string, title string) error {
	db := platform.DB
	if err := db.Model(&Conversation{}).Where("id = ?", id).Update("title", title).Error; err != nil {
		return fmt.Errorf("failed to update conversation title: %w", err)
	}
	return nil
}

// StaleAnonymousConversations lists ids of anonymous conversations idle
// since before the cutoff.
func StaleAnonymousConversations(cutoff time.Time) ([]string, error) {
	db := platform.DB
	var ids []string
	err := db.Model(&Conversation{}).
		Where("anonymous_id IS NOT NULL AND updated_at < ?", cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale conversations: %w", err)
	}
	return ids, nil
}
