package service

import (
	"testing"
	"time"

	"tealchat/model"
	"tealchat/platform"
	"tealchat/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backdate(t *testing.T, conversationID string, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, platform.DB.Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", updatedAt).Error)
}

func TestPurgeStaleAnonymous(t *testing.T) {
	setupDB(t)

	stale := makeConversation(t, "dev-old", "gemini-2-5-flash")
	makeMessage(t, stale.ID, provider.RoleUser, "old question")
	backdate(t, stale.ID, time.Now().AddDate(0, 0, -45))

	fresh := makeConversation(t, "dev-new", "gemini-2-5-flash")

	userID := uint(7)
	owned := &model.Conversation{ID: "owned-1", Title: "Keep", UserID: &userID, ModelID: "llama-3-3-70b"}
	require.NoError(t, model.CreateConversation(owned))
	backdate(t, owned.ID, time.Now().AddDate(0, 0, -90))

	purged, err := PurgeStaleAnonymous(30)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	// Stale anonymous conversation and its messages are gone.
	_, err = model.GetConversationForOwner(stale.ID, nil, "dev-old")
	assert.Error(t, err)
	msgs, err := model.ListMessages(stale.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Fresh anonymous and user-owned conversations survive.
	_, err = model.GetConversationForOwner(fresh.ID, nil, "dev-new")
	assert.NoError(t, err)
	_, err = model.GetConversationForOwner(owned.ID, &userID, "")
	assert.NoError(t, err)
}
