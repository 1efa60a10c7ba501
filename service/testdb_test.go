package service

import (
	"context"
	"path/filepath"
	"testing"

	"tealchat/model"
	"tealchat/platform"
	"tealchat/provider"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Conversation{}, &model.Message{}))
	platform.DB = db
}

func makeConversation(t *testing.T, anonymousID string, modelID string) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{
		ID:          uuid.New().String(),
		Title:       "New Chat",
		AnonymousID: &anonymousID,
		ModelID:     modelID,
	}
	require.NoError(t, model.CreateConversation(conv))
	return conv
}

func makeMessage(t *testing.T, conversationID string, role string, content string) *model.Message {
	t.Helper()
	msg := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}
	require.NoError(t, model.CreateMessage(msg))
	return msg
}

// fakeAdapter satisfies provider.Adapter with a canned delta sequence.
type fakeAdapter struct {
	deltas []string
	err    error
}

func (f *fakeAdapter) OpenStream(ctx context.Context, model string, history []provider.Message) (<-chan provider.Event, error) {
	return eventsFrom(f.deltas, f.err), nil
}

func stubOpener(t *testing.T, adapter provider.Adapter, err error) {
	t.Helper()
	old := openerFor
	openerFor = func(d provider.Descriptor) (provider.Adapter, error) {
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}
	t.Cleanup(func() { openerFor = old })
}
