package service

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"tealchat/model"
	"tealchat/platform"
	"tealchat/provider"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/stream", nil)
	return c, w
}

func TestHistoryCapAndOrder(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")

	// 25 finalized turns; only the most recent 20 go upstream, oldest
	// first within that window.
	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 25; i++ {
		msg := &model.Message{
			ID:             fmt.Sprintf("m-%02d", i),
			ConversationID: conv.ID,
			Role:           provider.RoleUser,
			Content:        fmt.Sprintf("turn %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, platform.DB.Create(msg).Error)
	}

	svc := ChatService{}
	history := svc.History(conv.ID)

	require.Len(t, history, 20)
	assert.Equal(t, "turn 6", history[0].Content)
	assert.Equal(t, "turn 25", history[19].Content)
}

func TestHistoryExcludesEmptyPlaceholders(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")

	makeMessage(t, conv.ID, provider.RoleUser, "hi")
	makeMessage(t, conv.ID, provider.RoleModel, "hello there")
	makeMessage(t, conv.ID, provider.RoleUser, "and now?")
	makeMessage(t, conv.ID, provider.RoleModel, "") // pending placeholder

	svc := ChatService{}
	history := svc.History(conv.ID)

	require.Len(t, history, 3)
	for _, m := range history {
		assert.NotEmpty(t, m.Content, "history must never contain empty content")
	}
}

func TestHistoryDegradesToEmptyOnStoreError(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")
	require.NoError(t, platform.DB.Migrator().DropTable(&model.Message{}))

	svc := ChatService{}
	assert.Empty(t, svc.History(conv.ID))
}

func TestStreamCompletionFinalizesMessage(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")
	makeMessage(t, conv.ID, provider.RoleUser, "hi")
	placeholder := makeMessage(t, conv.ID, provider.RoleModel, "")

	stubOpener(t, &fakeAdapter{deltas: []string{"Hel", "lo!"}}, nil)

	before := time.Now()
	time.Sleep(20 * time.Millisecond)

	c, w := streamContext(t)
	svc := ChatService{}
	require.NoError(t, svc.StreamCompletion(c, conv, placeholder.ID))

	assert.Equal(t, "Hello!", w.Body.String())

	saved, err := model.GetMessage(conv.ID, placeholder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", saved.Content, "persisted content must equal streamed concatenation")
	assert.False(t, saved.Failed)

	updated, err := model.GetConversationForOwner(conv.ID, nil, "dev-1")
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(before), "conversation timestamp must be bumped")
}

func TestStreamCompletionUpstreamErrorKeepsPlaceholderEmpty(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")
	placeholder := makeMessage(t, conv.ID, provider.RoleModel, "")

	stubOpener(t, &fakeAdapter{deltas: []string{"par"}, err: errors.New("upstream reset")}, nil)

	c, w := streamContext(t)
	svc := ChatService{}
	err := svc.StreamCompletion(c, conv, placeholder.ID)
	require.Error(t, err)

	// The delivered chunk stays delivered, but partial text is never
	// persisted; the failed flag is the error indicator instead.
	assert.Equal(t, "par", w.Body.String())
	saved, getErr := model.GetMessage(conv.ID, placeholder.ID)
	require.NoError(t, getErr)
	assert.Empty(t, saved.Content)
	assert.True(t, saved.Failed)
}

func TestStreamCompletionConfigErrorBeforeFirstChunk(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")
	placeholder := makeMessage(t, conv.ID, provider.RoleModel, "")

	stubOpener(t, nil, errors.New("gemini: api key required"))

	c, w := streamContext(t)
	svc := ChatService{}
	err := svc.StreamCompletion(c, conv, placeholder.ID)
	require.Error(t, err)

	assert.Zero(t, w.Body.Len(), "no chunk may be emitted on a configuration error")
	saved, getErr := model.GetMessage(conv.ID, placeholder.ID)
	require.NoError(t, getErr)
	assert.Empty(t, saved.Content)
	assert.False(t, saved.Failed, "placeholder must be untouched")
}

func TestStreamCompletionRejectsConcurrentStream(t *testing.T) {
	setupDB(t)
	conv := makeConversation(t, "dev-1", "gemini-2-5-flash")
	placeholder := makeMessage(t, conv.ID, provider.RoleModel, "")

	stubOpener(t, &fakeAdapter{deltas: []string{"x"}}, nil)

	require.True(t, guards.acquire(conv.ID))
	defer guards.release(conv.ID)

	c, _ := streamContext(t)
	svc := ChatService{}
	err := svc.StreamCompletion(c, conv, placeholder.ID)
	assert.ErrorIs(t, err, ErrStreamInProgress)
}
