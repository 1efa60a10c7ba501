package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tealchat/model"
	"tealchat/platform"
	"tealchat/provider"

	"github.com/gin-gonic/gin"
)

var logger = platform.Logger

const (
	// historyLimit caps how many stored messages are sent upstream as
	// conversation context.
	historyLimit = 20

	// maxStreamDuration bounds one streaming request end to end.
	maxStreamDuration = 5 * time.Minute
)

// openerFor builds the provider adapter for a descriptor. A variable so
// tests can substitute a fake upstream.
var openerFor = provider.ForDescriptor

type ChatService struct {
}

// History loads the recent context of a conversation for the upstream
// call: at most historyLimit messages, oldest first, empty placeholders
// excluded. A store failure degrades to empty history rather than failing
// the request; the model just loses context.
func (s *ChatService) History(conversationID string) []provider.Message {
	msgs, err := model.RecentHistory(conversationID, historyLimit)
	if err != nil {
		logger.Warnf("[%s] fetch history error, %s", conversationID, err)
		return nil
	}

	history := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		history = append(history, provider.Message{Role: m.Role, Content: m.Content})
	}
	return history
}

// StreamCompletion opens an upstream completion for the conversation's
// model, relays deltas to the client as they arrive and persists the full
// text once the stream ends. Errors returned before the first byte is
// written can still be mapped to an HTTP status by the caller; after that
// the response is already committed.
func (s *ChatService) StreamCompletion(c *gin.Context, conv *model.Conversation, messageID string) error {
	requestID := c.GetString("requestId")

	if !guards.acquire(conv.ID) {
		return ErrStreamInProgress
	}
	defer guards.release(conv.ID)

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("streaming unsupported by response writer")
	}

	desc := provider.Resolve(conv.ModelID)
	adapter, err := openerFor(desc)
	if err != nil {
		return fmt.Errorf("resolve provider: %w", err)
	}

	history := s.History(conv.ID)

	// Tie the upstream read loop to the client connection: a disconnect
	// cancels the request context and with it the provider call.
	ctx, cancel := context.WithTimeout(c.Request.Context(), maxStreamDuration)
	defer cancel()

	events, err := adapter.OpenStream(ctx, desc.Name, history)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	full, err := Relay(w, flusher, events)
	if err != nil {
		if !w.Written() {
			// Nothing reached the client yet, so the caller's JSON error
			// fallback owns the response; drop the streaming headers.
			w.Header().Del("Content-Type")
			w.Header().Del("Cache-Control")
		}
		logger.Warnf("[%s] stream error after %d bytes, %s", requestID, len(full), err)
		// Partial text is never finalized; the failed flag is the
		// client's explicit error indicator.
		if markErr := model.MarkMessageFailed(messageID); markErr != nil {
			logger.Warnf("[%s] mark message failed error, %s", requestID, markErr)
		}
		return fmt.Errorf("upstream stream: %w", err)
	}

	if err := finalizeResponse(conv.ID, messageID, full); err != nil {
		logger.Errorf("[%s] finalize message error, %s", requestID, err)
		if markErr := model.MarkMessageFailed(messageID); markErr != nil {
			logger.Warnf("[%s] mark message failed error, %s", requestID, markErr)
		}
		return fmt.Errorf("persist final text: %w", err)
	}

	logger.Infof("[%s] stream finished, %d bytes persisted for message %s", requestID, len(full), messageID)
	return nil
}
