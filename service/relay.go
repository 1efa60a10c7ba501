package service

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"tealchat/model"
	"tealchat/provider"
)

// Relay copies provider deltas to the client as they arrive and returns
// the accumulated text. Each delta is written and flushed before the next
// one is taken from the channel, so chunk order is preserved end to end
// and the relay never races ahead of the transport. On a stream error the
// text accumulated so far is returned alongside the error; bytes already
// flushed cannot be unsent.
func Relay(w io.Writer, flusher http.Flusher, events <-chan provider.Event) (string, error) {
	var full strings.Builder
	for ev := range events {
		if ev.Err != nil {
			return full.String(), ev.Err
		}
		if ev.Text == "" {
			continue
		}
		if _, err := io.WriteString(w, ev.Text); err != nil {
			return full.String(), fmt.Errorf("write chunk: %w", err)
		}
		flusher.Flush()
		full.WriteString(ev.Text)
	}
	return full.String(), nil
}

// finalizeResponse commits a completed stream: the message content write
// is the primary operation, the conversation timestamp bump is best
// effort and never fails the commit.
func finalizeResponse(conversationID string, messageID string, content string) error {
	if err := model.FinalizeMessage(messageID, content); err != nil {
		return err
	}
	if err := model.TouchConversation(conversationID); err != nil {
		logger.Warnf("[%s] touch conversation error, %s", conversationID, err)
	}
	return nil
}
