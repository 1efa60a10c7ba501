package service

import (
	"bytes"
	"fmt"
	"strings"

	"tealchat/model"

	"github.com/yuin/goldmark"
)

// TranscriptMarkdown renders a conversation as a markdown transcript.
// Pending placeholders are skipped; failed model messages are marked.
func TranscriptMarkdown(conv *model.Conversation, msgs []model.Message) string {
	title := conv.Title
	if title == "" {
		title = fallbackTitle
	}

	var b strings.Builder
	b.WriteString("# " + title + "\n")
	for _, m := range msgs {
		speaker := "You"
		if m.Role == "model" {
			speaker = "Assistant"
		}
		if m.Content == "" {
			if m.Failed {
				b.WriteString(fmt.Sprintf("\n**%s**\n\n_(response failed)_\n", speaker))
			}
			continue
		}
		b.WriteString(fmt.Sprintf("\n**%s**\n\n%s\n", speaker, m.Content))
	}
	return b.String()
}

// TranscriptHTML renders the markdown transcript to HTML.
func TranscriptHTML(conv *model.Conversation, msgs []model.Message) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(TranscriptMarkdown(conv, msgs)), &buf); err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}
	return buf.String(), nil
}
