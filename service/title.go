package service

import (
	"context"
	"fmt"
	"os"
	"strings"

	"tealchat/model"
	"tealchat/provider"
)

const (
	titleModel    = "gemini-1.5-flash"
	fallbackTitle = "Untitled Chat"
)

type TitleService struct {
}

// GenerateTitle asks Gemini for a short title based on the first user
// message and stores it on the conversation.
func (s *TitleService) GenerateTitle(ctx context.Context, conversationID string) (string, error) {
	first, err := model.FirstUserMessage(conversationID)
	if err != nil {
		return "", err
	}

	g, err := provider.NewGemini(provider.GeminiConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		BaseURL: os.Getenv("GEMINI_BASE_URL"),
	})
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Generate a very short, concise title (4 words max) for a conversation that starts with: %q. "+
			"Do not use quotes or any other formatting in your response. Just return the plain text title.",
		first.Content)

	raw, err := g.GenerateContent(ctx, titleModel, prompt)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
	if title == "" {
		title = fallbackTitle
	}

	if err := model.UpdateConversationTitle(conversationID, title); err != nil {
		return "", err
	}
	return title, nil
}
