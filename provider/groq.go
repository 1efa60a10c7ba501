package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqConfig holds configuration for the Groq adapter.
type GroqConfig struct {
	APIKey  string
	BaseURL string // optional, defaults to https://api.groq.com/openai/v1
}

// Groq drives Groq's OpenAI-compatible chat completion API through the
// openai client pointed at the Groq base URL.
type Groq struct {
	client *openai.Client
}

// NewGroq creates a Groq adapter. A missing API key is a configuration
// error, reported before any request is made.
func NewGroq(cfg GroqConfig) (*Groq, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("groq: api key required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	// The client resolves request paths against the base URL, which
	// needs a trailing slash to keep the /openai/v1 prefix.
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Groq{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(cfg.APIKey),
		),
	}, nil
}

// Stored role "model" maps to the OpenAI-style "assistant" role.
func groqHistory(history []Message) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		role := openai.ChatCompletionMessageParamRoleUser
		if m.Role == RoleModel {
			role = openai.ChatCompletionMessageParamRoleAssistant
		}
		var content any = m.Content
		messages = append(messages, openai.ChatCompletionMessageParam{
			Role:    openai.F(role),
			Content: openai.F(content),
		})
	}
	return messages
}

// OpenStream opens a streaming chat completion and emits one Event per
// content delta.
func (g *Groq) OpenStream(ctx context.Context, model string, history []Message) (<-chan Event, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("groq: model name required")
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(groqHistory(history)),
		Model:    openai.F(model),
	}

	stream := g.client.Chat.Completions.NewStreaming(ctx, params)

	events := make(chan Event, 8)
	go func() {
		defer close(events)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			select {
			case events <- Event{Text: text}:
			case <-ctx.Done():
				// The consumer may be gone already; never block on the
				// final error send.
				select {
				case events <- Event{Err: ctx.Err()}:
				default:
				}
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case events <- Event{Err: fmt.Errorf("groq: stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return events, nil
}
