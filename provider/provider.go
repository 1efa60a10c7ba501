package provider

import (
	"context"
	"fmt"
	"os"
)

// Provider names as stored in model descriptors.
const (
	ProviderGoogle = "google"
	ProviderGroq   = "groq"
)

// Roles as stored on message rows.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of conversation history, in storage form. Adapters
// reshape it into whatever the upstream API expects.
type Message struct {
	Role    string
	Content string
}

// Event is one item of a completion stream: a text delta or a terminal
// error. The stream channel is closed after the final event.
type Event struct {
	Text string
	Err  error
}

// Adapter opens a streaming completion against one upstream provider.
// The returned channel is lazy, single-pass and finite; re-invoking opens
// a fresh upstream call.
type Adapter interface {
	OpenStream(ctx context.Context, model string, history []Message) (<-chan Event, error)
}

// Descriptor maps a user-facing model slug to an upstream provider and
// its API model name.
type Descriptor struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
}

// catalog is the static model table, loaded once. Slugs match the ones the
// frontend stores on a conversation.
var catalog = map[string]Descriptor{
	"gemini-2-5-flash":            {Provider: ProviderGoogle, Name: "gemini-1.5-flash"},
	"llama-3-3-70b":               {Provider: ProviderGroq, Name: "llama-3.3-70b-versatile"},
	"llama-4-maverick":            {Provider: ProviderGroq, Name: "llama4-maverick"},
	"qwen-qwq-32b":                {Provider: ProviderGroq, Name: "qwen-qwq-32b"},
	"deepseek-r1-llama-distilled": {Provider: ProviderGroq, Name: "deepseek-r1-llama-distilled"},
}

const defaultSlug = "gemini-2-5-flash"

// Resolve returns the descriptor for a model slug, falling back to the
// default model when the slug is unknown or empty.
func Resolve(slug string) Descriptor {
	if d, ok := catalog[slug]; ok {
		return d
	}
	return catalog[defaultSlug]
}

// ModelInfo is one catalog entry as served by the models endpoint.
type ModelInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Default  bool   `json:"default"`
}

// Catalog lists all known models.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, 0, len(catalog))
	for slug, d := range catalog {
		out = append(out, ModelInfo{
			ID:       slug,
			Provider: d.Provider,
			Name:     d.Name,
			Default:  slug == defaultSlug,
		})
	}
	return out
}

// ForDescriptor builds the adapter for a descriptor, reading credentials
// from the environment. A missing credential fails here, before any
// network call is made.
func ForDescriptor(d Descriptor) (Adapter, error) {
	switch d.Provider {
	case ProviderGoogle:
		return NewGemini(GeminiConfig{
			APIKey:  os.Getenv("GEMINI_API_KEY"),
			BaseURL: os.Getenv("GEMINI_BASE_URL"),
		})
	case ProviderGroq:
		return NewGroq(GroqConfig{
			APIKey:  os.Getenv("GROQ_API_KEY"),
			BaseURL: os.Getenv("GROQ_BASE_URL"),
		})
	default:
		return nil, fmt.Errorf("provider: unsupported provider %q", d.Provider)
	}
}
