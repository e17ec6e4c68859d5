package enrichment

import (
	"context"
)

// Prompt is one completion request. ImageURL attaches an image for
// providers that accept one.
type Prompt struct {
	System   string
	User     string
	ImageURL string
}

// Provider sends a prompt to an annotation service and returns its raw text.
//
// Implementations:
//   - OpenAIProvider: chat completions over HTTP, supports images
//   - AnthropicProvider: Claude via llmkit, text only
type Provider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
