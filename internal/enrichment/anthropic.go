package enrichment

import (
	"context"

	"github.com/aktagon/llmkit/anthropic/agents"
	"github.com/cockroachdb/errors"
)

// ErrImageUnsupported is returned by providers that cannot read images.
var ErrImageUnsupported = errors.New("provider does not accept image prompts")

// AnthropicProvider asks Claude through an llmkit chat agent. A fresh agent
// is created per prompt so no conversation history carries over between items.
type AnthropicProvider struct {
	maxTokens   int
	temperature float64
	chat        func(apiKey, system, user string, maxTokens int, temperature float64) (string, error)
	apiKey      string
}

var _ Provider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(apiKey string, maxTokens int, temperature float64) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:      apiKey,
		maxTokens:   maxTokens,
		temperature: temperature,
		chat:        llmkitChat,
	}
}

func llmkitChat(apiKey, system, user string, maxTokens int, temperature float64) (string, error) {
	agent, err := agents.New(apiKey)
	if err != nil {
		return "", errors.Wrap(err, "creating chat agent")
	}
	response, err := agent.Chat(user, &agents.ChatOptions{
		SystemPrompt: system,
		MaxTokens:    maxTokens,
		Temperature:  temperature,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat agent")
	}
	return response.Text, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if prompt.ImageURL != "" {
		return "", ErrImageUnsupported
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.chat(p.apiKey, prompt.System, prompt.User, p.maxTokens, p.temperature)
}
