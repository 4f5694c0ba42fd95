package llm

import (
	"context"
	"fmt"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const anthropicMaxTokens = 4096

// AnthropicProvider completes prompts through the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey string
	model  string
	label  string
}

// NewAnthropicProviders returns one provider per API key, in key order.
func NewAnthropicProviders(apiKeys []string, model string) []Provider {
	providers := make([]Provider, 0, len(apiKeys))
	for i, key := range apiKeys {
		providers = append(providers, &AnthropicProvider{
			apiKey: key,
			model:  model,
			label:  fmt.Sprintf("anthropic[%d]", i),
		})
	}
	return providers
}

func (p *AnthropicProvider) Name() string { return p.label }

func (p *AnthropicProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	settings := types.RequestSettings{
		Model:       p.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: temperature,
	}

	response, err := anthropic.PromptWithSettings("", prompt, "", p.apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("anthropic prompt: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("anthropic returned empty content")
	}

	return response.Content[0].Text, nil
}
