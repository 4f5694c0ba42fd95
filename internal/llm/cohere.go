package llm

import (
	"context"
	"fmt"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereProvider completes prompts through the Cohere Chat API.
type CohereProvider struct {
	client *cohereclient.Client
	model  string
	label  string
}

// NewCohereProviders returns one provider per API key, in key order.
func NewCohereProviders(apiKeys []string, model string) []Provider {
	providers := make([]Provider, 0, len(apiKeys))
	for i, key := range apiKeys {
		providers = append(providers, &CohereProvider{
			client: cohereclient.NewClient(cohereclient.WithToken(key)),
			model:  model,
			label:  fmt.Sprintf("cohere[%d]", i),
		})
	}
	return providers
}

func (p *CohereProvider) Name() string { return p.label }

func (p *CohereProvider) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	resp, err := p.client.Chat(ctx, &cohere.ChatRequest{
		Message:     prompt,
		Model:       &p.model,
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", fmt.Errorf("cohere returned empty response")
	}

	return resp.Text, nil
}
