package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultMoonshotBaseURL is where the Moonshot (Kimi) API lives.
const DefaultMoonshotBaseURL = "https://api.moonshot.cn/v1"

// MoonshotProvider implements Provider using the Moonshot Kimi API,
// which speaks the OpenAI wire format.
type MoonshotProvider struct {
	client *openai.Client
	model  string
}

// NewMoonshotProvider creates a new Moonshot provider. An empty baseURL
// selects the public endpoint.
func NewMoonshotProvider(apiKey, baseURL, model string) *MoonshotProvider {
	if baseURL == "" {
		baseURL = DefaultMoonshotBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	client := openai.NewClientWithConfig(cfg)
	return &MoonshotProvider{
		client: client,
		model:  model,
	}
}

func (p *MoonshotProvider) Name() string {
	return "moonshot"
}

func (p *MoonshotProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	// Moonshot rejects temperatures outside (0.0, 1.0].
	if req.Temperature <= 0 {
		req.Temperature = 0.01
	} else if req.Temperature > 1.0 {
		req.Temperature = 1.0
	}
	return completeOpenAI(ctx, p.client, p.Name(), p.model, req)
}
