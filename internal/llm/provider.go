package llm

import "context"

// Provider abstracts a completion backend so the dispatch layers don't
// care whether replies come from a local model or a cloud API.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider's name (e.g. "ollama", "openai", "moonshot").
	Name() string
}
