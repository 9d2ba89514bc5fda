package llm

import (
	"fmt"
	"os"
)

// ProviderSpec describes one backend to construct. APIKeyEnv names the
// environment variable holding the credential; empty selects the
// conventional variable for the provider type. BaseURL is only
// meaningful for ollama and moonshot.
type ProviderSpec struct {
	Type      string
	Model     string
	BaseURL   string
	APIKeyEnv string
}

// NewProvider creates an LLM provider from a spec.
// Supported provider types: "openai", "ollama", "moonshot", "anthropic", "groq".
func NewProvider(spec ProviderSpec) (Provider, error) {
	switch spec.Type {
	case "openai":
		apiKey, err := keyFromEnv(spec.APIKeyEnv, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAIProvider(apiKey, spec.Model), nil

	case "moonshot":
		apiKey, err := keyFromEnv(spec.APIKeyEnv, "KIMI_API_KEY")
		if err != nil {
			return nil, err
		}
		baseURL := spec.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("KIMI_API_URL")
		}
		return NewMoonshotProvider(apiKey, baseURL, spec.Model), nil

	case "anthropic":
		apiKey, err := keyFromEnv(spec.APIKeyEnv, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(apiKey, spec.Model), nil

	case "groq":
		apiKey, err := keyFromEnv(spec.APIKeyEnv, "GROQ_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGroqProvider(apiKey, spec.Model), nil

	case "ollama":
		baseURL := spec.BaseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_HOST")
		}
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return NewOllamaProvider(baseURL, spec.Model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", spec.Type)
	}
}

func keyFromEnv(envName, fallback string) (string, error) {
	if envName == "" {
		envName = fallback
	}
	apiKey := os.Getenv(envName)
	if apiKey == "" {
		return "", fmt.Errorf("%s environment variable is not set", envName)
	}
	return apiKey, nil
}
