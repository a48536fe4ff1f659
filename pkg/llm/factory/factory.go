package factory

import (
	"fmt"

	"ai-agent-be/internal/config"
	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/llm/langchain"
	"ai-agent-be/pkg/llm/ollama"
	"ai-agent-be/pkg/llm/openai"
)

const (
	ProviderOllama           = "ollama"
	ProviderLangchainOllama  = "langchain-ollama"
	ProviderOpenAICompatible = "openai-compatible"
	ProviderOpenAI           = "openai"
)

// NewProvider builds the streaming client described by one routing table
// entry, throttled when the entry sets a rate.
func NewProvider(entry config.ModelEntry) (llm.StreamingProvider, error) {
	var (
		provider llm.StreamingProvider
		err      error
	)

	switch entry.Provider {
	case ProviderOllama:
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		provider = ollama.NewOllamaProvider(baseURL, entry.Model)
	case ProviderLangchainOllama:
		provider, err = langchain.NewOllama(entry.BaseURL, entry.Model)
	case ProviderOpenAICompatible:
		provider, err = langchain.NewOpenAICompatible(entry.BaseURL, entry.Model, entry.APIKey())
	case ProviderOpenAI:
		provider = openai.NewProvider(entry.BaseURL, entry.Model, entry.APIKey())
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q for model %s", entry.Provider, entry.Name)
	}
	if err != nil {
		return nil, err
	}

	if entry.RatePerSecond > 0 {
		provider = llm.NewThrottled(provider, entry.RatePerSecond, entry.Burst)
	}
	return provider, nil
}
