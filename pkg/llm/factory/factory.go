package factory

import (
	"fmt"

	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/echo"
	"ai-chat-be/pkg/llm/ollama"
	"ai-chat-be/pkg/llm/openai"
)

type ProviderConfig struct {
	ProviderType string
	ModelName    string
	BaseURL      string
	APIKey       string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.ProviderType {
	case "mistral":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.MistralBaseURL
		}
		return openai.NewOpenAIProvider(cfg.APIKey, baseURL, cfg.ModelName), nil
	case "openai":
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.ModelName), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.ModelName), nil
	case "echo":
		return echo.NewEchoProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.ProviderType)
	}
}
