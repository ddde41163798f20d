package factory

import (
	"fmt"

	"astrolynx-be/pkg/llm"
	"astrolynx-be/pkg/llm/gemini"
	"astrolynx-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, geminiApiKey string) (llm.Provider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini", "":
		if geminiApiKey == "" {
			return nil, fmt.Errorf("gemini api key is required for the gemini provider")
		}
		return gemini.NewGeminiProvider(geminiApiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
