package factory

import (
	"fmt"
	"time"

	"line-work-assistant/pkg/llm"
	"line-work-assistant/pkg/llm/ollama"
	"line-work-assistant/pkg/llm/openai"
)

const huggingFaceRouterURL = "https://router.huggingface.co/v1"

type ProviderConfig struct {
	Type          string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string
	HFAPIKey      string
	Timeout       time.Duration
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "openai", "":
		return openai.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Timeout), nil
	case "huggingface":
		// The HF router speaks the OpenAI chat completions dialect
		return openai.NewProvider(cfg.HFAPIKey, huggingFaceRouterURL, cfg.Model, cfg.Timeout), nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
