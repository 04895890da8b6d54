package perception

import (
	"fmt"

	"go.uber.org/zap"

	"certeval/internal/config"
)

// NewChainFromConfig builds the prioritized completion fallback chain:
// each configured Groq model in order, then Gemini. At least one API key
// must be present.
func NewChainFromConfig(cfg *config.Config, log *zap.Logger) (*FallbackClient, error) {
	var backends []Backend

	if cfg.LLM.GroqAPIKey != "" {
		for _, model := range cfg.LLM.GroqModels {
			gc := DefaultGroqConfig(cfg.LLM.GroqAPIKey)
			if cfg.LLM.GroqBaseURL != "" {
				gc.BaseURL = cfg.LLM.GroqBaseURL
			}
			gc.Model = model
			backends = append(backends, Backend{
				Name:   model,
				Client: NewGroqClientWithConfig(gc),
			})
		}
	}

	if cfg.LLM.GeminiAPIKey != "" {
		gc := DefaultGeminiConfig(cfg.LLM.GeminiAPIKey)
		if cfg.LLM.GeminiModel != "" {
			gc.Model = cfg.LLM.GeminiModel
		}
		backends = append(backends, Backend{
			Name:   gc.Model,
			Client: NewGeminiClientWithConfig(gc),
		})
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no completion backend available; set GROQ_API_KEY or GEMINI_API_KEY")
	}

	return NewFallbackClient(log, backends...), nil
}
