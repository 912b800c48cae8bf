package engine

import (
	"fmt"

	"github.com/kalambet/codevoice/internal/proxy"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Backend       string // "openai" (default) or "ollama"
	OpenAIBaseURL string
	Keys          proxy.KeySource
	OllamaBaseURL string
}

// Detect returns the Engine named by cfg.Backend.
func Detect(cfg DetectConfig) (Engine, error) {
	switch cfg.Backend {
	case "", "openai":
		if cfg.Keys == nil {
			return nil, fmt.Errorf("openai backend requires an API key source")
		}
		return NewOpenAIEngine(cfg.Keys, cfg.OpenAIBaseURL), nil
	case "ollama":
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown completion backend %q", cfg.Backend)
	}
}
