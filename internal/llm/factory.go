package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/polyreq/internal/model"
)

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "ollama":
		return NewOllamaProvider(config)
	case "":
		// LLM disabled
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config into provider config
func ConfigFromModel(cfg model.Config) Config {
	return Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		StrictCodes: cfg.LLM.StrictCodes,
		MaxTokens:   cfg.LLM.MaxTokens,
		HTTPProxy:   cfg.HTTP.HTTPProxy,
		HTTPSProxy:  cfg.HTTP.HTTPSProxy,
		NoProxy:     cfg.HTTP.NoProxy,
	}
}
