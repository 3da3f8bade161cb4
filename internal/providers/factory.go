// internal/providers/factory.go
package providers

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/brandvoice/sov-workflows/internal/config"
	"github.com/brandvoice/sov-workflows/internal/providers/common"
)

// NewProvider creates the appropriate AI provider based on the model name
func NewProvider(modelName string, cfg *config.Config, costs common.CostEstimator) (TextGenerator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider factory requires a config")
	}

	modelLower := strings.ToLower(modelName)

	// Gemini provider (REST)
	if strings.Contains(modelLower, "gemini") {
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key is empty in config")
		}
		log.Info().Str("model", modelName).Msg("[ProviderFactory] 🎯 Selected Gemini provider")
		return NewGeminiProvider(cfg, modelName, costs), nil
	}

	// OpenAI provider (gpt-4.1, etc.)
	if strings.Contains(modelLower, "gpt") || strings.Contains(modelLower, "4.1") {
		if cfg.OpenAIAPIKey == "" && cfg.AzureOpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is empty in config")
		}
		log.Info().Str("model", modelName).Msg("[ProviderFactory] 🎯 Selected OpenAI provider")
		return NewOpenAIProvider(cfg, modelName, costs), nil
	}

	// Anthropic provider
	if strings.Contains(modelLower, "claude") || strings.Contains(modelLower, "sonnet") ||
		strings.Contains(modelLower, "opus") || strings.Contains(modelLower, "haiku") {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic API key is empty in config")
		}
		log.Info().Str("model", modelName).Msg("[ProviderFactory] 🎯 Selected Anthropic provider")
		return NewAnthropicProvider(cfg, modelName, costs), nil
	}

	return nil, fmt.Errorf("unsupported model: %s", modelName)
}
