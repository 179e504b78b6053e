package provider

import (
	"fmt"
	"strings"
	"time"

	"deepfund/internal/config"
	"deepfund/internal/logger"
)

// BuildFromConfig 根据 llm 配置构建决策模型。
func BuildFromConfig(cfg config.LLMConfig) (ModelProvider, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch kind {
	case "openai", "deepseek", "qwen", "openrouter", "ollama", "compatible":
	default:
		return nil, config.Invalid("llm.provider", "unsupported provider %q", cfg.Provider)
	}
	key := cfg.ResolvedAPIKey()
	if key == "" && kind != "ollama" {
		return nil, config.Invalid("llm.api_key", "missing (set llm.api_key or the %s environment variable)", cfg.APIKeyEnv)
	}
	id := fmt.Sprintf("%s:%s", kind, strings.TrimSpace(cfg.Model))
	logger.Debugf("oracle provider %s at %s", id, cfg.APIURL)
	return NewOpenAIProvider(OpenAIOptions{
		ID:          id,
		BaseURL:     cfg.APIURL,
		APIKey:      key,
		Model:       cfg.Model,
		Headers:     cfg.Headers,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}), nil
}
