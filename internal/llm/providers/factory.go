package providers

import (
	"context"
	"fmt"
	"net/http"

	"graphrag/internal/config"
	"graphrag/internal/llm"
)

// Build constructs the primary llm.Provider from the configured LLM section.
func Build(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (llm.Provider, error) {
	return build(ctx, cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.EmbeddingModel, httpClient)
}

// BuildFallback constructs the secondary llm.Provider from the configured
// fallback fields, or returns (nil, nil) when no fallback provider is set —
// a Gateway with no fallback degrades gracefully to primary-only.
func BuildFallback(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (llm.Provider, error) {
	if cfg.FallbackProvider == "" {
		return nil, nil
	}
	return build(ctx, cfg.FallbackProvider, cfg.FallbackBaseURL, cfg.FallbackAPIKey, cfg.FallbackModel, cfg.EmbeddingModel, httpClient)
}

func build(ctx context.Context, provider, baseURL, apiKey, model, embeddingModel string, httpClient *http.Client) (llm.Provider, error) {
	switch provider {
	case "", "openai", "local":
		return NewOpenAIProvider(apiKey, baseURL, model, embeddingModel, httpClient), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey, model, httpClient), nil
	case "google":
		return NewGoogleProvider(ctx, apiKey, model, embeddingModel)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", provider)
	}
}
