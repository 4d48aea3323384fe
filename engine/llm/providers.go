// Package llm builds langchaingo chat models from provider settings.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names a chat model backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderGoogle    Provider = "googleai"
	ProviderMock      Provider = "mock"
)

// ProviderConfig selects and authenticates a chat model.
type ProviderConfig struct {
	Provider Provider
	Model    string
	APIKey   string
	APIURL   string
}

// NewModel creates an LLM instance based on the provider configuration.
func NewModel(ctx context.Context, p *ProviderConfig) (llms.Model, error) {
	if p == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	provider := Provider(strings.ToLower(strings.TrimSpace(string(p.Provider))))
	if provider != ProviderMock && strings.TrimSpace(p.Model) == "" {
		return nil, fmt.Errorf("%s: model is required", provider)
	}
	switch provider {
	case ProviderOpenAI:
		return createOpenAILLM(p)
	case ProviderAnthropic:
		return createAnthropicLLM(p)
	case ProviderOllama:
		return createOllamaLLM(p)
	case ProviderGoogle:
		return createGoogleLLM(ctx, p)
	case ProviderMock:
		return NewMockLLM(p.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", p.Provider)
	}
}

func createOpenAILLM(p *ProviderConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, openai.WithToken(p.APIKey))
	}
	if p.APIURL != "" {
		opts = append(opts, openai.WithBaseURL(p.APIURL))
	}
	return openai.New(opts...)
}

func createAnthropicLLM(p *ProviderConfig) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, anthropic.WithToken(p.APIKey))
	}
	if p.APIURL != "" {
		opts = append(opts, anthropic.WithBaseURL(p.APIURL))
	}
	return anthropic.New(opts...)
}

func createOllamaLLM(p *ProviderConfig) (llms.Model, error) {
	opts := []ollama.Option{
		ollama.WithModel(p.Model),
	}
	if p.APIURL != "" {
		opts = append(opts, ollama.WithServerURL(p.APIURL))
	}
	return ollama.New(opts...)
}

func createGoogleLLM(ctx context.Context, p *ProviderConfig) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(p.APIKey))
	}
	if p.APIURL != "" {
		return nil, fmt.Errorf("googleai does not support custom API URL")
	}
	return googleai.New(ctx, opts...)
}
