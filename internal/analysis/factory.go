package analysis

import (
	"fmt"

	"github.com/lehigh-university-libraries/snapcard/internal/config"
	"github.com/lehigh-university-libraries/snapcard/internal/gemini"
	"github.com/lehigh-university-libraries/snapcard/internal/ollama"
	"github.com/lehigh-university-libraries/snapcard/internal/openai"
	"github.com/lehigh-university-libraries/snapcard/internal/providers"
)

// DefaultModel returns the model used when api.model is empty.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "ollama":
		return "mistral-small3.2:24b"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

// NewProvider builds the backend named by cfg.Provider.
func NewProvider(cfg config.APIConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(cfg.APIKey, cfg.BaseURL), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == openai.DefaultBaseURL {
			baseURL = ""
		}
		return ollama.New(baseURL), nil
	case "gemini":
		return gemini.New(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// Params converts the API settings into request parameters.
func Params(cfg config.APIConfig) providers.Params {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}
	return providers.Params{
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

// NewInvokerFromConfig wires a provider and invoker from configuration.
func NewInvokerFromConfig(cfg config.APIConfig) (*Invoker, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewInvoker(p, Params(cfg), cfg.Timeout), nil
}
