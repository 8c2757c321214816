package engine

import (
	"context"
	"fmt"

	"github.com/kalambet/skinshop/internal/model"
)

// Model providers accepted by Detect.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// DetectConfig holds parameters for backend selection.
type DetectConfig struct {
	Provider      string
	ChatModel     string
	OllamaBaseURL string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	MaxTokens     int
	Temperature   float64
}

// Backend is the selected inference setup. Engine serves embeddings and is
// always the local Ollama server. Generator is nil when the provider is
// "none", which leaves every model-driven step on its fallback.
type Backend struct {
	Provider  string
	Engine    Engine
	Generator model.Generator
}

// Detect builds the backend for cfg.Provider.
func Detect(ctx context.Context, cfg DetectConfig) (Backend, error) {
	b := Backend{
		Provider: cfg.Provider,
		Engine:   NewOllamaEngine(cfg.OllamaBaseURL),
	}
	switch cfg.Provider {
	case ProviderOllama, "":
		b.Provider = ProviderOllama
		b.Generator = NewGenerator(b.Engine, cfg.ChatModel, &ChatOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case ProviderOpenAI:
		gen, err := NewOpenAIGenerator(ctx, OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.ChatModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return Backend{}, err
		}
		b.Generator = gen
	case ProviderNone:
	default:
		return Backend{}, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	return b, nil
}
