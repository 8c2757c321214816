package engine

import (
	"context"
	"errors"

	"github.com/kalambet/skinshop/internal/model"
	"github.com/kalambet/skinshop/internal/ollama"
)

// ChatGenerator exposes one chat model of an Engine as a model.Generator.
// Each prompt is sent as a single user message.
type ChatGenerator struct {
	eng       Engine
	modelName string
	opts      *ChatOptions
}

// NewGenerator returns a generator that sends prompts to modelName on eng.
func NewGenerator(eng Engine, modelName string, opts *ChatOptions) *ChatGenerator {
	return &ChatGenerator{eng: eng, modelName: modelName, opts: opts}
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.eng.Chat(ctx, g.modelName, []Message{{Role: "user", Content: prompt}}, g.opts)
	if err != nil {
		var se *ollama.StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return "", model.Permanent(err)
		}
		return "", err
	}
	return out, nil
}
