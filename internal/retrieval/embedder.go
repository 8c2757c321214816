package retrieval

import (
	"context"
	"fmt"

	"github.com/kalambet/skinshop/internal/engine"
	"golang.org/x/sync/errgroup"
)

const embedConcurrency = 4

// Embedder turns text into vectors with one embedding model.
type Embedder struct {
	eng       engine.Engine
	modelName string
}

// NewEmbedder creates an Embedder for modelName on eng.
func NewEmbedder(eng engine.Engine, modelName string) *Embedder {
	return &Embedder{eng: eng, modelName: modelName}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.modelName }

// Embed returns the vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.eng.Embed(ctx, e.modelName, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch embeds texts with bounded concurrency. The result is aligned
// with the input. Empty input yields nil.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.eng.Embed(gCtx, e.modelName, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
