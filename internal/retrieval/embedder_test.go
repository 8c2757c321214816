package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kalambet/skinshop/internal/engine"
)

// mockEngine implements engine.Engine for testing.
type mockEngine struct {
	embedFn func(ctx context.Context, model string, text string) ([]float32, error)
}

func (m *mockEngine) Chat(_ context.Context, _ string, _ []engine.Message, _ *engine.ChatOptions) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (m *mockEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	return m.embedFn(ctx, model, text)
}
func (m *mockEngine) IsRunning(_ context.Context) bool               { return true }
func (m *mockEngine) ListModels(_ context.Context) ([]string, error) { return nil, nil }
func (m *mockEngine) HasModel(_ context.Context, _ string) bool      { return true }
func (m *mockEngine) PullModel(_ context.Context, _ string, _ func(engine.PullProgress)) error {
	return fmt.Errorf("not implemented")
}

func fixedEngine(vec []float32) *mockEngine {
	return &mockEngine{embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
		return vec, nil
	}}
}

func TestEmbed(t *testing.T) {
	e := NewEmbedder(fixedEngine(makeTestVector(384, 0)), "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "hyaluronic acid")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 384 {
		t.Errorf("got %d dimensions, want 384", len(vec))
	}
}

func TestEmbed_Error(t *testing.T) {
	e := NewEmbedder(&mockEngine{embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}}, "nomic-embed-text")
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEmbedBatch_AlignedWithInput(t *testing.T) {
	e := NewEmbedder(&mockEngine{embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
		return []float32{float32(len(text))}, nil
	}}, "m")

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d] = %v, want [%d]", i, v, i+1)
		}
	}
}

func TestEmbedBatch_Error(t *testing.T) {
	e := NewEmbedder(&mockEngine{embedFn: func(_ context.Context, _ string, text string) ([]float32, error) {
		if text == "b" {
			return nil, errors.New("embedding failed")
		}
		return []float32{1}, nil
	}}, "m")

	_, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "embedding failed") {
		t.Errorf("err = %v, want embedding failure", err)
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	e := NewEmbedder(&mockEngine{embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
		t.Fatal("should not be called for empty input")
		return nil, nil
	}}, "m")
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v", vecs, err)
	}
}
