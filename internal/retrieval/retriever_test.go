package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// mockVectorStore implements VectorStore for testing.
type mockVectorStore struct {
	count     int
	countErr  error
	results   []ScoredRecord
	searchErr error
	lastTopK  int
	searched  bool
}

func (m *mockVectorStore) Insert(_ context.Context, _ []Record) error { return nil }
func (m *mockVectorStore) Search(_ context.Context, _ []float32, topK int) ([]ScoredRecord, error) {
	m.searched = true
	m.lastTopK = topK
	return m.results, m.searchErr
}
func (m *mockVectorStore) Count(_ context.Context) (int, error) { return m.count, m.countErr }
func (m *mockVectorStore) Reset(_ context.Context) error        { return nil }

func scored(texts ...string) []ScoredRecord {
	out := make([]ScoredRecord, len(texts))
	for i, t := range texts {
		out[i] = ScoredRecord{Record: Record{ID: t, Text: t}, Score: 1 - float32(i)*0.1}
	}
	return out
}

func TestRetrieve_ReturnsTexts(t *testing.T) {
	store := &mockVectorStore{count: 10, results: scored("Product: A", "Product: B")}
	r := NewRetriever(NewEmbedder(fixedEngine([]float32{1, 0}), "m"), store)

	got := r.Retrieve(context.Background(), "dry skin", 0)
	if want := []string{"Product: A", "Product: B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Retrieve() = %v, want %v", got, want)
	}
	if store.lastTopK != DefaultLimit {
		t.Errorf("topK = %d, want default %d", store.lastTopK, DefaultLimit)
	}
}

func TestRetrieve_EmptyIndexSkipsEmbedding(t *testing.T) {
	store := &mockVectorStore{count: 0}
	r := NewRetriever(NewEmbedder(&mockEngine{embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
		t.Fatal("embed should not run on an empty index")
		return nil, nil
	}}, "m"), store)

	got := r.Retrieve(context.Background(), "q", 3)
	if got == nil || len(got) != 0 {
		t.Errorf("Retrieve() = %#v, want empty non-nil slice", got)
	}
	if store.searched {
		t.Error("search should not run on an empty index")
	}
}

func TestRetrieve_FailuresYieldEmpty(t *testing.T) {
	failingEmbed := &mockEngine{embedFn: func(_ context.Context, _ string, _ string) ([]float32, error) {
		return nil, errors.New("ollama down")
	}}
	tests := []struct {
		name string
		r    *Retriever
	}{
		{"nil retriever", nil},
		{"no store", NewRetriever(NewEmbedder(fixedEngine([]float32{1}), "m"), nil)},
		{"no embedder", NewRetriever(nil, &mockVectorStore{count: 1})},
		{"count error", NewRetriever(NewEmbedder(fixedEngine([]float32{1}), "m"), &mockVectorStore{countErr: errors.New("locked")})},
		{"embed error", NewRetriever(NewEmbedder(failingEmbed, "m"), &mockVectorStore{count: 1})},
		{"search error", NewRetriever(NewEmbedder(fixedEngine([]float32{1}), "m"), &mockVectorStore{count: 1, searchErr: errors.New("bad")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.Retrieve(context.Background(), "q", 3)
			if got == nil || len(got) != 0 {
				t.Errorf("Retrieve() = %#v, want empty slice", got)
			}
		})
	}
}

func TestSearch_Unavailable(t *testing.T) {
	_, err := NewRetriever(nil, nil).Search(context.Background(), "q", 3)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestRetrieve_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(openTestDB(t))
	if err := store.Insert(ctx, []Record{
		{ID: "a", DocID: "product_1", Source: "catalog", Text: "Product: Cream", Embedding: []float32{1, 0}},
		{ID: "b", DocID: "info_0", Source: "additional_info", Text: "Sunscreen guide", Embedding: []float32{0, 1}},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	r := NewRetriever(NewEmbedder(fixedEngine([]float32{0.2, 0.9}), "m"), store)
	got := r.Retrieve(ctx, "spf", 1)
	if want := []string{"Sunscreen guide"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Retrieve() = %v, want %v", got, want)
	}
}
