package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultLimit is the number of snippets returned when the caller passes
	// a non-positive limit.
	DefaultLimit  = 3
	searchTimeout = 5 * time.Second
)

// ErrUnavailable is returned by Search when no embedder or store is wired.
var ErrUnavailable = errors.New("retrieval index unavailable")

// ContextChunk is a retrieved snippet with its similarity score.
type ContextChunk struct {
	ID     string  `json:"id"`
	DocID  string  `json:"doc_id"`
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// Retriever embeds queries and looks up the closest indexed documents.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever. Either argument may be nil, in which case
// Retrieve always returns no context.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns the text of up to limit snippets relevant to query.
// It never fails: an unavailable or empty index, or any embedding or search
// error, yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) []string {
	chunks, err := r.Search(ctx, query, limit)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			slog.Debug("retrieval skipped", "reason", err)
		} else {
			slog.Warn("retrieval failed, continuing without context", "error", err)
		}
		return []string{}
	}
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return texts
}

// Search is the error-returning form of Retrieve.
func (r *Retriever) Search(ctx context.Context, query string, limit int) ([]ContextChunk, error) {
	if r == nil || r.embedder == nil || r.store == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	n, err := r.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		slog.Debug("retrieval index is empty")
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	scored, err := r.store.Search(ctx, vec, limit)
	if err != nil {
		return nil, err
	}

	chunks := make([]ContextChunk, len(scored))
	for i, s := range scored {
		chunks[i] = ContextChunk{ID: s.ID, DocID: s.DocID, Source: s.Source, Text: s.Text, Score: s.Score}
	}
	return chunks, nil
}
