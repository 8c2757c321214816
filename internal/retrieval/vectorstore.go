package retrieval

import (
	"context"
	"time"
)

// VectorStore stores document embeddings and answers similarity queries.
// The default backend is SQLiteStore; the pipeline only relies on this
// interface.
type VectorStore interface {
	// Insert adds or replaces records.
	Insert(ctx context.Context, records []Record) error

	// Search returns up to topK records ordered by descending similarity.
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset removes every record.
	Reset(ctx context.Context) error
}

// Record is one embedded document.
type Record struct {
	ID        string
	DocID     string
	Source    string // "catalog" or "additional_info"
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

// ScoredRecord is a Record with its cosine similarity to the query.
type ScoredRecord struct {
	Record
	Score float32
}
