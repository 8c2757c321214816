package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/storage"
)

// JobIndexDoc embeds one source doc into the vector store.
const JobIndexDoc = "index_doc"

// IndexStore is the storage the Indexer rewrites.
type IndexStore interface {
	ReplaceProducts(ctx context.Context, products []catalog.Product) error
	ResetSourceDocs(ctx context.Context) error
	SaveSourceDoc(ctx context.Context, doc storage.SourceDoc) error
	DeleteJobs(ctx context.Context, jobType string) error
	EnqueueJob(ctx context.Context, job storage.Job) error
}

// VectorResetter clears the retrieval index.
type VectorResetter interface {
	Reset(ctx context.Context) error
}

// Indexer turns a catalog and an info document into source docs and queues
// them for embedding.
type Indexer struct {
	store   IndexStore
	vectors VectorResetter
}

// NewIndexer creates an Indexer.
func NewIndexer(store IndexStore, vectors VectorResetter) *Indexer {
	return &Indexer{store: store, vectors: vectors}
}

type indexPayload struct {
	DocID string `json:"doc_id"`
}

// Rebuild replaces the catalog and rebuilds the retrieval corpus from
// scratch: one doc per product and one per info paragraph, each queued as an
// index_doc job. It returns the number of docs queued.
func (ix *Indexer) Rebuild(ctx context.Context, products []catalog.Product, infoText string) (int, error) {
	products = uniqueProducts(products)
	if err := ix.store.ReplaceProducts(ctx, products); err != nil {
		return 0, fmt.Errorf("replacing products: %w", err)
	}
	if err := ix.vectors.Reset(ctx); err != nil {
		return 0, fmt.Errorf("resetting vectors: %w", err)
	}
	if err := ix.store.DeleteJobs(ctx, JobIndexDoc); err != nil {
		return 0, fmt.Errorf("clearing index jobs: %w", err)
	}
	if err := ix.store.ResetSourceDocs(ctx); err != nil {
		return 0, fmt.Errorf("resetting source docs: %w", err)
	}

	var docs []storage.SourceDoc
	for _, p := range products {
		docs = append(docs, storage.SourceDoc{
			ID:      "product_" + p.ID,
			Source:  SourceCatalog,
			Title:   p.Name,
			Content: ProductDocument(p),
		})
	}
	for i, para := range SplitParagraphs(infoText) {
		docs = append(docs, storage.SourceDoc{
			ID:      fmt.Sprintf("info_%d", i),
			Source:  SourceInfo,
			Content: para,
		})
	}

	for _, d := range docs {
		if err := ix.store.SaveSourceDoc(ctx, d); err != nil {
			return 0, fmt.Errorf("saving doc %s: %w", d.ID, err)
		}
		payload, err := json.Marshal(indexPayload{DocID: d.ID})
		if err != nil {
			return 0, fmt.Errorf("marshaling payload: %w", err)
		}
		if err := ix.store.EnqueueJob(ctx, storage.Job{
			ID:          uuid.NewString(),
			Type:        JobIndexDoc,
			PayloadJSON: string(payload),
		}); err != nil {
			return 0, fmt.Errorf("enqueueing doc %s: %w", d.ID, err)
		}
	}

	slog.Info("index rebuilt", "products", len(products), "docs", len(docs))
	return len(docs), nil
}

// uniqueProducts drops products without an id and keeps the first product
// for each repeated id.
func uniqueProducts(products []catalog.Product) []catalog.Product {
	seen := make(map[string]bool, len(products))
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		switch {
		case p.ID == "":
			slog.Warn("skipping product without product_id", "name", p.Name)
			continue
		case seen[p.ID]:
			slog.Warn("skipping duplicate product", "product_id", p.ID)
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
