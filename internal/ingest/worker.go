package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/skinshop/internal/retrieval"
	"github.com/kalambet/skinshop/internal/storage"
)

const drainWorkers = 4

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(ctx context.Context, types []string) (*storage.Job, error)
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, errMsg string) error
	GetSourceDoc(ctx context.Context, id string) (storage.SourceDoc, error)
}

// ContentEmbedder generates embeddings for text.
type ContentEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorInserter inserts records into the vector store.
type VectorInserter interface {
	Insert(ctx context.Context, records []retrieval.Record) error
}

// Worker processes index_doc jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	embedder ContentEmbedder
	vectors  VectorInserter
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, embedder ContentEmbedder, vectors VectorInserter, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		poll:     pollInterval,
		logger:   slog.Default().With("component", "ingest"),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// Drain processes claimable jobs with drainWorkers goroutines until none is
// left and returns how many were handled. Jobs waiting out a retry backoff
// are left for Run.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	var n atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < drainWorkers; i++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				done, err := w.RunOnce(gctx)
				if err != nil {
					return err
				}
				if !done {
					return nil
				}
				n.Add(1)
			}
		})
	}
	err := g.Wait()
	return int(n.Load()), err
}

// RunOnce claims and processes a single index_doc job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx, []string{JobIndexDoc})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "attempt", job.Attempts+1, "error", err)
		if failErr := w.store.FailJob(ctx, job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload indexPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.store.GetSourceDoc(ctx, payload.DocID)
	if err != nil {
		return fmt.Errorf("loading source doc %s: %w", payload.DocID, err)
	}

	vec, err := w.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding content: %w", err)
	}

	// Keyed by doc id so a retried job overwrites instead of duplicating.
	rec := retrieval.Record{
		ID:        "vec_" + doc.ID,
		DocID:     doc.ID,
		Source:    doc.Source,
		Text:      doc.Content,
		Embedding: vec,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.vectors.Insert(ctx, []retrieval.Record{rec}); err != nil {
		return fmt.Errorf("inserting vector: %w", err)
	}

	w.logger.Debug("doc indexed", "doc_id", doc.ID, "dims", len(vec))
	return nil
}
