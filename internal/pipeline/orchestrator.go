// Package pipeline runs one shopping query through classification,
// retrieval, answering, ranking and follow-up, and records the turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/skinshop/internal/answer"
	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/followup"
	"github.com/kalambet/skinshop/internal/intent"
	"github.com/kalambet/skinshop/internal/ranking"
	"github.com/kalambet/skinshop/internal/retrieval"
	"github.com/kalambet/skinshop/internal/session"
)

var (
	// ErrEmptyQuery is returned when the query is blank.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrEmptyCatalog is returned when there is nothing to recommend.
	ErrEmptyCatalog = errors.New("no products found in catalog")
	// ErrInternal wraps an unexpected failure while assembling a response.
	ErrInternal = errors.New("internal error")
)

// Request is one incoming query.
type Request struct {
	Query     string   `json:"query" validate:"required"`
	SessionID string   `json:"session_id,omitempty"`
	Context   []string `json:"context,omitempty" validate:"omitempty,max=20,dive,max=4000"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	ClassifierUsedModel bool           `json:"classifier_used_model"`
	RankingSource       ranking.Source `json:"ranking_source,omitempty"`
	SessionCreated      bool           `json:"session_created"`
	RetrievedSnippets   int            `json:"retrieved_snippets"`
	ClassifyMs          int64          `json:"classify_ms"`
	RetrieveMs          int64          `json:"retrieve_ms"`
	TotalMs             int64          `json:"total_ms"`
}

// Response is the pipeline result. FollowUp is nil unless the query was a
// recommendation request.
type Response struct {
	QueryType           intent.Label      `json:"query_type"`
	Answer              string            `json:"answer"`
	Products            []catalog.Product `json:"products"`
	FollowUp            *string           `json:"follow_up_question"`
	Context             []string          `json:"context"`
	SessionID           string            `json:"session_id"`
	ConversationContext string            `json:"conversation_context"`
	Metadata            Metadata          `json:"metadata"`
}

// Retriever returns context snippets for a query and never fails.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) []string
}

// Deps are the components an Orchestrator sequences. Classifier, Answers,
// Ranker and FollowUps may be built around a nil model caller; Retriever may
// be nil.
type Deps struct {
	Classifier     *intent.Classifier
	Retriever      Retriever
	Catalog        catalog.Source
	Sessions       session.Store
	Answers        *answer.Generator
	Ranker         *ranking.Ranker
	FollowUps      *followup.Generator
	RetrievalLimit int
}

// Orchestrator sequences the components for each query. It is safe for
// concurrent use; per-session ordering is left to the session store.
type Orchestrator struct {
	deps Deps
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.RetrievalLimit <= 0 {
		deps.RetrievalLimit = retrieval.DefaultLimit
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(nil)
	}
	if deps.Answers == nil {
		deps.Answers = answer.NewGenerator(nil)
	}
	if deps.Ranker == nil {
		deps.Ranker = ranking.NewRanker(nil)
	}
	if deps.FollowUps == nil {
		deps.FollowUps = followup.NewGenerator(nil)
	}
	return &Orchestrator{deps: deps}
}

// Search answers one query. Model and retrieval failures degrade to fallbacks
// and never surface here; the errors returned are ErrEmptyQuery,
// ErrEmptyCatalog, a wrapped catalog or session error, or ErrInternal.
func (o *Orchestrator) Search(ctx context.Context, req Request) (resp Response, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("search panicked", "panic", r, "stack", string(debug.Stack()))
			resp, err = Response{}, fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, ErrEmptyQuery
	}

	var (
		decision   intent.Decision
		docs       []string
		meta       Metadata
		classifyMs int64
		retrieveMs int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		decision = o.deps.Classifier.Decide(gctx, query)
		classifyMs = time.Since(t).Milliseconds()
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		if o.deps.Retriever != nil {
			docs = o.deps.Retriever.Retrieve(gctx, query, o.deps.RetrievalLimit)
		}
		retrieveMs = time.Since(t).Milliseconds()
		return nil
	})
	_ = g.Wait()
	meta.ClassifierUsedModel = decision.UsedModel
	meta.ClassifyMs, meta.RetrieveMs = classifyMs, retrieveMs
	meta.RetrievedSnippets = len(docs)

	contextDocs := make([]string, 0, len(docs)+len(req.Context))
	contextDocs = append(contextDocs, docs...)
	for _, c := range req.Context {
		if c = strings.TrimSpace(c); c != "" {
			contextDocs = append(contextDocs, c)
		}
	}

	sess, created, err := o.deps.Sessions.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		return Response{}, fmt.Errorf("loading session: %w", err)
	}
	meta.SessionCreated = created

	products, err := o.deps.Catalog.Products(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("loading catalog: %w", err)
	}
	if len(products) == 0 {
		return Response{}, ErrEmptyCatalog
	}

	prefs, err := o.deps.Sessions.ExtractPreferences(ctx, sess.ID, query)
	if err != nil {
		return Response{}, fmt.Errorf("updating preferences: %w", err)
	}
	summary, err := o.deps.Sessions.Summary(ctx, sess.ID)
	if err != nil {
		return Response{}, fmt.Errorf("reading conversation summary: %w", err)
	}

	ans := o.deps.Answers.Answer(ctx, query, contextDocs, summary, prefs)

	ranked := o.deps.Ranker.Rank(ctx, products, query, contextDocs, prefs)
	if len(ranked) > ranking.MaxResults {
		ranked = ranked[:ranking.MaxResults]
	}
	if len(ranked) > 0 {
		meta.RankingSource = ranked[0].Source
	}
	shown := ranking.Products(ranked)

	var follow *string
	if decision.Label == intent.Recommendation {
		q := o.deps.FollowUps.FollowUp(ctx, query, contextDocs, prefs, summary)
		follow = &q
	}

	ids := make([]string, len(shown))
	for i, p := range shown {
		ids[i] = p.ID
	}
	if err := o.deps.Sessions.AppendTurn(ctx, sess.ID, session.Turn{
		Query:      query,
		Intent:     decision.Label,
		Answer:     ans,
		ProductIDs: ids,
	}); err != nil {
		return Response{}, fmt.Errorf("recording turn: %w", err)
	}

	conversation, err := o.deps.Sessions.Summary(ctx, sess.ID)
	if err != nil {
		return Response{}, fmt.Errorf("reading conversation summary: %w", err)
	}

	meta.TotalMs = time.Since(start).Milliseconds()
	slog.Info("search",
		"session_id", sess.ID,
		"query_type", decision.Label,
		"products", len(shown),
		"ranking", meta.RankingSource,
		"context", len(contextDocs),
		"total_ms", meta.TotalMs,
	)

	return Response{
		QueryType:           decision.Label,
		Answer:              ans,
		Products:            shown,
		FollowUp:            follow,
		Context:             contextDocs,
		SessionID:           sess.ID,
		ConversationContext: conversation,
		Metadata:            meta,
	}, nil
}
