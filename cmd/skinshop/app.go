package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/skinshop/internal/answer"
	"github.com/kalambet/skinshop/internal/api"
	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/config"
	"github.com/kalambet/skinshop/internal/engine"
	"github.com/kalambet/skinshop/internal/followup"
	"github.com/kalambet/skinshop/internal/ingest"
	"github.com/kalambet/skinshop/internal/intent"
	"github.com/kalambet/skinshop/internal/model"
	"github.com/kalambet/skinshop/internal/pipeline"
	"github.com/kalambet/skinshop/internal/ranking"
	"github.com/kalambet/skinshop/internal/retrieval"
	"github.com/kalambet/skinshop/internal/session"
	"github.com/kalambet/skinshop/internal/storage"
)

// app is the assembled service: HTTP handler, background worker and the
// optional MCP server, all sharing one store.
type app struct {
	store   *storage.Store
	handler http.Handler
	worker  *ingest.Worker
	indexer *ingest.Indexer
	mcp     *server.MCPServer
	backend engine.Backend
}

func (a *app) Close() error {
	return a.store.Close()
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	backend, err := engine.Detect(ctx, engine.DetectConfig{
		Provider:      cfg.Model.Provider,
		ChatModel:     cfg.Model.ChatModel,
		OllamaBaseURL: cfg.Ollama.BaseURL,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		MaxTokens:     cfg.Model.MaxTokens,
		Temperature:   cfg.ModelTemperature(),
	})
	if err != nil {
		return nil, fmt.Errorf("selecting model backend: %w", err)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	caller := model.NewCaller(backend.Generator,
		model.WithTimeout(cfg.ModelTimeout()),
		model.WithRetries(cfg.Model.Retries),
	)
	embedder := retrieval.NewEmbedder(backend.Engine, cfg.Model.EmbedModel)
	vectors := retrieval.NewSQLiteStore(store.DB())
	retriever := retrieval.NewRetriever(embedder, vectors)
	sessions := session.NewMemoryStore(cfg.SessionTTL())

	orch := pipeline.New(pipeline.Deps{
		Classifier:     intent.NewClassifier(caller),
		Retriever:      retriever,
		Catalog:        store,
		Sessions:       sessions,
		Answers:        answer.NewGenerator(caller),
		Ranker:         ranking.NewRanker(caller),
		FollowUps:      followup.NewGenerator(caller),
		RetrievalLimit: cfg.Retrieval.Limit,
	})
	indexer := ingest.NewIndexer(store, vectors)

	admin := api.NewAdminHandler(api.AdminDeps{
		Indexer:  indexer,
		Store:    store,
		Vectors:  vectors,
		Sessions: sessions,
		Token:    cfg.Server.AdminToken,
	})
	handler := api.NewHandler(api.Deps{
		Search:   orch,
		Catalog:  store,
		Sessions: sessions,
	}, admin)

	a := &app{
		store:   store,
		handler: handler,
		worker:  ingest.NewWorker(store, embedder, vectors, 500*time.Millisecond),
		indexer: indexer,
		backend: backend,
	}
	if cfg.Server.MCPEnabled {
		a.mcp = api.NewMCPServer(api.MCPDeps{
			Search:    orch,
			Catalog:   store,
			Sessions:  sessions,
			Knowledge: retriever,
			Version:   version,
		})
	}
	return a, nil
}

// seedCatalog imports cfg.Catalog.Path into an empty store so a fresh
// install serves products without a separate index run.
func (a *app) seedCatalog(ctx context.Context, cfg config.Config) error {
	if cfg.Catalog.Path == "" {
		return nil
	}
	n, err := a.store.ProductCount(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("catalog already loaded", "products", n)
		return nil
	}

	products, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	var info string
	if cfg.Catalog.InfoPath != "" {
		if info, err = ingest.ReadInfoFile(cfg.Catalog.InfoPath); err != nil {
			return fmt.Errorf("reading info document: %w", err)
		}
	}
	docs, err := a.indexer.Rebuild(ctx, products, info)
	if err != nil {
		return err
	}
	slog.Info("catalog seeded", "path", cfg.Catalog.Path, "products", len(products), "docs", docs)
	return nil
}
