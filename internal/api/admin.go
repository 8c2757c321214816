package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/storage"
)

const maxIndexBodySize = 10 << 20 // 10MB

// IndexRequest replaces the catalog and the supplementary info text.
type IndexRequest struct {
	Products []catalog.Product `json:"products" validate:"required,min=1,unique=ID,dive"`
	Info     string            `json:"info"`
}

// IndexResponse reports how many documents were queued for embedding.
type IndexResponse struct {
	Documents int    `json:"documents"`
	Status    string `json:"status"`
}

// Status is the admin view of the running service.
type Status struct {
	Products int               `json:"products"`
	Vectors  int               `json:"vectors"`
	Sessions int               `json:"sessions"`
	Jobs     storage.JobCounts `json:"jobs"`
}

// Rebuilder replaces the catalog and queues the retrieval corpus rebuild.
type Rebuilder interface {
	Rebuild(ctx context.Context, products []catalog.Product, infoText string) (int, error)
}

// StatusStore reports catalog and job queue sizes.
type StatusStore interface {
	ProductCount(ctx context.Context) (int, error)
	CountJobs(ctx context.Context) (storage.JobCounts, error)
}

// VectorCounter reports the size of the retrieval index.
type VectorCounter interface {
	Count(ctx context.Context) (int, error)
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// AdminDeps are the components behind the /admin routes. Vectors and
// Sessions are optional.
type AdminDeps struct {
	Indexer  Rebuilder
	Store    StatusStore
	Vectors  VectorCounter
	Sessions SessionCounter
	Token    string
}

// NewAdminHandler returns the handler for catalog indexing and status. When
// Token is set every route requires it as a bearer token.
func NewAdminHandler(deps AdminDeps) http.Handler {
	r := chi.NewRouter()
	if deps.Token != "" {
		r.Use(BearerAuth(deps.Token))
	}

	r.Post("/index", handleIndex(deps))
	r.Get("/status", handleStatus(deps))

	return r
}

// BearerAuth rejects requests whose Authorization header does not carry token.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func handleIndex(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxIndexBodySize)
		defer r.Body.Close()

		var req IndexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "products are required, each with a unique product_id")
			return
		}

		n, err := deps.Indexer.Rebuild(r.Context(), req.Products, req.Info)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to rebuild index: %v", err)
			return
		}
		writeJSON(w, IndexResponse{Documents: n, Status: "queued"})
	}
}

func handleStatus(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st Status
		var err error

		if st.Products, err = deps.Store.ProductCount(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count products: %v", err)
			return
		}
		if st.Jobs, err = deps.Store.CountJobs(r.Context()); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count jobs: %v", err)
			return
		}
		if deps.Vectors != nil {
			if st.Vectors, err = deps.Vectors.Count(r.Context()); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to count vectors: %v", err)
				return
			}
		}
		if deps.Sessions != nil {
			st.Sessions = deps.Sessions.Len()
		}
		writeJSON(w, st)
	}
}
