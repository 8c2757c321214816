package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kalambet/skinshop/internal/catalog"
	"github.com/kalambet/skinshop/internal/pipeline"
	"github.com/kalambet/skinshop/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Searcher answers shopping queries.
type Searcher interface {
	Search(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// Deps are the components behind the public REST API.
type Deps struct {
	Search   Searcher
	Catalog  catalog.Source
	Sessions session.Store
}

// SessionInfo is the public view of a session.
type SessionInfo struct {
	SessionID         string              `json:"session_id"`
	ConversationCount int                 `json:"conversation_count"`
	UserPreferences   catalog.Preferences `json:"user_preferences"`
	CreatedAt         time.Time           `json:"created_at"`
	LastActivity      time.Time           `json:"last_activity"`
}

// NewSessionInfo builds the public view of s.
func NewSessionInfo(s session.Session) SessionInfo {
	return SessionInfo{
		SessionID:         s.ID,
		ConversationCount: len(s.History),
		UserPreferences:   s.Preferences,
		CreatedAt:         s.CreatedAt,
		LastActivity:      s.LastActivity,
	}
}

type clearSessionRequest struct {
	SessionID string `json:"session_id"`
}

var validate = validator.New()

// NewHandler returns the REST API handler. admin, when non-nil, is mounted
// under /admin.
func NewHandler(deps Deps, admin http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	r.Get("/products", handleProducts(deps))
	r.Get("/session/{id}", handleGetSession(deps))
	r.Post("/session/clear", handleClearSession(deps))
	r.Post("/search", handleSearch(deps))
	if admin != nil {
		r.Mount("/admin", admin)
	}

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"message": "Welcome to Skincare Store API"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := deps.Catalog.Products(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load catalog: %v", err)
			return
		}
		if limit := parseIntParam(r, "limit", 0, 0); limit > 0 && limit < len(products) {
			products = products[:limit]
		}
		if products == nil {
			products = []catalog.Product{}
		}
		writeJSON(w, products)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		s, err := deps.Sessions.Get(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "Session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get session: %v", err)
			return
		}
		writeJSON(w, NewSessionInfo(s))
	}
}

func handleClearSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req clearSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		msg := "Session not found or already cleared"
		if req.SessionID != "" {
			err := deps.Sessions.Delete(r.Context(), req.SessionID)
			switch {
			case err == nil:
				msg = "Session cleared successfully"
			case !errors.Is(err, session.ErrNotFound):
				httpError(w, http.StatusInternalServerError, "api_error", "failed to clear session: %v", err)
				return
			}
		}
		writeJSON(w, map[string]string{"message": msg})
	}
}

func handleSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: %v", err)
			return
		}

		resp, err := deps.Search.Search(r.Context(), req)
		switch {
		case err == nil:
		case errors.Is(err, pipeline.ErrEmptyQuery):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query must not be empty")
			return
		case errors.Is(err, pipeline.ErrEmptyCatalog):
			httpError(w, http.StatusNotFound, "not_found", "No products found in catalog")
			return
		default:
			slog.Error("search failed", "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "An unexpected error occurred: %v", err)
			return
		}

		writeJSON(w, resp)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
