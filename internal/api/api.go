// Package api exposes the knowledge base over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kbready/kbready/internal/ingestion"
	"github.com/kbready/kbready/internal/retrieval"
	"github.com/kbready/kbready/internal/scoring"
	"github.com/kbready/kbready/internal/storage"
)

// JobRunner executes one ingestion job.
type JobRunner interface {
	Run(ctx context.Context, job *ingestion.Job, req ingestion.Request) error
}

// Reporter serves the readiness report and invalidates it after
// inventory changes.
type Reporter interface {
	Report() (scoring.Report, error)
	Refresh()
}

// Searcher runs semantic search over the committed knowledge base.
type Searcher interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Chunk, error)
}

// AppDeps holds dependencies for the HTTP API.
type AppDeps struct {
	Store     *storage.Store
	Jobs      *ingestion.Registry
	Runner    JobRunner
	Readiness Reporter
	Retriever Searcher
	Token     string
	Version   string
}

// NewAppHandler builds the HTTP router. Everything except /health
// requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/documents", handleUploadDocument(deps))
		r.Get("/documents", handleListDocuments(deps))
		r.Get("/documents/{id}", handleGetDocument(deps))
		r.Delete("/documents/{id}", handleDeleteDocument(deps))

		r.Get("/jobs", handleListJobs(deps))
		r.Get("/jobs/{id}", handleGetJob(deps))

		r.Get("/icps", handleListICPs(deps))
		r.Post("/icps", handleCreateICP(deps))
		r.Get("/icps/{id}", handleGetICP(deps))
		r.Delete("/icps/{id}", handleDeleteICP(deps))

		r.Get("/score", handleScore(deps))
		r.Get("/search", handleSearch(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": deps.Version,
		})
	}
}

func handleScore(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.Readiness.Report()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to compute score: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

func handleSearch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
			return
		}
		topK := parseIntParam(r, "top_k", 5, 50)
		if topK == 0 {
			topK = 5
		}

		chunks, err := deps.Retriever.Retrieve(r.Context(), query, topK)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "search failed: %v", err)
			return
		}
		if chunks == nil {
			chunks = []retrieval.Chunk{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chunks)
	}
}
