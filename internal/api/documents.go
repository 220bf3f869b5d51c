package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kbready/kbready/internal/ingestion"
	"github.com/kbready/kbready/internal/storage"
)

// UploadRequest starts one ingestion job. Content carries the file
// bytes base64-encoded; URL points at a page to fetch. Exactly one of
// the two must be set.
type UploadRequest struct {
	Title    string `json:"title"`
	Section  string `json:"section"`
	ScopeID  string `json:"scope_id"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
	URL      string `json:"url"`
}

type documentView struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Section   string          `json:"section"`
	ScopeID   string          `json:"scope_id,omitempty"`
	Source    string          `json:"source"`
	Origin    string          `json:"origin"`
	Summary   string          `json:"summary,omitempty"`
	Tags      json.RawMessage `json:"tags"`
	Committed bool            `json:"committed"`
	CreatedAt time.Time       `json:"created_at"`
}

func toDocumentView(d storage.Document) documentView {
	tags := json.RawMessage(d.Tags)
	if !json.Valid(tags) {
		tags = json.RawMessage("[]")
	}
	return documentView{
		ID:        d.ID,
		Title:     d.Title,
		Section:   d.Section,
		ScopeID:   d.ScopeID,
		Source:    d.Source,
		Origin:    d.Origin,
		Summary:   d.Summary,
		Tags:      tags,
		Committed: d.Committed,
		CreatedAt: d.CreatedAt,
	}
}

func handleUploadDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req UploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Section == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "section is required")
			return
		}

		var fileData []byte
		if req.Content != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "content must be base64-encoded")
				return
			}
			fileData = decoded
		}

		job := ingestion.NewJob(req.Section, req.ScopeID)
		deps.Jobs.Add(job)

		// The job outlives the request; clients poll /jobs/{id}.
		go func() {
			_ = deps.Runner.Run(context.Background(), job, ingestion.Request{
				Title:    req.Title,
				Section:  req.Section,
				ScopeID:  req.ScopeID,
				FileData: fileData,
				Filename: req.Filename,
				URL:      req.URL,
			})
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(job.Snapshot())
	}
}

func handleListJobs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Jobs.List())
	}
}

func handleGetJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, ok := deps.Jobs.Get(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(job.Snapshot())
	}
}

func handleListDocuments(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := storage.DocumentFilter{
			Section:       r.URL.Query().Get("section"),
			ScopeID:       r.URL.Query().Get("scope_id"),
			CommittedOnly: r.URL.Query().Get("committed") == "true",
			Limit:         parseIntParam(r, "limit", 0, 500),
		}

		docs, err := deps.Store.ListDocuments(filter)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}

		views := make([]documentView, len(docs))
		for i, d := range docs {
			views[i] = toDocumentView(d)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

func handleGetDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toDocumentView(doc))
	}
}

func handleDeleteDocument(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}
		deps.Readiness.Refresh()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
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
