package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kbready/kbready/internal/storage"
)

// ICPRequest creates an ideal-customer-profile record. Profile,
// PainPoints, and Messaging are stored verbatim as JSON.
type ICPRequest struct {
	Name       string          `json:"name"`
	Profile    json.RawMessage `json:"profile"`
	PainPoints json.RawMessage `json:"pain_points"`
	Messaging  json.RawMessage `json:"messaging"`
}

type icpView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Profile    json.RawMessage `json:"profile"`
	PainPoints json.RawMessage `json:"pain_points"`
	Messaging  json.RawMessage `json:"messaging"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toICPView(p storage.ICPProfile) icpView {
	return icpView{
		ID:         p.ID,
		Name:       p.Name,
		Profile:    rawOr(p.Profile, "{}"),
		PainPoints: rawOr(p.PainPoints, "[]"),
		Messaging:  rawOr(p.Messaging, "{}"),
		CreatedAt:  p.CreatedAt,
	}
}

func rawOr(s, def string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return json.RawMessage(def)
}

func handleCreateICP(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ICPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
			return
		}

		p := storage.ICPProfile{
			ID:         uuid.New().String(),
			Name:       req.Name,
			Profile:    string(req.Profile),
			PainPoints: string(req.PainPoints),
			Messaging:  string(req.Messaging),
		}
		if err := deps.Store.SaveICP(p); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save icp: %v", err)
			return
		}
		deps.Readiness.Refresh()

		saved, err := deps.Store.GetICP(p.ID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to load saved icp: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(toICPView(saved))
	}
}

func handleListICPs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := deps.Store.ListICPs()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list icps: %v", err)
			return
		}

		views := make([]icpView, len(profiles))
		for i, p := range profiles {
			views[i] = toICPView(p)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(views)
	}
}

func handleGetICP(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		p, err := deps.Store.GetICP(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "icp not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get icp: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toICPView(p))
	}
}

func handleDeleteICP(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteICP(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "icp not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete icp: %v", err)
			return
		}
		deps.Readiness.Refresh()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}
