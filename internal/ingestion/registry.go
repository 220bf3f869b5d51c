package ingestion

import (
	"slices"
	"sync"
)

// Registry holds the in-memory job map. Jobs are kept for the lifetime
// of the process so clients can poll terminal outcomes.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Add registers a job.
func (r *Registry) Add(j *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
}

// Get returns the job with the given ID, or false.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// List returns snapshots of all jobs, most recently started first.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(r.jobs))
	for _, j := range r.jobs {
		snaps = append(snaps, j.Snapshot())
	}
	slices.SortFunc(snaps, func(a, b Snapshot) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return snaps
}
