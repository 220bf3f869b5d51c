package ingestion

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage is a position in the ingestion state machine. Transitions are
// strictly forward; StageError is terminal and reachable from any
// non-terminal stage.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageUploading   Stage = "uploading"
	StageExtracting  Stage = "extracting"
	StageTagging     Stage = "tagging"
	StageVectorizing Stage = "vectorizing"
	StageDone        Stage = "done"
	StageError       Stage = "error"
)

// Progress checkpoints reported at stage boundaries. Fixed values so a
// client can render a bar without knowing collaborator timing.
const (
	progressUploading   = 10
	progressExtracting  = 30
	progressExtracted   = 50
	progressTagged      = 70
	progressVectorizing = 85
	progressVectorized  = 95
	progressDone        = 100
)

// Failure reasons reported on jobs that end in StageError.
const (
	ReasonInput               = "InputError"
	ReasonExtractionFailed    = "ExtractionFailed"
	ReasonTaggingFailed       = "TaggingFailed"
	ReasonVectorizationFailed = "VectorizationFailed"
)

// Job tracks one upload attempt through the pipeline. Jobs are
// ephemeral and live only in the Registry; they are never persisted
// and never resumed.
type Job struct {
	mu sync.RWMutex

	ID          string
	Section     string
	ScopeID     string
	DocumentID  string
	Stage       Stage
	Progress    int
	Tags        []string
	Reason      string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// NewJob creates an idle job for the given section and scope.
func NewJob(section, scopeID string) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Section:   section,
		ScopeID:   scopeID,
		Stage:     StageIdle,
		StartedAt: time.Now().UTC(),
	}
}

// advance moves the job forward. Progress never decreases within a job.
func (j *Job) advance(stage Stage, progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	if progress > j.Progress {
		j.Progress = progress
	}
}

// setDocument records the durable document created during uploading.
func (j *Job) setDocument(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DocumentID = id
}

// setTags records the tagging stage output.
func (j *Job) setTags(tags []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Tags = append([]string(nil), tags...)
}

// fail moves the job to the terminal error stage. Progress is frozen
// at whatever checkpoint the job last reached.
func (j *Job) fail(reason string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = StageError
	j.Reason = reason
	j.Error = err.Error()
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// complete moves the job to the terminal done stage.
func (j *Job) complete() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = StageDone
	j.Progress = progressDone
	now := time.Now().UTC()
	j.CompletedAt = &now
}

// Snapshot is a point-in-time copy of a job, safe to serialize.
type Snapshot struct {
	ID          string     `json:"id"`
	Section     string     `json:"section"`
	ScopeID     string     `json:"scope_id,omitempty"`
	DocumentID  string     `json:"document_id,omitempty"`
	Stage       Stage      `json:"stage"`
	Progress    int        `json:"progress"`
	Tags        []string   `json:"tags,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a thread-safe copy of the job state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Snapshot{
		ID:          j.ID,
		Section:     j.Section,
		ScopeID:     j.ScopeID,
		DocumentID:  j.DocumentID,
		Stage:       j.Stage,
		Progress:    j.Progress,
		Tags:        append([]string(nil), j.Tags...),
		Reason:      j.Reason,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// Terminal reports whether the job reached done or error.
func (s Snapshot) Terminal() bool {
	return s.Stage == StageDone || s.Stage == StageError
}
