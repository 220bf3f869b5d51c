package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kbready/kbready/internal/extract"
	"github.com/kbready/kbready/internal/retrieval"
	"github.com/kbready/kbready/internal/storage"
	"github.com/kbready/kbready/internal/tagging"
	"github.com/kbready/kbready/internal/taxonomy"
)

// DocumentStore is the slice of storage the pipeline writes through.
type DocumentStore interface {
	SaveDocument(d storage.Document) error
	UpdateDocumentContent(id, content string) error
	UpdateDocumentTags(id, tags, summary string) error
}

// Extractor turns a raw file or URL into text content.
type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (extract.Result, error)
}

// Tagger classifies extracted content.
type Tagger interface {
	Tag(ctx context.Context, content, section, hint string) (tagging.Result, error)
}

// Vectorizer embeds and commits a document's content.
type Vectorizer interface {
	Vectorize(ctx context.Context, in retrieval.Input) error
}

// Pipeline drives one job through upload, extraction, tagging, and
// vectorization. Stages run sequentially; no stage is retried. The
// refresh hook fires after every outcome, success or failure, so the
// inventory a caller re-reads never omits a partially-processed
// document.
type Pipeline struct {
	docs       DocumentStore
	extractor  Extractor
	tagger     Tagger
	vectorizer Vectorizer
	refresh    func()
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline over the given collaborators. refresh
// may be nil.
func NewPipeline(docs DocumentStore, extractor Extractor, tagger Tagger, vectorizer Vectorizer, refresh func()) *Pipeline {
	return &Pipeline{
		docs:       docs,
		extractor:  extractor,
		tagger:     tagger,
		vectorizer: vectorizer,
		refresh:    refresh,
		logger:     slog.Default(),
	}
}

// Request is the caller-supplied input for one upload attempt. Exactly
// one of FileData or URL must be set.
type Request struct {
	Title    string
	Section  string
	ScopeID  string
	FileData []byte
	Filename string
	URL      string
}

// Run executes the job against req. The returned error wraps one of
// the package sentinels; the job snapshot carries the same reason.
// A document record created during uploading is never rolled back on a
// later failure. The caller owns retries by submitting a new job.
func (p *Pipeline) Run(ctx context.Context, job *Job, req Request) error {
	defer func() {
		if p.refresh != nil {
			p.refresh()
		}
	}()

	job.advance(StageUploading, progressUploading)

	hasFile := len(req.FileData) > 0
	hasURL := req.URL != ""
	if hasFile == hasURL {
		return p.fail(job, ReasonInput, fmt.Errorf("%w: exactly one of file or url is required", ErrInput))
	}

	section := string(taxonomy.Canonical(req.Section))
	source, origin := "file", req.Filename
	if hasURL {
		source, origin = "url", req.URL
	}
	title := req.Title
	if title == "" {
		title = origin
	}

	doc := storage.Document{
		ID:      uuid.New().String(),
		Title:   title,
		Section: section,
		ScopeID: req.ScopeID,
		Source:  source,
		Origin:  origin,
	}
	if err := p.docs.SaveDocument(doc); err != nil {
		return p.fail(job, ReasonInput, fmt.Errorf("%w: saving document: %v", ErrInput, err))
	}
	job.setDocument(doc.ID)

	job.advance(StageExtracting, progressExtracting)

	res, err := p.extractor.Extract(ctx, extract.Input{Data: req.FileData, URL: req.URL, Filename: req.Filename})
	if err != nil {
		return p.fail(job, ReasonExtractionFailed, fmt.Errorf("%w: %v", ErrExtraction, err))
	}
	if err := p.docs.UpdateDocumentContent(doc.ID, res.Content); err != nil {
		return p.fail(job, ReasonExtractionFailed, fmt.Errorf("%w: storing content: %v", ErrExtraction, err))
	}

	job.advance(StageTagging, progressExtracted)

	tagged, err := p.tagger.Tag(ctx, res.Content, section, origin)
	if err != nil {
		return p.fail(job, ReasonTaggingFailed, fmt.Errorf("%w: %v", ErrTagging, err))
	}
	tagsJSON, err := json.Marshal(tagged.Tags)
	if err != nil {
		return p.fail(job, ReasonTaggingFailed, fmt.Errorf("%w: encoding tags: %v", ErrTagging, err))
	}
	if err := p.docs.UpdateDocumentTags(doc.ID, string(tagsJSON), tagged.Summary); err != nil {
		return p.fail(job, ReasonTaggingFailed, fmt.Errorf("%w: storing tags: %v", ErrTagging, err))
	}
	job.setTags(tagged.Tags)
	job.advance(StageTagging, progressTagged)

	job.advance(StageVectorizing, progressVectorizing)

	err = p.vectorizer.Vectorize(ctx, retrieval.Input{
		DocumentID: doc.ID,
		Section:    section,
		Content:    res.Content,
		Tags:       tagged.Tags,
	})
	if err != nil {
		return p.fail(job, ReasonVectorizationFailed, fmt.Errorf("%w: %v", ErrVectorization, err))
	}
	job.advance(StageVectorizing, progressVectorized)

	job.complete()
	p.logger.Info("ingestion complete", "job_id", job.ID, "document_id", doc.ID, "section", section)
	return nil
}

func (p *Pipeline) fail(job *Job, reason string, err error) error {
	job.fail(reason, err)
	p.logger.Warn("ingestion failed", "job_id", job.ID, "reason", reason, "error", err)
	return err
}
