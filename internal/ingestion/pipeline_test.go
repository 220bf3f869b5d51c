package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/kbready/kbready/internal/extract"
	"github.com/kbready/kbready/internal/retrieval"
	"github.com/kbready/kbready/internal/storage"
	"github.com/kbready/kbready/internal/tagging"
)

// mockDocs implements DocumentStore for testing.
type mockDocs struct {
	saveFn    func(d storage.Document) error
	contentFn func(id, content string) error
	tagsFn    func(id, tags, summary string) error

	saved      []storage.Document
	contentIDs []string
	tagsIDs    []string
}

func (m *mockDocs) SaveDocument(d storage.Document) error {
	if m.saveFn != nil {
		if err := m.saveFn(d); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, d)
	return nil
}

func (m *mockDocs) UpdateDocumentContent(id, content string) error {
	if m.contentFn != nil {
		if err := m.contentFn(id, content); err != nil {
			return err
		}
	}
	m.contentIDs = append(m.contentIDs, id)
	return nil
}

func (m *mockDocs) UpdateDocumentTags(id, tags, summary string) error {
	if m.tagsFn != nil {
		if err := m.tagsFn(id, tags, summary); err != nil {
			return err
		}
	}
	m.tagsIDs = append(m.tagsIDs, id)
	return nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, in extract.Input) (extract.Result, error)
}

func (m *mockExtractor) Extract(ctx context.Context, in extract.Input) (extract.Result, error) {
	return m.extractFn(ctx, in)
}

type mockTagger struct {
	tagFn func(ctx context.Context, content, section, hint string) (tagging.Result, error)
}

func (m *mockTagger) Tag(ctx context.Context, content, section, hint string) (tagging.Result, error) {
	return m.tagFn(ctx, content, section, hint)
}

type mockVectorizer struct {
	vectorizeFn func(ctx context.Context, in retrieval.Input) error
	inputs      []retrieval.Input
}

func (m *mockVectorizer) Vectorize(ctx context.Context, in retrieval.Input) error {
	if m.vectorizeFn != nil {
		if err := m.vectorizeFn(ctx, in); err != nil {
			return err
		}
	}
	m.inputs = append(m.inputs, in)
	return nil
}

func happyExtractor() *mockExtractor {
	return &mockExtractor{
		extractFn: func(_ context.Context, _ extract.Input) (extract.Result, error) {
			return extract.Result{Content: "extracted content"}, nil
		},
	}
}

func happyTagger() *mockTagger {
	return &mockTagger{
		tagFn: func(_ context.Context, _, _, _ string) (tagging.Result, error) {
			return tagging.Result{Tags: []string{"pricing", "plans"}, Category: "pricing", Summary: "pricing overview"}, nil
		},
	}
}

func TestRun_Success(t *testing.T) {
	docs := &mockDocs{}
	vec := &mockVectorizer{}
	refreshed := 0

	p := NewPipeline(docs, happyExtractor(), happyTagger(), vec, func() { refreshed++ })
	job := NewJob("pricing", "")

	err := p.Run(context.Background(), job, Request{
		Section:  "pricing",
		FileData: []byte("raw bytes"),
		Filename: "plans.pdf",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := job.Snapshot()
	if snap.Stage != StageDone {
		t.Errorf("stage = %q, want %q", snap.Stage, StageDone)
	}
	if snap.Progress != 100 {
		t.Errorf("progress = %d, want 100", snap.Progress)
	}
	if len(snap.Tags) != 2 {
		t.Errorf("tags = %v, want 2 entries", snap.Tags)
	}
	if snap.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}

	if len(docs.saved) != 1 {
		t.Fatalf("saved %d documents, want 1", len(docs.saved))
	}
	d := docs.saved[0]
	if d.Source != "file" || d.Origin != "plans.pdf" || d.Title != "plans.pdf" {
		t.Errorf("unexpected document: %+v", d)
	}
	if snap.DocumentID != d.ID {
		t.Errorf("job DocumentID = %q, want %q", snap.DocumentID, d.ID)
	}

	if len(vec.inputs) != 1 {
		t.Fatalf("vectorize called %d times, want 1", len(vec.inputs))
	}
	in := vec.inputs[0]
	if in.DocumentID != d.ID || in.Section != "pricing" || in.Content != "extracted content" {
		t.Errorf("unexpected vectorize input: %+v", in)
	}
}

func TestRun_MissingInput(t *testing.T) {
	docs := &mockDocs{}
	refreshed := 0
	p := NewPipeline(docs, happyExtractor(), happyTagger(), &mockVectorizer{}, func() { refreshed++ })
	job := NewJob("company", "")

	err := p.Run(context.Background(), job, Request{Section: "company"})
	if !errors.Is(err, ErrInput) {
		t.Fatalf("err = %v, want ErrInput", err)
	}

	snap := job.Snapshot()
	if snap.Stage != StageError {
		t.Errorf("stage = %q, want %q", snap.Stage, StageError)
	}
	if snap.Reason != ReasonInput {
		t.Errorf("reason = %q, want %q", snap.Reason, ReasonInput)
	}
	if snap.Progress != progressUploading {
		t.Errorf("progress = %d, want %d", snap.Progress, progressUploading)
	}
	if len(docs.saved) != 0 {
		t.Errorf("document saved despite invalid input")
	}
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}
}

func TestRun_BothInputs(t *testing.T) {
	p := NewPipeline(&mockDocs{}, happyExtractor(), happyTagger(), &mockVectorizer{}, nil)
	job := NewJob("company", "")

	err := p.Run(context.Background(), job, Request{
		Section:  "company",
		FileData: []byte("data"),
		Filename: "about.txt",
		URL:      "https://example.com/about",
	})
	if !errors.Is(err, ErrInput) {
		t.Fatalf("err = %v, want ErrInput", err)
	}
}

func TestRun_ExtractionFails_DocumentSurvives(t *testing.T) {
	docs := &mockDocs{}
	ex := &mockExtractor{
		extractFn: func(_ context.Context, _ extract.Input) (extract.Result, error) {
			return extract.Result{}, errors.New("unreadable pdf")
		},
	}
	refreshed := 0
	p := NewPipeline(docs, ex, happyTagger(), &mockVectorizer{}, func() { refreshed++ })
	job := NewJob("pricing", "")

	err := p.Run(context.Background(), job, Request{Section: "pricing", FileData: []byte("x"), Filename: "p.pdf"})
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("err = %v, want ErrExtraction", err)
	}

	snap := job.Snapshot()
	if snap.Reason != ReasonExtractionFailed {
		t.Errorf("reason = %q, want %q", snap.Reason, ReasonExtractionFailed)
	}
	// The upload already created a durable record; it is not rolled back.
	if len(docs.saved) != 1 {
		t.Errorf("saved %d documents, want 1", len(docs.saved))
	}
	if len(docs.contentIDs) != 0 {
		t.Errorf("content updated despite extraction failure")
	}
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}
}

func TestRun_TaggingFails_ContentSurvives(t *testing.T) {
	docs := &mockDocs{}
	tg := &mockTagger{
		tagFn: func(_ context.Context, _, _, _ string) (tagging.Result, error) {
			return tagging.Result{}, errors.New("model returned garbage")
		},
	}
	p := NewPipeline(docs, happyExtractor(), tg, &mockVectorizer{}, nil)
	job := NewJob("pricing", "")

	err := p.Run(context.Background(), job, Request{Section: "pricing", URL: "https://example.com/pricing"})
	if !errors.Is(err, ErrTagging) {
		t.Fatalf("err = %v, want ErrTagging", err)
	}

	snap := job.Snapshot()
	if snap.Reason != ReasonTaggingFailed {
		t.Errorf("reason = %q, want %q", snap.Reason, ReasonTaggingFailed)
	}
	if snap.Progress != progressExtracted {
		t.Errorf("progress = %d, want %d", snap.Progress, progressExtracted)
	}
	if len(docs.saved) != 1 || len(docs.contentIDs) != 1 {
		t.Errorf("saved=%d contentUpdates=%d, want 1 and 1", len(docs.saved), len(docs.contentIDs))
	}
	if len(docs.tagsIDs) != 0 {
		t.Errorf("tags updated despite tagging failure")
	}
}

func TestRun_VectorizationFails(t *testing.T) {
	docs := &mockDocs{}
	vec := &mockVectorizer{
		vectorizeFn: func(_ context.Context, _ retrieval.Input) error {
			return errors.New("engine down")
		},
	}
	refreshed := 0
	p := NewPipeline(docs, happyExtractor(), happyTagger(), vec, func() { refreshed++ })
	job := NewJob("pricing", "")

	err := p.Run(context.Background(), job, Request{Section: "pricing", FileData: []byte("x"), Filename: "p.txt"})
	if !errors.Is(err, ErrVectorization) {
		t.Fatalf("err = %v, want ErrVectorization", err)
	}

	snap := job.Snapshot()
	if snap.Reason != ReasonVectorizationFailed {
		t.Errorf("reason = %q, want %q", snap.Reason, ReasonVectorizationFailed)
	}
	if snap.Progress != progressVectorizing {
		t.Errorf("progress = %d, want %d", snap.Progress, progressVectorizing)
	}
	// Document and tags survive; only the commit is missing.
	if len(docs.saved) != 1 || len(docs.tagsIDs) != 1 {
		t.Errorf("saved=%d tagsUpdates=%d, want 1 and 1", len(docs.saved), len(docs.tagsIDs))
	}
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}
}

func TestRun_CanonicalizesSection(t *testing.T) {
	docs := &mockDocs{}
	p := NewPipeline(docs, happyExtractor(), happyTagger(), &mockVectorizer{}, nil)
	job := NewJob("competitors", "")

	if err := p.Run(context.Background(), job, Request{Section: "competitors", FileData: []byte("x"), Filename: "c.txt"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if docs.saved[0].Section != "competition" {
		t.Errorf("section = %q, want %q", docs.saved[0].Section, "competition")
	}
}

func TestRun_URLSource(t *testing.T) {
	docs := &mockDocs{}
	var gotInput extract.Input
	ex := &mockExtractor{
		extractFn: func(_ context.Context, in extract.Input) (extract.Result, error) {
			gotInput = in
			return extract.Result{Content: "page text"}, nil
		},
	}
	p := NewPipeline(docs, ex, happyTagger(), &mockVectorizer{}, nil)
	job := NewJob("pricing", "")

	if err := p.Run(context.Background(), job, Request{Section: "pricing", URL: "https://example.com/pricing"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotInput.URL != "https://example.com/pricing" {
		t.Errorf("extractor URL = %q", gotInput.URL)
	}
	if docs.saved[0].Source != "url" || docs.saved[0].Origin != "https://example.com/pricing" {
		t.Errorf("unexpected document: %+v", docs.saved[0])
	}
}
