package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestIndexesExist verifies the migration creates the expected indexes.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_documents_section", "idx_documents_scope", "idx_knowledge_vectors_source"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

// TestSaveAndGetDocument saves a document and retrieves it by ID.
func TestSaveAndGetDocument(t *testing.T) {
	s := openTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	want := Document{
		ID:        "doc-001",
		Title:     "Pricing Overview",
		Section:   "pricing",
		ScopeID:   "icp-1",
		Source:    "file",
		Origin:    "pricing.pdf",
		Content:   "Plans start at $49/month.",
		Tags:      `["pricing","plans"]`,
		CreatedAt: now,
	}

	if err := s.SaveDocument(want); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	got, err := s.GetDocument("doc-001")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}

	if got.Title != want.Title {
		t.Errorf("Title = %q, want %q", got.Title, want.Title)
	}
	if got.Section != want.Section {
		t.Errorf("Section = %q, want %q", got.Section, want.Section)
	}
	if got.ScopeID != want.ScopeID {
		t.Errorf("ScopeID = %q, want %q", got.ScopeID, want.ScopeID)
	}
	if got.Origin != want.Origin {
		t.Errorf("Origin = %q, want %q", got.Origin, want.Origin)
	}
	if got.Tags != want.Tags {
		t.Errorf("Tags = %q, want %q", got.Tags, want.Tags)
	}
	if got.Committed {
		t.Error("new document should not be committed")
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

// TestGetDocumentNotFound verifies that retrieving a non-existent ID returns ErrNotFound.
func TestGetDocumentNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetDocument("does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListDocumentsFilters(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []Document{
		{ID: "d1", Title: "A", Section: "pricing", ScopeID: "icp-1", Source: "file", CreatedAt: base},
		{ID: "d2", Title: "B", Section: "pricing", Source: "url", CreatedAt: base.Add(time.Hour)},
		{ID: "d3", Title: "C", Section: "messaging", ScopeID: "icp-1", Source: "file", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, d := range docs {
		if err := s.SaveDocument(d); err != nil {
			t.Fatalf("SaveDocument %s: %v", d.ID, err)
		}
	}
	if err := s.MarkDocumentCommitted("d3"); err != nil {
		t.Fatalf("MarkDocumentCommitted: %v", err)
	}

	bySection, err := s.ListDocuments(DocumentFilter{Section: "pricing"})
	if err != nil {
		t.Fatalf("ListDocuments(section): %v", err)
	}
	if len(bySection) != 2 {
		t.Errorf("got %d pricing docs, want 2", len(bySection))
	}
	// Most recent first.
	if bySection[0].ID != "d2" {
		t.Errorf("first pricing doc = %q, want d2", bySection[0].ID)
	}

	byScope, err := s.ListDocuments(DocumentFilter{ScopeID: "icp-1"})
	if err != nil {
		t.Fatalf("ListDocuments(scope): %v", err)
	}
	if len(byScope) != 2 {
		t.Errorf("got %d scoped docs, want 2", len(byScope))
	}

	committed, err := s.ListDocuments(DocumentFilter{CommittedOnly: true})
	if err != nil {
		t.Fatalf("ListDocuments(committed): %v", err)
	}
	if len(committed) != 1 || committed[0].ID != "d3" {
		t.Errorf("committed docs = %+v, want only d3", committed)
	}

	limited, err := s.ListDocuments(DocumentFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListDocuments(limit): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d docs with limit 1", len(limited))
	}
}

func TestDocumentStageUpdates(t *testing.T) {
	s := openTestStore(t)

	doc := Document{ID: "d-up", Title: "T", Section: "company", Source: "file"}
	if err := s.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	if err := s.UpdateDocumentContent("d-up", "extracted text"); err != nil {
		t.Fatalf("UpdateDocumentContent: %v", err)
	}
	if err := s.UpdateDocumentTags("d-up", `["company"]`, "a summary"); err != nil {
		t.Fatalf("UpdateDocumentTags: %v", err)
	}
	if err := s.MarkDocumentCommitted("d-up"); err != nil {
		t.Fatalf("MarkDocumentCommitted: %v", err)
	}

	got, err := s.GetDocument("d-up")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Content != "extracted text" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Tags != `["company"]` {
		t.Errorf("Tags = %q", got.Tags)
	}
	if got.Summary != "a summary" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if !got.Committed {
		t.Error("document should be committed")
	}

	if err := s.UpdateDocumentContent("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("update on missing doc = %v, want ErrNotFound", err)
	}
}

func TestDeleteDocumentRemovesVectors(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveDocument(Document{ID: "d-del", Title: "T", Section: "company", Source: "file"}); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	_, err := s.db.Exec(`INSERT INTO knowledge_vectors (id, source_id, section, text_chunk, embedding, created_at, tags)
		VALUES ('v1', 'd-del', 'company', 'chunk', X'00000000', '2026-01-01T00:00:00Z', '[]')`)
	if err != nil {
		t.Fatalf("INSERT vector: %v", err)
	}

	if err := s.DeleteDocument("d-del"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := s.GetDocument("d-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument after delete = %v, want ErrNotFound", err)
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM knowledge_vectors WHERE source_id = 'd-del'").Scan(&count); err != nil {
		t.Fatalf("counting vectors: %v", err)
	}
	if count != 0 {
		t.Errorf("%d vector rows survived the delete", count)
	}

	if err := s.DeleteDocument("d-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestICPProfileLifecycle(t *testing.T) {
	s := openTestStore(t)

	for j := 0; j < 3; j++ {
		p := ICPProfile{
			ID:        fmt.Sprintf("icp-%d", j),
			Name:      fmt.Sprintf("Segment %d", j),
			CreatedAt: time.Date(2026, 2, 1, j, 0, 0, 0, time.UTC),
		}
		if err := s.SaveICP(p); err != nil {
			t.Fatalf("SaveICP %d: %v", j, err)
		}
	}

	count, err := s.CountICPs()
	if err != nil {
		t.Fatalf("CountICPs: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	got, err := s.GetICP("icp-1")
	if err != nil {
		t.Fatalf("GetICP: %v", err)
	}
	if got.Name != "Segment 1" {
		t.Errorf("Name = %q", got.Name)
	}
	// Empty JSON fields are stored with defaults.
	if got.Profile != "{}" || got.PainPoints != "[]" {
		t.Errorf("defaults not applied: profile=%q pain_points=%q", got.Profile, got.PainPoints)
	}

	all, err := s.ListICPs()
	if err != nil {
		t.Fatalf("ListICPs: %v", err)
	}
	if len(all) != 3 || all[0].ID != "icp-0" {
		t.Errorf("ListICPs = %d entries, first %q; want 3 ascending", len(all), all[0].ID)
	}

	if err := s.DeleteICP("icp-1"); err != nil {
		t.Fatalf("DeleteICP: %v", err)
	}
	if err := s.DeleteICP("icp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteICP = %v, want ErrNotFound", err)
	}
}
