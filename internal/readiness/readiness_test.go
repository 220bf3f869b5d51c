package readiness

import (
	"errors"
	"testing"

	"github.com/kbready/kbready/internal/storage"
)

// mockInventory implements Inventory for testing.
type mockInventory struct {
	listFn  func(f storage.DocumentFilter) ([]storage.Document, error)
	countFn func() (int, error)
}

func (m *mockInventory) ListDocuments(f storage.DocumentFilter) ([]storage.Document, error) {
	return m.listFn(f)
}

func (m *mockInventory) CountICPs() (int, error) {
	if m.countFn != nil {
		return m.countFn()
	}
	return 0, nil
}

func TestReport_CommittedOnly(t *testing.T) {
	var gotFilter storage.DocumentFilter
	inv := &mockInventory{
		listFn: func(f storage.DocumentFilter) ([]storage.Document, error) {
			gotFilter = f
			return []storage.Document{
				{ID: "d1", Section: "company", Tags: `["company"]`, Committed: true},
			}, nil
		},
	}

	svc := NewService(inv)
	report, err := svc.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !gotFilter.CommittedOnly {
		t.Error("expected CommittedOnly filter")
	}
	if report.OverallScore != 13 { // round(12.5)
		t.Errorf("score = %d, want 13", report.OverallScore)
	}
}

func TestReport_Cached(t *testing.T) {
	calls := 0
	inv := &mockInventory{
		listFn: func(_ storage.DocumentFilter) ([]storage.Document, error) {
			calls++
			return nil, nil
		},
	}

	svc := NewService(inv)
	if _, err := svc.Report(); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if _, err := svc.Report(); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if calls != 1 {
		t.Errorf("inventory read %d times, want 1 (cached)", calls)
	}
}

func TestRefresh_RecomputesScore(t *testing.T) {
	docs := []storage.Document{}
	inv := &mockInventory{
		listFn: func(_ storage.DocumentFilter) ([]storage.Document, error) {
			return docs, nil
		},
	}

	svc := NewService(inv)
	report, _ := svc.Report()
	if report.OverallScore != 0 {
		t.Fatalf("empty score = %d, want 0", report.OverallScore)
	}

	docs = append(docs, storage.Document{ID: "d1", Section: "pricing", Committed: true})
	svc.Refresh()

	report, err := svc.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.OverallScore != 8 { // round(25/3)
		t.Errorf("score = %d, want 8", report.OverallScore)
	}
}

func TestRefresh_FailureClearsCache(t *testing.T) {
	fail := false
	calls := 0
	inv := &mockInventory{
		listFn: func(_ storage.DocumentFilter) ([]storage.Document, error) {
			calls++
			if fail {
				return nil, errors.New("db locked")
			}
			return nil, nil
		},
	}

	svc := NewService(inv)
	if _, err := svc.Report(); err != nil {
		t.Fatalf("Report: %v", err)
	}

	fail = true
	svc.Refresh()
	if _, err := svc.Report(); err == nil {
		t.Fatal("expected error after failed refresh, got nil")
	}

	fail = false
	if _, err := svc.Report(); err != nil {
		t.Fatalf("Report after recovery: %v", err)
	}
	if calls < 3 {
		t.Errorf("inventory read %d times, want at least 3", calls)
	}
}

func TestReport_BadTagsRowIgnored(t *testing.T) {
	inv := &mockInventory{
		listFn: func(_ storage.DocumentFilter) ([]storage.Document, error) {
			return []storage.Document{
				{ID: "d1", Section: "pricing", Tags: `not json`, Committed: true},
			}, nil
		},
	}

	svc := NewService(inv)
	report, err := svc.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.OverallScore == 0 {
		t.Error("document with bad tags should still count toward its section")
	}
}
