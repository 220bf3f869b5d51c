// Package readiness computes the knowledge base completeness report
// from the stored inventory.
package readiness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kbready/kbready/internal/scoring"
	"github.com/kbready/kbready/internal/storage"
)

// Inventory is the slice of storage the readiness service reads.
type Inventory interface {
	ListDocuments(f storage.DocumentFilter) ([]storage.Document, error)
	CountICPs() (int, error)
}

// Service caches the latest completeness report. Refresh is called by
// the ingestion pipeline after every job outcome, so a report read
// that follows an upload attempt never sees a stale inventory.
type Service struct {
	mu     sync.RWMutex
	store  Inventory
	cached *scoring.Report
	logger *slog.Logger
}

// NewService creates a Service over the given inventory.
func NewService(store Inventory) *Service {
	return &Service{store: store, logger: slog.Default()}
}

// Report returns the current completeness report, computing it if no
// cached copy exists.
func (s *Service) Report() (scoring.Report, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	report, err := s.compute()
	if err != nil {
		return scoring.Report{}, err
	}

	s.mu.Lock()
	s.cached = &report
	s.mu.Unlock()
	return report, nil
}

// Refresh recomputes the cached report. On failure the cache is
// cleared so the next Report call retries rather than serving a stale
// score.
func (s *Service) Refresh() {
	report, err := s.compute()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.cached = nil
		s.logger.Warn("readiness refresh failed", "error", err)
		return
	}
	s.cached = &report
}

// compute loads committed documents and ICP profiles and scores them.
// Uncommitted uploads stay visible in the document inventory but do
// not count toward readiness until their vectors land.
func (s *Service) compute() (scoring.Report, error) {
	docs, err := s.store.ListDocuments(storage.DocumentFilter{CommittedOnly: true})
	if err != nil {
		return scoring.Report{}, fmt.Errorf("listing documents: %w", err)
	}
	icpCount, err := s.store.CountICPs()
	if err != nil {
		return scoring.Report{}, fmt.Errorf("counting icp profiles: %w", err)
	}

	artifacts := make([]scoring.Artifact, len(docs))
	for i, d := range docs {
		var tags []string
		if d.Tags != "" {
			// Tags column holds a JSON array; a bad row just scores tagless.
			_ = json.Unmarshal([]byte(d.Tags), &tags)
		}
		artifacts[i] = scoring.Artifact{ID: d.ID, Section: d.Section, Tags: tags}
	}

	return scoring.Score(artifacts, icpCount), nil
}
