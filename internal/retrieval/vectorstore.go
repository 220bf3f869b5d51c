package retrieval

import (
	"time"
)

// VectorStore is the interface for vector storage and similarity
// search backends. The current implementation uses SQLite with
// brute-force cosine similarity; an ANN-capable backend can replace
// it behind this interface when the knowledge base outgrows a full
// scan.
type VectorStore interface {
	// Insert adds chunk records for a committed document.
	Insert(records []Record) error

	// Search performs vector similarity search, returning the top-K most similar records.
	Search(vector []float32, topK int) ([]ScoredRecord, error)

	// DeleteBySource removes all records belonging to a source document.
	DeleteBySource(sourceID string) error

	// Count returns the number of records in the store.
	Count() (int, error)
}

// Record represents a row in the vector store: one embedded chunk of
// a knowledge document.
type Record struct {
	ID        string
	SourceID  string
	Section   string
	TextChunk string
	Embedding []float32
	CreatedAt time.Time
	Tags      string // JSON array stored as text
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}
