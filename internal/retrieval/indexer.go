package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentMarker flips a document to committed once its vectors land.
type DocumentMarker interface {
	MarkDocumentCommitted(id string) error
}

// Input carries everything the vectorizing stage needs for one document.
type Input struct {
	DocumentID string
	Section    string
	Content    string
	Tags       []string
}

// Indexer implements the vectorize-and-commit stage of the ingestion
// pipeline: chunk the content, embed the chunks, store the vectors,
// and mark the document committed.
type Indexer struct {
	embedder *Embedder
	store    VectorStore
	docs     DocumentMarker
}

// NewIndexer creates an Indexer over the given embedder, vector store,
// and document marker.
func NewIndexer(embedder *Embedder, store VectorStore, docs DocumentMarker) *Indexer {
	return &Indexer{embedder: embedder, store: store, docs: docs}
}

// Vectorize embeds and stores a document's content, then commits the
// document. Tags are attached to every chunk record so searches can
// surface them.
func (ix *Indexer) Vectorize(ctx context.Context, in Input) error {
	chunks := ChunkText(in.Content)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s has no content to vectorize", in.DocumentID)
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding %d chunks for document %s: %w", len(chunks), in.DocumentID, err)
	}

	tagsJSON := "[]"
	if in.Tags != nil {
		b, err := json.Marshal(in.Tags)
		if err != nil {
			return fmt.Errorf("marshaling tags: %w", err)
		}
		tagsJSON = string(b)
	}

	now := time.Now().UTC()
	records := make([]Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = Record{
			ID:        uuid.New().String(),
			SourceID:  in.DocumentID,
			Section:   in.Section,
			TextChunk: chunk,
			Embedding: vectors[i],
			CreatedAt: now,
			Tags:      tagsJSON,
		}
	}

	if err := ix.store.Insert(records); err != nil {
		return fmt.Errorf("storing vectors for document %s: %w", in.DocumentID, err)
	}

	if err := ix.docs.MarkDocumentCommitted(in.DocumentID); err != nil {
		return fmt.Errorf("committing document %s: %w", in.DocumentID, err)
	}
	return nil
}
