package retrieval

import (
	"context"
	"time"
)

// Chunk is a retrieved knowledge fragment with its similarity score.
type Chunk struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Section   string    `json:"section"`
	Text      string    `json:"text"`
	Score     float32   `json:"score"`
	Tags      string    `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Retriever combines embedding and vector search to find relevant knowledge.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the top-K most similar chunks.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(vec, topK)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = Chunk{
			ID:        s.ID,
			SourceID:  s.SourceID,
			Section:   s.Section,
			Text:      s.TextChunk,
			Score:     s.Score,
			Tags:      s.Tags,
			CreatedAt: s.CreatedAt,
		}
	}
	return chunks, nil
}
