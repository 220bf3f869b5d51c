package engine

import (
	"context"
	"fmt"
	"io"
	"time"
)

// EnsureReady checks that the inference backend is running and the tagging and
// embedding models are available, pulling missing ones with progress written
// to w. After both models are available it warms up the tagging model so the
// first ingestion job doesn't pay the cold-load penalty.
func EnsureReady(ctx context.Context, e Engine, tagModel, embedModel string, w io.Writer) error {
	if !e.IsRunning(ctx) {
		return fmt.Errorf("Ollama is not running. Start it with: ollama serve")
	}

	for _, model := range []string{tagModel, embedModel} {
		if e.HasModel(ctx, model) {
			fmt.Fprintf(w, "model %s: ready\n", model)
			continue
		}

		fmt.Fprintf(w, "model %s: pulling...\n", model)
		err := e.PullModel(ctx, model, func(p PullProgress) {
			if p.Total > 0 {
				pct := float64(p.Completed) / float64(p.Total) * 100
				fmt.Fprintf(w, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(w, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return fmt.Errorf("pulling model %s: %w", model, err)
		}
		fmt.Fprintf(w, "model %s: ready\n", model)
	}

	// Warm up the tagging model with a trivial chat request so it stays loaded
	// for low-latency classification.
	fmt.Fprintf(w, "model %s: warming up...\n", tagModel)
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := e.Chat(warmCtx, tagModel, []Message{
		{Role: "user", Content: "ping"},
	}, nil)
	if err != nil {
		fmt.Fprintf(w, "model %s: warm-up failed (non-fatal): %v\n", tagModel, err)
	} else {
		fmt.Fprintf(w, "model %s: warm\n", tagModel)
	}

	return nil
}
