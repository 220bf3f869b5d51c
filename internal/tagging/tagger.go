// Package tagging implements the classification stage of the
// ingestion pipeline: a local LLM reads the extracted content and
// returns topic tags, a category suggestion, and a short summary as
// structured JSON.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kbready/kbready/internal/engine"
	"github.com/kbready/kbready/internal/taxonomy"
)

const tagTimeout = 60 * time.Second

// maxPromptContent caps how much document text is sent to the model.
const maxPromptContent = 6000

// Chatter is the chat-completion slice of the inference engine.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, jsonSchema *engine.Schema) (string, error)
}

// Result is the structured tagging output.
type Result struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Summary  string   `json:"summary"`
}

// Tagger classifies extracted document content.
type Tagger struct {
	client Chatter
	model  string
}

// New creates a Tagger using the given engine and model name.
func New(client Chatter, model string) *Tagger {
	return &Tagger{client: client, model: model}
}

// Tag classifies content. The section is the operator's chosen
// category and the hint is the original filename or URL; both steer
// the model. Unlike a best-effort classifier, a failure here is
// returned to the caller so the ingestion job can report it.
func (t *Tagger) Tag(ctx context.Context, content, section, hint string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, tagTimeout)
	defer cancel()

	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}

	messages := buildPrompt(content, section, hint)

	raw, err := t.client.Chat(ctx, t.model, messages, tagSchema())
	if err != nil {
		return Result{}, fmt.Errorf("tagging chat: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, fmt.Errorf("unmarshaling tagging response %q: %w", raw, err)
	}
	if len(result.Tags) == 0 {
		return Result{}, fmt.Errorf("tagging returned no tags")
	}

	result.Category = string(taxonomy.Canonical(result.Category))
	return result, nil
}

func buildPrompt(content, section, hint string) []engine.Message {
	var known []string
	for _, g := range taxonomy.Groups {
		for _, s := range g.Sections {
			known = append(known, string(s))
		}
	}

	system := "You classify sales and marketing knowledge documents. " +
		"Return 3-8 short lowercase topic tags, the best-fitting category from the known list, " +
		"and a one-sentence summary. Known categories: " + strings.Join(known, ", ") + "."

	var user strings.Builder
	fmt.Fprintf(&user, "Operator filed this document under: %s\n", section)
	if hint != "" {
		fmt.Fprintf(&user, "Source: %s\n", hint)
	}
	user.WriteString("\nDocument content:\n")
	user.WriteString(content)

	return []engine.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}

// tagSchema returns the JSON schema for structured tagging output.
func tagSchema() *engine.Schema {
	return &engine.Schema{
		Type: "object",
		Properties: map[string]engine.SchemaProperty{
			"tags":     {Type: "array", Description: "Short lowercase topic tags", Items: &engine.SchemaProperty{Type: "string"}},
			"category": {Type: "string", Description: "Best-fitting knowledge category"},
			"summary":  {Type: "string", Description: "One-sentence summary of the document"},
		},
		Required: []string{"tags", "category", "summary"},
	}
}
