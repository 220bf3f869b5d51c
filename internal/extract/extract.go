// Package extract turns uploaded files and web pages into plain text
// for tagging and embedding. PDFs are parsed directly, HTML pages are
// reduced to their visible text, and anything else is treated as
// plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const maxFetchSize = 5 << 20 // 5MB

// Input is one raw artifact to extract. Exactly one of Data or URL is
// set; the pipeline validates this before calling Extract.
type Input struct {
	Data     []byte
	URL      string
	Filename string // hint for format detection
}

// Result is the extracted text plus structured metadata about the source.
type Result struct {
	Content  string
	Metadata map[string]string
}

// Extractor implements the extraction stage of the ingestion pipeline.
type Extractor struct {
	httpClient *http.Client
}

// New creates an Extractor. Pass nil to use http.DefaultClient for URL fetches.
func New(httpClient *http.Client) *Extractor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Extractor{httpClient: httpClient}
}

// Extract resolves the input to plain text.
func (e *Extractor) Extract(ctx context.Context, in Input) (Result, error) {
	if in.URL != "" {
		return e.fetchURL(ctx, in.URL)
	}
	if isPDF(in.Data, in.Filename) {
		return extractPDF(in.Data, in.Filename)
	}
	return extractText(in.Data, in.Filename)
}

func isPDF(data []byte, filename string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return true
	}
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func extractText(data []byte, filename string) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, fmt.Errorf("file %q is not valid UTF-8 text", filename)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return Result{}, fmt.Errorf("file %q contains no text", filename)
	}
	return Result{
		Content:  content,
		Metadata: map[string]string{"format": "text", "filename": filename},
	}, nil
}

func extractPDF(data []byte, filename string) (res Result, err error) {
	// The PDF parser panics on some malformed files; surface that as a
	// normal extraction error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf %q: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("opening pdf %q: %w", filename, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return Result{}, fmt.Errorf("reading pdf text %q: %w", filename, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return Result{}, fmt.Errorf("reading pdf text %q: %w", filename, err)
	}

	content := strings.TrimSpace(buf.String())
	if content == "" {
		return Result{}, fmt.Errorf("pdf %q contains no extractable text", filename)
	}
	return Result{
		Content: content,
		Metadata: map[string]string{
			"format":   "pdf",
			"filename": filename,
			"pages":    fmt.Sprintf("%d", reader.NumPage()),
		},
	}, nil
}
