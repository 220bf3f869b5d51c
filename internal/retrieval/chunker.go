package retrieval

import "strings"

// maxChunkSize bounds chunk length so each chunk fits comfortably in
// the embedding model's context window.
const maxChunkSize = 1500

// ChunkText splits content into embedding-sized chunks on paragraph
// boundaries, packing small paragraphs together and hard-splitting
// paragraphs that exceed the chunk size on their own.
func ChunkText(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			chunks = append(chunks, text)
		}
		current.Reset()
	}

	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if len(para) > maxChunkSize {
			flush()
			for _, piece := range splitLong(para) {
				chunks = append(chunks, piece)
			}
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

// splitLong breaks an oversized paragraph at word boundaries close to
// the chunk size.
func splitLong(para string) []string {
	var pieces []string
	words := strings.Fields(para)
	var current strings.Builder
	for _, w := range words {
		if current.Len() > 0 && current.Len()+len(w)+1 > maxChunkSize {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(w)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
