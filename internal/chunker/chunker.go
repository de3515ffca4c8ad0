package chunker

import (
	"strings"

	"github.com/sairam-f/agentic-rag/internal/models"
)

// maxPageRunes caps a single page's text before chunking so a pathological
// input cannot blow up memory or CPU.
const maxPageRunes = 2_000_000

// ChunkText splits text into overlapping windows of at most chunkSize runes.
// Carriage returns are stripped and every emitted window is trimmed; empty or
// whitespace-only input yields no chunks. An overlap >= chunkSize is coerced
// to chunkSize/5 so the window always advances.
func ChunkText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	if text == "" || chunkSize <= 0 {
		return nil
	}

	if overlap >= chunkSize {
		overlap = chunkSize / 5
		if overlap < 0 {
			overlap = 0
		}
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []string
	start := 0
	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}

		next := end - overlap
		// Force progress so the loop cannot stall on a large overlap.
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// ChunkDocs chunks every page and tags each chunk with its page's metadata.
// Page order is preserved, then chunk order within a page.
func ChunkDocs(pages []models.Page, chunkSize, overlap int) []models.Chunk {
	var out []models.Chunk
	for _, p := range pages {
		txt := p.Text
		if runes := []rune(txt); len(runes) > maxPageRunes {
			txt = string(runes[:maxPageRunes])
		}

		for _, c := range ChunkText(txt, chunkSize, overlap) {
			out = append(out, models.Chunk{Text: c, Metadata: p.Metadata})
		}
	}
	return out
}
