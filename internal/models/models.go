package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Metadata carries the provenance of a chunk: the source filename and, for
// paged formats, the 1-based page number. Page is nil for unpaged sources.
type Metadata struct {
	Source string `json:"source"`
	Page   *int   `json:"page"`
}

// Page is one unit of loaded document text before chunking.
type Page struct {
	Text     string
	Metadata Metadata
}

// Chunk is a bounded window of page text with its page's metadata.
type Chunk struct {
	Text     string
	Metadata Metadata
}

// StableID fingerprints a chunk by (source, page, text). The same triple
// always yields the same id, which is what makes re-ingestion idempotent.
func StableID(source string, page *int, text string) string {
	p := "null"
	if page != nil {
		p = strconv.Itoa(*page)
	}
	h := sha256.Sum256([]byte(source + p + text))
	return hex.EncodeToString(h[:])[:24]
}
