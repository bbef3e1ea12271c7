package models

import "fmt"

// Chunk is a contiguous span of a document's normalized text, the unit
// of embedding and retrieval. Produced by the chunker; content is
// always non-empty after trimming.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Source is the originating document filename.
	Source string

	// Year is the document's publication year.
	Year int

	// Index is the chunk's sequence position within the document.
	Index int

	// Optional extras, often absent in practice.
	Page    *int
	Section *string
}

// ChunkRecord is the stored form of an embedded chunk.
// The record ID is deterministic ("<stem>-chunk-<index>") so that
// re-ingesting the same document overwrites prior records instead of
// duplicating them.
type ChunkRecord struct {
	// ID is the deterministic record key, not stored as a field.
	ID string `json:"-"`

	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Year       int       `json:"year"`
	ChunkIndex int       `json:"chunk_index"`
	Page       *int      `json:"page,omitempty"`
	Section    *string   `json:"section,omitempty"`
	Embedding  []float32 `json:"embedding"`
}

// RecordID returns the deterministic storage key for a chunk of the
// given document stem.
func RecordID(stem string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", stem, index)
}

// NewChunkRecord builds the stored form of a chunk with its embedding.
func NewChunkRecord(c Chunk, stem string, embedding []float32) ChunkRecord {
	return ChunkRecord{
		ID:         RecordID(stem, c.Index),
		Content:    c.Content,
		Source:     c.Source,
		Year:       c.Year,
		ChunkIndex: c.Index,
		Page:       c.Page,
		Section:    c.Section,
		Embedding:  embedding,
	}
}
