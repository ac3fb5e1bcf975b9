package models

import (
	"encoding/json"
	"time"
)

// ChunkKind distinguishes the two logical sub-sequences of a chunked
// transcript: the flat text body and the utterance list.
type ChunkKind string

const (
	ChunkKindText      ChunkKind = "text"
	ChunkKindUtterance ChunkKind = "utterance"
)

// IsValid checks if the ChunkKind is a valid value.
func (k ChunkKind) IsValid() bool {
	return k == ChunkKindText || k == ChunkKindUtterance
}

// ChunkMeta is the per-(episode, language) chunking metadata record.
// Text chunks occupy indices [0, TextChunks); utterance chunks follow at
// [TextChunks, TotalChunks). Indices are contiguous with no gaps.
type ChunkMeta struct {
	EpisodeSlug     string    `json:"episode_slug"`
	Lang            string    `json:"lang"`
	TotalChunks     int       `json:"total_chunks"`
	TextChunks      int       `json:"text_chunks"`
	UtteranceChunks int       `json:"utterance_chunks"`
	ChunkSize       int       `json:"chunk_size"`
	ChunkedAt       time.Time `json:"chunked_at"`
}

// ChunkRecord is one stored chunk payload, keyed by
// (episode_slug, lang, chunk_index, chunk_kind).
type ChunkRecord struct {
	EpisodeSlug string          `json:"episode_slug"`
	Lang        string          `json:"lang"`
	ChunkIndex  int             `json:"chunk_index"`
	ChunkKind   ChunkKind       `json:"chunk_kind"`
	Payload     json.RawMessage `json:"payload"`
}
