// Package chunker splits a transcript document into ordered, size-bounded
// chunks and reconstructs the original document from them. The codec is
// pure: storage round-trips are handled by the chunkstore service.
package chunker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"podscribe/transcript-service/models"
)

var (
	// ErrIncompleteChunkSet is returned when a chunk index in
	// [0, totalChunks) has no stored payload.
	ErrIncompleteChunkSet = errors.New("incomplete chunk set")
	// ErrCorruptChunk is returned when a stored payload fails to
	// deserialize.
	ErrCorruptChunk = errors.New("corrupt chunk")
	// ErrInvalidChunkSize is returned for a non-positive size bound.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
)

// ChunkSet is the output of Chunk: the metadata record plus every chunk
// payload row, already keyed and indexed for storage.
type ChunkSet struct {
	Meta   models.ChunkMeta
	Chunks []models.ChunkRecord
}

// Chunk serializes the document's text body and utterance list into two
// logical sub-sequences of chunks, none larger than maxChunkBytes. Text
// chunks occupy indices [0, textChunks); utterance chunks follow. Utterance
// chunks split only on utterance boundaries: a single utterance whose
// serialization alone exceeds the bound becomes its own oversized chunk
// rather than failing, since a lossy split would corrupt the transcript.
func Chunk(episodeSlug, lang string, doc models.TranscriptDocument, maxChunkBytes int) (*ChunkSet, error) {
	if maxChunkBytes <= 0 {
		return nil, fmt.Errorf("chunking %s/%s: %w", episodeSlug, lang, ErrInvalidChunkSize)
	}

	textParts := splitText(doc.Text, maxChunkBytes)
	utteranceGroups, err := packUtterances(doc.Utterances, maxChunkBytes)
	if err != nil {
		return nil, fmt.Errorf("chunking %s/%s: %w", episodeSlug, lang, err)
	}

	chunks := make([]models.ChunkRecord, 0, len(textParts)+len(utteranceGroups))
	index := 0
	for _, part := range textParts {
		payload, err := json.Marshal(part)
		if err != nil {
			return nil, fmt.Errorf("encoding text chunk %d: %w", index, err)
		}
		chunks = append(chunks, models.ChunkRecord{
			EpisodeSlug: episodeSlug,
			Lang:        lang,
			ChunkIndex:  index,
			ChunkKind:   models.ChunkKindText,
			Payload:     payload,
		})
		index++
	}
	for _, group := range utteranceGroups {
		payload, err := json.Marshal(group)
		if err != nil {
			return nil, fmt.Errorf("encoding utterance chunk %d: %w", index, err)
		}
		chunks = append(chunks, models.ChunkRecord{
			EpisodeSlug: episodeSlug,
			Lang:        lang,
			ChunkIndex:  index,
			ChunkKind:   models.ChunkKindUtterance,
			Payload:     payload,
		})
		index++
	}

	return &ChunkSet{
		Meta: models.ChunkMeta{
			EpisodeSlug:     episodeSlug,
			Lang:            lang,
			TotalChunks:     len(chunks),
			TextChunks:      len(textParts),
			UtteranceChunks: len(utteranceGroups),
			ChunkSize:       maxChunkBytes,
			ChunkedAt:       time.Now().UTC(),
		},
		Chunks: chunks,
	}, nil
}

// Reconstruct rebuilds the original document from the metadata record and
// the stored chunk rows. It verifies that every index in [0, totalChunks)
// is present and decodable; a partial document is never returned.
func Reconstruct(meta models.ChunkMeta, records []models.ChunkRecord) (*models.TranscriptDocument, error) {
	byIndex := make(map[int]models.ChunkRecord, len(records))
	for _, rec := range records {
		byIndex[rec.ChunkIndex] = rec
	}

	var text string
	var utterances []models.Segment

	for i := 0; i < meta.TotalChunks; i++ {
		rec, ok := byIndex[i]
		if !ok {
			return nil, fmt.Errorf("chunk %d of %d for %s/%s: %w",
				i, meta.TotalChunks, meta.EpisodeSlug, meta.Lang, ErrIncompleteChunkSet)
		}

		if !rec.ChunkKind.IsValid() {
			return nil, fmt.Errorf("chunk %d for %s/%s has unknown kind %q: %w",
				i, meta.EpisodeSlug, meta.Lang, rec.ChunkKind, ErrCorruptChunk)
		}

		switch rec.ChunkKind {
		case models.ChunkKindText:
			var part string
			if err := json.Unmarshal(rec.Payload, &part); err != nil {
				return nil, fmt.Errorf("text chunk %d for %s/%s: %w",
					i, meta.EpisodeSlug, meta.Lang, ErrCorruptChunk)
			}
			text += part
		case models.ChunkKindUtterance:
			var group []models.Segment
			if err := json.Unmarshal(rec.Payload, &group); err != nil {
				return nil, fmt.Errorf("utterance chunk %d for %s/%s: %w",
					i, meta.EpisodeSlug, meta.Lang, ErrCorruptChunk)
			}
			utterances = append(utterances, group...)
		}
	}

	return &models.TranscriptDocument{Text: text, Utterances: utterances}, nil
}

// splitText cuts s into pieces whose JSON string serializations stay within
// max bytes, splitting on rune boundaries so no multi-byte character is torn
// in half. The bound applies to the stored payload, so each rune is costed at
// its escaped length, not its raw UTF-8 length.
func splitText(s string, max int) []string {
	if s == "" {
		return nil
	}

	budget := max - 2 // surrounding quotes
	var parts []string
	var current strings.Builder
	currentCost := 0
	for _, r := range s {
		cost := jsonStringCost(r)
		if currentCost+cost > budget && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			currentCost = 0
		}
		current.WriteRune(r)
		currentCost += cost
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// jsonStringCost is the number of bytes r occupies inside a json.Marshal-ed
// string literal, matching encoding/json's default escaping (including the
// HTML-safe escapes for <, >, and &).
func jsonStringCost(r rune) int {
	switch r {
	case '"', '\\', '\n', '\r', '\t':
		return 2
	case '<', '>', '&', '\u2028', '\u2029':
		return 6
	}
	if r < 0x20 {
		return 6
	}
	return utf8.RuneLen(r)
}

// packUtterances greedily groups utterances so each group's JSON array
// serialization stays within max bytes. A lone oversized utterance is
// emitted as its own group.
func packUtterances(utterances []models.Segment, max int) ([][]models.Segment, error) {
	var groups [][]models.Segment
	var current []models.Segment
	currentSize := 2 // []

	flush := func() {
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
			currentSize = 2
		}
	}

	for _, u := range utterances {
		encoded, err := json.Marshal(u)
		if err != nil {
			return nil, fmt.Errorf("encoding utterance %s: %w", u.ID, err)
		}

		itemSize := len(encoded)
		if len(current) > 0 {
			itemSize++ // comma
		}

		if currentSize+itemSize > max {
			flush()
			itemSize = len(encoded)
		}
		current = append(current, u)
		currentSize += itemSize
	}
	flush()
	return groups, nil
}
