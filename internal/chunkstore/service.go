// Package chunkstore orchestrates the chunk codec against the external
// store: chunked writes, metadata lookup, reconstruction with bounded retry,
// and idempotent clearing.
package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"podscribe/transcript-service/internal/chunker"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
)

// Service reads and writes large transcripts as bounded chunks.
type Service struct {
	store         store.Store
	log           *logrus.Logger
	maxChunkBytes int
	retries       int
	backoffBase   time.Duration // tests override to keep runs fast
}

// NewService creates a chunk service. maxChunkBytes bounds each stored
// chunk payload.
func NewService(st store.Store, logger *logrus.Logger, maxChunkBytes int) *Service {
	if maxChunkBytes <= 0 {
		maxChunkBytes = 256 << 10
	}
	return &Service{
		store:         st,
		log:           logger,
		maxChunkBytes: maxChunkBytes,
		retries:       3,
		backoffBase:   500 * time.Millisecond,
	}
}

// SaveChunked replaces the stored chunk set for a transcript. Existing
// chunks are cleared first and the metadata row is written last, so a
// reader never sees metadata pointing at a partially written set.
func (s *Service) SaveChunked(ctx context.Context, episodeSlug, lang string, doc models.TranscriptDocument) (*models.ChunkMeta, error) {
	set, err := chunker.Chunk(episodeSlug, lang, doc, s.maxChunkBytes)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteChunkMeta(ctx, episodeSlug, lang); err != nil {
		return nil, fmt.Errorf("clearing stale chunk meta %s/%s: %w", episodeSlug, lang, err)
	}
	if err := s.store.DeleteChunks(ctx, episodeSlug, lang); err != nil {
		return nil, fmt.Errorf("clearing stale chunks %s/%s: %w", episodeSlug, lang, err)
	}

	for _, rec := range set.Chunks {
		if err := s.store.PutChunk(ctx, rec); err != nil {
			return nil, fmt.Errorf("writing chunk %d for %s/%s: %w", rec.ChunkIndex, episodeSlug, lang, err)
		}
	}
	if err := s.store.PutChunkMeta(ctx, set.Meta); err != nil {
		return nil, fmt.Errorf("writing chunk meta %s/%s: %w", episodeSlug, lang, err)
	}

	s.log.WithFields(logrus.Fields{
		"episode_slug":     episodeSlug,
		"lang":             lang,
		"total_chunks":     set.Meta.TotalChunks,
		"text_chunks":      set.Meta.TextChunks,
		"utterance_chunks": set.Meta.UtteranceChunks,
	}).Info("Transcript chunked and stored")
	return &set.Meta, nil
}

// ChunksInfo returns the chunk metadata for a transcript, or nil when the
// transcript has never been chunked.
func (s *Service) ChunksInfo(ctx context.Context, episodeSlug, lang string) (*models.ChunkMeta, error) {
	meta, err := s.store.GetChunkMeta(ctx, episodeSlug, lang)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return meta, nil
}

// Reconstructed is a fully reassembled transcript.
type Reconstructed struct {
	Text       string           `json:"text"`
	Utterances []models.Segment `json:"utterances"`
	ChunkCount int              `json:"chunk_count"`
}

// Reconstruct reassembles the transcript from its stored chunks. Transient
// read failures are retried with bounded exponential backoff; consistency
// failures (missing or corrupt chunks) are surfaced verbatim since retrying
// cannot change them. Assembly is atomic: the result is either complete or
// an error, never a partial transcript. Returns nil when the transcript has
// never been chunked.
func (s *Service) Reconstruct(ctx context.Context, episodeSlug, lang string) (*Reconstructed, error) {
	meta, err := s.ChunksInfo(ctx, episodeSlug, lang)
	if err != nil || meta == nil {
		return nil, err
	}

	records, err := s.listChunksWithRetry(ctx, episodeSlug, lang)
	if err != nil {
		return nil, err
	}

	doc, err := chunker.Reconstruct(*meta, records)
	if err != nil {
		return nil, err
	}

	return &Reconstructed{
		Text:       doc.Text,
		Utterances: doc.Utterances,
		ChunkCount: meta.TotalChunks,
	}, nil
}

func (s *Service) listChunksWithRetry(ctx context.Context, episodeSlug, lang string) ([]models.ChunkRecord, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if attempt > 0 {
			backoff := s.backoffBase << (attempt - 1)
			s.log.WithFields(logrus.Fields{
				"episode_slug": episodeSlug,
				"lang":         lang,
				"attempt":      attempt,
				"backoff_ms":   backoff.Milliseconds(),
			}).Warn("Retrying chunk read")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		records, err := s.store.ListChunks(ctx, episodeSlug, lang)
		if err == nil {
			return records, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("reading chunks %s/%s after %d attempts: %w", episodeSlug, lang, s.retries, lastErr)
}

// Clear deletes all chunks and metadata for the key. Clearing a key that
// was never chunked is a no-op.
func (s *Service) Clear(ctx context.Context, episodeSlug, lang string) error {
	if err := s.store.DeleteChunks(ctx, episodeSlug, lang); err != nil {
		return fmt.Errorf("clearing chunks %s/%s: %w", episodeSlug, lang, err)
	}
	if err := s.store.DeleteChunkMeta(ctx, episodeSlug, lang); err != nil {
		return fmt.Errorf("clearing chunk meta %s/%s: %w", episodeSlug, lang, err)
	}
	return nil
}
