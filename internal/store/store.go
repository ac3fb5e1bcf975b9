// Package store abstracts the external key-indexed record store behind an
// interface so services can run against either the Supabase-backed
// implementation or the in-memory one used in tests.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"podscribe/transcript-service/models"
)

// ErrNotFound is returned by point reads when no row matches the key.
var ErrNotFound = errors.New("record not found")

// HistoryFilter holds the equality filters supported by the edit history
// listing. Zero-valued fields are not applied. IncludeRolledBack defaults to
// true at the handler layer; when false, rolled-back entries are excluded.
type HistoryFilter struct {
	EditType          string
	TargetType        string
	TargetID          string
	EditorEmail       string
	IncludeRolledBack bool
}

// Store is the external record store contract: point reads and writes by
// composite key, filtered scans with limit/offset, atomic single-row writes.
// No transactions are assumed across multiple keys.
type Store interface {
	// Transcript documents, keyed by (episodeSlug, lang). Put upserts.
	GetTranscript(ctx context.Context, episodeSlug, lang string) (*models.TranscriptDocument, error)
	PutTranscript(ctx context.Context, episodeSlug, lang string, doc *models.TranscriptDocument) error

	// Chunk metadata and payload rows.
	GetChunkMeta(ctx context.Context, episodeSlug, lang string) (*models.ChunkMeta, error)
	PutChunkMeta(ctx context.Context, meta models.ChunkMeta) error
	DeleteChunkMeta(ctx context.Context, episodeSlug, lang string) error
	PutChunk(ctx context.Context, rec models.ChunkRecord) error
	ListChunks(ctx context.Context, episodeSlug, lang string) ([]models.ChunkRecord, error)
	DeleteChunks(ctx context.Context, episodeSlug, lang string) error

	// Append-only edit history. MarkRolledBack is idempotent.
	InsertHistory(ctx context.Context, entry models.EditHistoryEntry) error
	GetHistory(ctx context.Context, id uuid.UUID) (*models.EditHistoryEntry, error)
	MarkRolledBack(ctx context.Context, id uuid.UUID, by string, reason *string) error
	ListHistory(ctx context.Context, f HistoryFilter, limit, offset int) ([]models.EditHistoryEntry, error)

	// Editor identities, keyed by normalized email.
	GetEditorByEmail(ctx context.Context, email string) (*models.Editor, error)
	InsertEditor(ctx context.Context, editor models.Editor) (*models.Editor, error)
	TouchEditorLogin(ctx context.Context, email string) (*models.Editor, error)
}
