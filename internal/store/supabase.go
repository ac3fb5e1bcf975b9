package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"podscribe/transcript-service/models"
)

const (
	transcriptsTable = "transcripts"
	chunkMetaTable   = "transcript_chunk_meta"
	chunksTable      = "transcript_chunks"
	historyTable     = "edit_history"
	editorsTable     = "editors"
)

// transcriptRow maps to the transcripts table, one row per (episode, lang)
// with the document stored as JSONB.
type transcriptRow struct {
	EpisodeSlug string          `json:"episode_slug"`
	Lang        string          `json:"lang"`
	Document    json.RawMessage `json:"document"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SupabaseStore implements Store on top of the Supabase PostgREST API.
type SupabaseStore struct {
	client *supa.Client
	log    *logrus.Logger
}

// NewSupabaseStore wraps an initialized Supabase client.
func NewSupabaseStore(client *supa.Client, log *logrus.Logger) *SupabaseStore {
	return &SupabaseStore{client: client, log: log}
}

func (s *SupabaseStore) GetTranscript(ctx context.Context, episodeSlug, lang string) (*models.TranscriptDocument, error) {
	body, _, err := s.client.From(transcriptsTable).
		Select("*", "", false).
		Eq("episode_slug", episodeSlug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching transcript %s/%s: %w", episodeSlug, lang, err)
	}

	var rows []transcriptRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing transcript %s/%s: %w", episodeSlug, lang, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("transcript %s/%s: %w", episodeSlug, lang, ErrNotFound)
	}

	var doc models.TranscriptDocument
	if err := json.Unmarshal(rows[0].Document, &doc); err != nil {
		return nil, fmt.Errorf("decoding transcript document %s/%s: %w", episodeSlug, lang, err)
	}
	return &doc, nil
}

func (s *SupabaseStore) PutTranscript(ctx context.Context, episodeSlug, lang string, doc *models.TranscriptDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding transcript document: %w", err)
	}

	row := transcriptRow{
		EpisodeSlug: episodeSlug,
		Lang:        lang,
		Document:    payload,
		UpdatedAt:   time.Now().UTC(),
	}

	_, _, err = s.client.From(transcriptsTable).
		Insert(row, true, "episode_slug,lang", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("writing transcript %s/%s: %w", episodeSlug, lang, err)
	}
	return nil
}

func (s *SupabaseStore) GetChunkMeta(ctx context.Context, episodeSlug, lang string) (*models.ChunkMeta, error) {
	body, _, err := s.client.From(chunkMetaTable).
		Select("*", "", false).
		Eq("episode_slug", episodeSlug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching chunk meta %s/%s: %w", episodeSlug, lang, err)
	}

	var rows []models.ChunkMeta
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing chunk meta %s/%s: %w", episodeSlug, lang, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("chunk meta %s/%s: %w", episodeSlug, lang, ErrNotFound)
	}
	return &rows[0], nil
}

func (s *SupabaseStore) PutChunkMeta(ctx context.Context, meta models.ChunkMeta) error {
	_, _, err := s.client.From(chunkMetaTable).
		Insert(meta, true, "episode_slug,lang", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("writing chunk meta %s/%s: %w", meta.EpisodeSlug, meta.Lang, err)
	}
	return nil
}

func (s *SupabaseStore) DeleteChunkMeta(ctx context.Context, episodeSlug, lang string) error {
	_, _, err := s.client.From(chunkMetaTable).
		Delete("", "").
		Eq("episode_slug", episodeSlug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return fmt.Errorf("deleting chunk meta %s/%s: %w", episodeSlug, lang, err)
	}
	return nil
}

func (s *SupabaseStore) PutChunk(ctx context.Context, rec models.ChunkRecord) error {
	_, _, err := s.client.From(chunksTable).
		Insert(rec, true, "episode_slug,lang,chunk_index,chunk_kind", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("writing chunk %s/%s[%d]: %w", rec.EpisodeSlug, rec.Lang, rec.ChunkIndex, err)
	}
	return nil
}

func (s *SupabaseStore) ListChunks(ctx context.Context, episodeSlug, lang string) ([]models.ChunkRecord, error) {
	body, _, err := s.client.From(chunksTable).
		Select("*", "", false).
		Eq("episode_slug", episodeSlug).
		Eq("lang", lang).
		Order("chunk_index", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("listing chunks %s/%s: %w", episodeSlug, lang, err)
	}

	var rows []models.ChunkRecord
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing chunks %s/%s: %w", episodeSlug, lang, err)
	}
	return rows, nil
}

func (s *SupabaseStore) DeleteChunks(ctx context.Context, episodeSlug, lang string) error {
	_, _, err := s.client.From(chunksTable).
		Delete("", "").
		Eq("episode_slug", episodeSlug).
		Eq("lang", lang).
		Execute()
	if err != nil {
		return fmt.Errorf("deleting chunks %s/%s: %w", episodeSlug, lang, err)
	}
	return nil
}

func (s *SupabaseStore) InsertHistory(ctx context.Context, entry models.EditHistoryEntry) error {
	_, _, err := s.client.From(historyTable).
		Insert(entry, false, "", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("inserting history entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *SupabaseStore) GetHistory(ctx context.Context, id uuid.UUID) (*models.EditHistoryEntry, error) {
	body, _, err := s.client.From(historyTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching history entry %s: %w", id, err)
	}

	var rows []models.EditHistoryEntry
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing history entry %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	return &rows[0], nil
}

func (s *SupabaseStore) MarkRolledBack(ctx context.Context, id uuid.UUID, by string, reason *string) error {
	update := map[string]interface{}{
		"is_rolled_back": true,
		"rolled_back_by": by,
		"rolled_back_at": time.Now().UTC(),
	}
	if reason != nil {
		update["rollback_reason"] = *reason
	}

	_, _, err := s.client.From(historyTable).
		Update(update, "", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("marking history entry %s rolled back: %w", id, err)
	}
	return nil
}

func (s *SupabaseStore) ListHistory(ctx context.Context, f HistoryFilter, limit, offset int) ([]models.EditHistoryEntry, error) {
	q := s.client.From(historyTable).Select("*", "", false)
	if f.EditType != "" {
		q = q.Eq("edit_type", f.EditType)
	}
	if f.TargetType != "" {
		q = q.Eq("target_type", f.TargetType)
	}
	if f.TargetID != "" {
		q = q.Eq("target_id", f.TargetID)
	}
	if f.EditorEmail != "" {
		q = q.Eq("editor_email", f.EditorEmail)
	}
	if !f.IncludeRolledBack {
		q = q.Eq("is_rolled_back", strconv.FormatBool(false))
	}

	body, _, err := q.
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(offset, offset+limit-1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}

	var rows []models.EditHistoryEntry
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing history list: %w", err)
	}
	return rows, nil
}

func (s *SupabaseStore) GetEditorByEmail(ctx context.Context, email string) (*models.Editor, error) {
	body, _, err := s.client.From(editorsTable).
		Select("*", "", false).
		Eq("email", email).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching editor %s: %w", email, err)
	}

	var rows []models.Editor
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing editor %s: %w", email, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("editor %s: %w", email, ErrNotFound)
	}
	return &rows[0], nil
}

func (s *SupabaseStore) InsertEditor(ctx context.Context, editor models.Editor) (*models.Editor, error) {
	var rows []models.Editor
	body, _, err := s.client.From(editorsTable).
		Insert(editor, false, "", "representation", "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("inserting editor %s: %w", editor.Email, err)
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing editor insert response for %s: %w", editor.Email, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no row returned inserting editor %s", editor.Email)
	}
	return &rows[0], nil
}

func (s *SupabaseStore) TouchEditorLogin(ctx context.Context, email string) (*models.Editor, error) {
	update := map[string]interface{}{"login_time": time.Now().UTC()}

	var rows []models.Editor
	body, _, err := s.client.From(editorsTable).
		Update(update, "", "").
		Eq("email", email).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("updating login time for %s: %w", email, err)
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("processing login update for %s: %w", email, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("editor %s: %w", email, ErrNotFound)
	}
	return &rows[0], nil
}
