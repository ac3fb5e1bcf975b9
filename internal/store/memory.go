package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"podscribe/transcript-service/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// One mutex guards all tables; values are deep-copied on the way in and out
// so callers cannot alias internal state.
type MemoryStore struct {
	mu          sync.Mutex
	transcripts map[string]models.TranscriptDocument
	chunkMeta   map[string]models.ChunkMeta
	chunks      map[string][]models.ChunkRecord
	history     map[uuid.UUID]models.EditHistoryEntry
	editors     map[string]models.Editor
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcripts: make(map[string]models.TranscriptDocument),
		chunkMeta:   make(map[string]models.ChunkMeta),
		chunks:      make(map[string][]models.ChunkRecord),
		history:     make(map[uuid.UUID]models.EditHistoryEntry),
		editors:     make(map[string]models.Editor),
	}
}

func pairKey(episodeSlug, lang string) string {
	return episodeSlug + "|" + lang
}

func copyDocument(doc models.TranscriptDocument) models.TranscriptDocument {
	raw, _ := json.Marshal(doc)
	var out models.TranscriptDocument
	_ = json.Unmarshal(raw, &out)
	return out
}

func copyEntry(e models.EditHistoryEntry) models.EditHistoryEntry {
	raw, _ := json.Marshal(e)
	var out models.EditHistoryEntry
	_ = json.Unmarshal(raw, &out)
	return out
}

func (m *MemoryStore) GetTranscript(ctx context.Context, episodeSlug, lang string) (*models.TranscriptDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.transcripts[pairKey(episodeSlug, lang)]
	if !ok {
		return nil, fmt.Errorf("transcript %s/%s: %w", episodeSlug, lang, ErrNotFound)
	}
	out := copyDocument(doc)
	return &out, nil
}

func (m *MemoryStore) PutTranscript(ctx context.Context, episodeSlug, lang string, doc *models.TranscriptDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transcripts[pairKey(episodeSlug, lang)] = copyDocument(*doc)
	return nil
}

func (m *MemoryStore) GetChunkMeta(ctx context.Context, episodeSlug, lang string) (*models.ChunkMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, ok := m.chunkMeta[pairKey(episodeSlug, lang)]
	if !ok {
		return nil, fmt.Errorf("chunk meta %s/%s: %w", episodeSlug, lang, ErrNotFound)
	}
	out := meta
	return &out, nil
}

func (m *MemoryStore) PutChunkMeta(ctx context.Context, meta models.ChunkMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunkMeta[pairKey(meta.EpisodeSlug, meta.Lang)] = meta
	return nil
}

func (m *MemoryStore) DeleteChunkMeta(ctx context.Context, episodeSlug, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chunkMeta, pairKey(episodeSlug, lang))
	return nil
}

func (m *MemoryStore) PutChunk(ctx context.Context, rec models.ChunkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(rec.EpisodeSlug, rec.Lang)
	existing := m.chunks[key]
	for i, r := range existing {
		if r.ChunkIndex == rec.ChunkIndex && r.ChunkKind == rec.ChunkKind {
			existing[i] = rec
			return nil
		}
	}
	m.chunks[key] = append(existing, rec)
	return nil
}

func (m *MemoryStore) ListChunks(ctx context.Context, episodeSlug, lang string) ([]models.ChunkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recs := m.chunks[pairKey(episodeSlug, lang)]
	out := make([]models.ChunkRecord, len(recs))
	copy(out, recs)
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *MemoryStore) DeleteChunks(ctx context.Context, episodeSlug, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chunks, pairKey(episodeSlug, lang))
	return nil
}

// DropChunk removes a single chunk row. Test hook for simulating an
// incomplete chunk set.
func (m *MemoryStore) DropChunk(episodeSlug, lang string, chunkIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(episodeSlug, lang)
	recs := m.chunks[key]
	out := recs[:0]
	for _, r := range recs {
		if r.ChunkIndex != chunkIndex {
			out = append(out, r)
		}
	}
	m.chunks[key] = out
}

func (m *MemoryStore) InsertHistory(ctx context.Context, entry models.EditHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.history[entry.ID]; exists {
		return fmt.Errorf("history entry %s already exists", entry.ID)
	}
	m.history[entry.ID] = copyEntry(entry)
	return nil
}

func (m *MemoryStore) GetHistory(ctx context.Context, id uuid.UUID) (*models.EditHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.history[id]
	if !ok {
		return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	out := copyEntry(entry)
	return &out, nil
}

func (m *MemoryStore) MarkRolledBack(ctx context.Context, id uuid.UUID, by string, reason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.history[id]
	if !ok {
		return fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	entry.IsRolledBack = true
	entry.RolledBackBy = &by
	entry.RolledBackAt = &now
	entry.RollbackReason = reason
	m.history[id] = entry
	return nil
}

func (m *MemoryStore) ListHistory(ctx context.Context, f HistoryFilter, limit, offset int) ([]models.EditHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]models.EditHistoryEntry, 0, len(m.history))
	for _, e := range m.history {
		if f.EditType != "" && e.EditType != f.EditType {
			continue
		}
		if f.TargetType != "" && e.TargetType != f.TargetType {
			continue
		}
		if f.TargetID != "" && e.TargetID != f.TargetID {
			continue
		}
		if f.EditorEmail != "" && e.EditorEmail != f.EditorEmail {
			continue
		}
		if !f.IncludeRolledBack && e.IsRolledBack {
			continue
		}
		matched = append(matched, copyEntry(e))
	}

	// Newest first.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryStore) GetEditorByEmail(ctx context.Context, email string) (*models.Editor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	editor, ok := m.editors[email]
	if !ok {
		return nil, fmt.Errorf("editor %s: %w", email, ErrNotFound)
	}
	out := editor
	return &out, nil
}

func (m *MemoryStore) InsertEditor(ctx context.Context, editor models.Editor) (*models.Editor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.editors[editor.Email]; exists {
		return nil, fmt.Errorf("editor %s already exists", editor.Email)
	}
	m.editors[editor.Email] = editor
	out := editor
	return &out, nil
}

func (m *MemoryStore) TouchEditorLogin(ctx context.Context, email string) (*models.Editor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	editor, ok := m.editors[email]
	if !ok {
		return nil, fmt.Errorf("editor %s: %w", email, ErrNotFound)
	}
	editor.LoginTime = time.Now().UTC()
	m.editors[email] = editor
	out := editor
	return &out, nil
}
