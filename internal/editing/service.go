// Package editing orchestrates segment mutations: it loads the transcript,
// applies the operation, persists the result and records the mutation in the
// history log, serializing operations per (episode, language) key.
package editing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"podscribe/transcript-service/internal/editoridentity"
	"podscribe/transcript-service/internal/history"
	"podscribe/transcript-service/internal/segments"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
)

// TargetTypeTranscript tags history entries written by this service.
const TargetTypeTranscript = "transcription"

// Service applies segment operations against stored transcripts.
type Service struct {
	store   store.Store
	history *history.Log
	log     *logrus.Logger

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// NewService wires the editing service and registers its transcript
// reverter with the history log.
func NewService(st store.Store, hist *history.Log, logger *logrus.Logger) *Service {
	s := &Service{
		store:    st,
		history:  hist,
		log:      logger,
		keyLocks: make(map[string]*sync.Mutex),
	}
	hist.RegisterRevertible(TargetTypeTranscript, &transcriptReverter{store: st})
	return s
}

// TargetID builds the composite history target id for a transcript.
func TargetID(episodeSlug, lang string) string {
	return episodeSlug + "/" + lang
}

// SplitTargetID is the inverse of TargetID.
func SplitTargetID(targetID string) (episodeSlug, lang string, err error) {
	idx := strings.LastIndex(targetID, "/")
	if idx <= 0 || idx == len(targetID)-1 {
		return "", "", fmt.Errorf("malformed transcript target id %q", targetID)
	}
	return targetID[:idx], targetID[idx+1:], nil
}

func (s *Service) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.keyLocks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.keyLocks[key] = l
	return l
}

// ApplyResult is the outcome of one committed (or no-op) operation.
type ApplyResult struct {
	Segments       []models.Segment `json:"segments"`
	HistoryEntryID uuid.UUID        `json:"history_entry_id,omitempty"`
	NoOp           bool             `json:"no_op"`
}

// ApplyOperation runs one segment operation end to end: load, mutate,
// re-sort, persist, then append the history entry. A failed store write
// surfaces the error and writes no history row. No-op operations (delete of
// an unknown id, speaker reassignment that changes nothing) skip both the
// write and the history append.
func (s *Service) ApplyOperation(ctx context.Context, editor *models.Editor, episodeSlug, lang string, op segments.Operation) (*ApplyResult, error) {
	if err := editoridentity.Require(editor); err != nil {
		return nil, err
	}

	key := TargetID(episodeSlug, lang)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.store.GetTranscript(ctx, episodeSlug, lang)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Type(), key, err)
	}

	before := doc.Utterances
	outcome, err := segments.Apply(before, op)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op.Type(), key, err)
	}
	if outcome.Changed == 0 {
		return &ApplyResult{Segments: before, NoOp: true}, nil
	}

	sorted := segments.SortByStart(outcome.Segments)
	updated := &models.TranscriptDocument{Utterances: sorted}
	updated.Text = updated.JoinUtteranceTexts()

	if err := s.store.PutTranscript(ctx, episodeSlug, lang, updated); err != nil {
		return nil, fmt.Errorf("%s %s: saving transcript: %w", op.Type(), key, err)
	}

	contentBefore, err := json.Marshal(before)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encoding snapshot: %w", op.Type(), key, err)
	}
	contentAfter, err := json.Marshal(sorted)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encoding snapshot: %w", op.Type(), key, err)
	}

	entry := models.EditHistoryEntry{
		ID:            uuid.New(),
		EditType:      op.Type(),
		TargetType:    TargetTypeTranscript,
		TargetID:      key,
		ContentBefore: contentBefore,
		ContentAfter:  contentAfter,
		Metadata: map[string]interface{}{
			"episode_slug":            episodeSlug,
			"lang":                    lang,
			"affected_segments_count": outcome.Changed,
		},
	}

	appended, err := s.appendWithRetry(ctx, editor, entry)
	if err != nil {
		// The content write already succeeded; surface the failure so
		// the caller can retry the append, not the whole operation.
		return nil, fmt.Errorf("%s %s: transcript saved but history append failed: %w", op.Type(), key, err)
	}

	s.log.WithFields(logrus.Fields{
		"edit_type":    op.Type(),
		"target_id":    key,
		"editor_email": editor.Email,
		"entry_id":     appended.ID,
	}).Info("Transcript operation committed")

	return &ApplyResult{Segments: sorted, HistoryEntryID: appended.ID}, nil
}

// appendWithRetry retries the history append once. The entry id is minted
// before the first attempt, and Append checks for it before re-inserting, so
// the retry cannot duplicate the audit row.
func (s *Service) appendWithRetry(ctx context.Context, editor *models.Editor, entry models.EditHistoryEntry) (*models.EditHistoryEntry, error) {
	appended, err := s.history.Append(ctx, editor, entry)
	if err == nil {
		return appended, nil
	}
	if errors.Is(err, editoridentity.ErrUnauthenticated) {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"entry_id": entry.ID}).
		WithError(err).Warn("History append failed, retrying once")
	return s.history.Append(ctx, editor, entry)
}

// SaveDocument stores a full transcript document, serialized with the
// segment operations for the same key. Ingest path; no history entry is
// written since nothing pre-existing was mutated.
func (s *Service) SaveDocument(ctx context.Context, editor *models.Editor, episodeSlug, lang string, doc *models.TranscriptDocument) error {
	if err := editoridentity.Require(editor); err != nil {
		return err
	}

	lock := s.lockFor(TargetID(episodeSlug, lang))
	lock.Lock()
	defer lock.Unlock()

	doc.Utterances = segments.SortByStart(doc.Utterances)
	return s.store.PutTranscript(ctx, episodeSlug, lang, doc)
}

// Revert undoes a prior edit through the history log and returns the
// appended revert entry. Exposed here so handlers route all transcript
// mutations through one service.
func (s *Service) Revert(ctx context.Context, editor *models.Editor, editID uuid.UUID, reason *string) (*models.EditHistoryEntry, error) {
	return s.history.Revert(ctx, editID, editor, reason)
}

// transcriptReverter restores a transcript's prior segment list. It is the
// Revertible implementation for TargetTypeTranscript.
type transcriptReverter struct {
	store store.Store
}

func (r *transcriptReverter) ApplyInverse(ctx context.Context, targetID string, contentBefore json.RawMessage) error {
	episodeSlug, lang, err := SplitTargetID(targetID)
	if err != nil {
		return err
	}

	var restored []models.Segment
	if err := json.Unmarshal(contentBefore, &restored); err != nil {
		return fmt.Errorf("decoding prior content for %s: %w", targetID, err)
	}

	doc := &models.TranscriptDocument{Utterances: segments.SortByStart(restored)}
	doc.Text = doc.JoinUtteranceTexts()

	if err := r.store.PutTranscript(ctx, episodeSlug, lang, doc); err != nil {
		return fmt.Errorf("restoring transcript %s: %w", targetID, err)
	}
	return nil
}
