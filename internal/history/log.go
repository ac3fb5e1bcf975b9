// Package history implements the append-only edit history log with
// compensating-action revert. Entries are created once per mutation and only
// ever mutated to set their rollback fields; reverts append their own entry
// so the trail stays monotonically append-only.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"podscribe/transcript-service/internal/editoridentity"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
)

var (
	// ErrNotFound is returned when the referenced entry does not exist.
	ErrNotFound = errors.New("history entry not found")
	// ErrAlreadyRolledBack is returned when the entry was reverted before.
	ErrAlreadyRolledBack = errors.New("edit already rolled back")
	// ErrNoReverter is returned when no Revertible is registered for the
	// entry's target type.
	ErrNoReverter = errors.New("no reverter registered for target type")
)

// Revertible restores a target's prior content. One implementation exists
// per target type; the log selects it by the entry's targetType tag. The
// inverse write must be atomic at the row level: the rollback flag only
// flips after ApplyInverse returns nil.
type Revertible interface {
	ApplyInverse(ctx context.Context, targetID string, contentBefore json.RawMessage) error
}

// Log is the edit history service over the external store.
type Log struct {
	store store.Store
	log   *logrus.Logger

	mu        sync.RWMutex
	reverters map[string]Revertible
}

// New creates a history log over the given store.
func New(st store.Store, logger *logrus.Logger) *Log {
	return &Log{
		store:     st,
		log:       logger,
		reverters: make(map[string]Revertible),
	}
}

// RegisterRevertible installs the inverse-write implementation for a target
// type. Later registrations for the same type win.
func (l *Log) RegisterRevertible(targetType string, r Revertible) {
	l.mu.Lock()
	l.reverters[targetType] = r
	l.mu.Unlock()
}

func (l *Log) reverterFor(targetType string) (Revertible, bool) {
	l.mu.RLock()
	r, ok := l.reverters[targetType]
	l.mu.RUnlock()
	return r, ok
}

// Append records one mutation. The acting editor must be resolved. When the
// entry arrives with a pre-minted id, Append first checks whether that id
// was already written, so a retry after a transient failure cannot produce a
// duplicate audit row.
func (l *Log) Append(ctx context.Context, editor *models.Editor, entry models.EditHistoryEntry) (*models.EditHistoryEntry, error) {
	if err := editoridentity.Require(editor); err != nil {
		return nil, err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	} else if existing, err := l.store.GetHistory(ctx, entry.ID); err == nil {
		return existing, nil
	}

	entry.EditorID = editor.ID
	entry.EditorEmail = editor.Email
	entry.EditorName = editor.Name
	entry.CreatedAt = time.Now().UTC()
	entry.IsRolledBack = false
	entry.RolledBackBy = nil
	entry.RolledBackAt = nil
	entry.RollbackReason = nil

	if err := l.store.InsertHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending history entry: %w", err)
	}

	l.log.WithFields(logrus.Fields{
		"entry_id":     entry.ID,
		"edit_type":    entry.EditType,
		"target_type":  entry.TargetType,
		"target_id":    entry.TargetID,
		"editor_email": entry.EditorEmail,
	}).Info("History entry appended")
	return &entry, nil
}

// Get fetches a single entry by id.
func (l *Log) Get(ctx context.Context, id uuid.UUID) (*models.EditHistoryEntry, error) {
	entry, err := l.store.GetHistory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return entry, nil
}

// List returns entries newest-first with the given filters and paging.
func (l *Log) List(ctx context.Context, f store.HistoryFilter, limit, offset int) ([]models.EditHistoryEntry, error) {
	return l.store.ListHistory(ctx, f, limit, offset)
}

// Revert applies the compensating action for an entry: restore the entry's
// contentBefore into the live target, flip the entry's rollback flag, then
// append a fresh revert entry (before/after swapped) describing the undo
// itself. The flag only flips after the inverse write succeeds; if the flag
// update is interrupted the restore stands and the update can be retried,
// since MarkRolledBack is idempotent.
func (l *Log) Revert(ctx context.Context, editID uuid.UUID, editor *models.Editor, reason *string) (*models.EditHistoryEntry, error) {
	if err := editoridentity.Require(editor); err != nil {
		return nil, err
	}

	entry, err := l.Get(ctx, editID)
	if err != nil {
		return nil, err
	}
	if entry.IsRolledBack {
		return nil, fmt.Errorf("history entry %s: %w", editID, ErrAlreadyRolledBack)
	}

	reverter, ok := l.reverterFor(entry.TargetType)
	if !ok {
		return nil, fmt.Errorf("target type %q: %w", entry.TargetType, ErrNoReverter)
	}

	if err := reverter.ApplyInverse(ctx, entry.TargetID, entry.ContentBefore); err != nil {
		return nil, fmt.Errorf("restoring %s %s: %w", entry.TargetType, entry.TargetID, err)
	}

	if err := l.store.MarkRolledBack(ctx, editID, editor.Email, reason); err != nil {
		// Content is already restored; the flag update is retryable.
		return nil, fmt.Errorf("content restored but flagging entry %s failed: %w", editID, err)
	}

	metadata := map[string]interface{}{"reverted_entry_id": editID.String()}
	if reason != nil {
		metadata["rollback_reason"] = *reason
	}

	revertEntry, err := l.Append(ctx, editor, models.EditHistoryEntry{
		ID:            uuid.New(),
		EditType:      models.RevertEditTypePrefix + entry.EditType,
		TargetType:    entry.TargetType,
		TargetID:      entry.TargetID,
		FilePath:      entry.FilePath,
		ContentBefore: entry.ContentAfter,
		ContentAfter:  entry.ContentBefore,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("appending revert entry for %s: %w", editID, err)
	}

	l.log.WithFields(logrus.Fields{
		"entry_id":        editID,
		"revert_entry_id": revertEntry.ID,
		"editor_email":    editor.Email,
	}).Info("Edit rolled back")
	return revertEntry, nil
}
