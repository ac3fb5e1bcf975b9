package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/transcript-service/internal/editoridentity"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testEditor() *models.Editor {
	return &models.Editor{
		ID:    uuid.New(),
		Email: "alice@example.com",
		Name:  "Alice",
	}
}

// recordingReverter captures inverse writes and can be told to fail.
type recordingReverter struct {
	calls    []string
	restored []json.RawMessage
	fail     error
}

func (r *recordingReverter) ApplyInverse(ctx context.Context, targetID string, contentBefore json.RawMessage) error {
	if r.fail != nil {
		return r.fail
	}
	r.calls = append(r.calls, targetID)
	r.restored = append(r.restored, contentBefore)
	return nil
}

func newTestLog() (*Log, *store.MemoryStore, *recordingReverter) {
	st := store.NewMemoryStore()
	l := New(st, testLogger())
	rev := &recordingReverter{}
	l.RegisterRevertible("transcription", rev)
	return l, st, rev
}

func sampleEntry() models.EditHistoryEntry {
	return models.EditHistoryEntry{
		EditType:      models.EditTypeUpdateText,
		TargetType:    "transcription",
		TargetID:      "ep-1/en",
		ContentBefore: json.RawMessage(`{"text":"old"}`),
		ContentAfter:  json.RawMessage(`{"text":"new"}`),
	}
}

func TestAppendRequiresEditor(t *testing.T) {
	l, _, _ := newTestLog()

	_, err := l.Append(context.Background(), nil, sampleEntry())
	assert.ErrorIs(t, err, editoridentity.ErrUnauthenticated)
}

func TestAppendStampsEditorAndDefaults(t *testing.T) {
	l, _, _ := newTestLog()
	editor := testEditor()

	entry, err := l.Append(context.Background(), editor, sampleEntry())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, editor.ID, entry.EditorID)
	assert.Equal(t, editor.Email, entry.EditorEmail)
	assert.Equal(t, editor.Name, entry.EditorName)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.False(t, entry.IsRolledBack)

	// Immediately visible to reads.
	got, err := l.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
}

func TestAppendWithPresetIDIsIdempotent(t *testing.T) {
	l, _, _ := newTestLog()
	editor := testEditor()
	ctx := context.Background()

	entry := sampleEntry()
	entry.ID = uuid.New()

	first, err := l.Append(ctx, editor, entry)
	require.NoError(t, err)

	// A retried append with the same id must not write a second row.
	second, err := l.Append(ctx, editor, entry)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	entries, err := l.List(ctx, store.HistoryFilter{IncludeRolledBack: true}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListFiltersAndOrder(t *testing.T) {
	l, _, _ := newTestLog()
	editor := testEditor()
	ctx := context.Background()

	for _, editType := range []string{models.EditTypeSplit, models.EditTypeMerge, models.EditTypeSplit} {
		e := sampleEntry()
		e.EditType = editType
		_, err := l.Append(ctx, editor, e)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct createdAt for ordering
	}

	all, err := l.List(ctx, store.HistoryFilter{IncludeRolledBack: true}, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt))

	splits, err := l.List(ctx, store.HistoryFilter{EditType: models.EditTypeSplit, IncludeRolledBack: true}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, splits, 2)
}

func TestRevertFlow(t *testing.T) {
	l, _, rev := newTestLog()
	editor := testEditor()
	ctx := context.Background()

	entry, err := l.Append(ctx, editor, sampleEntry())
	require.NoError(t, err)

	reason := "typo fix was wrong"
	revertEntry, err := l.Revert(ctx, entry.ID, editor, &reason)
	require.NoError(t, err)

	// Inverse write restored contentBefore into the live target.
	require.Len(t, rev.calls, 1)
	assert.Equal(t, "ep-1/en", rev.calls[0])
	assert.JSONEq(t, `{"text":"old"}`, string(rev.restored[0]))

	// Original entry is flagged, not rewritten.
	original, err := l.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, original.IsRolledBack)
	require.NotNil(t, original.RolledBackBy)
	assert.Equal(t, editor.Email, *original.RolledBackBy)
	require.NotNil(t, original.RollbackReason)
	assert.Equal(t, reason, *original.RollbackReason)

	// The revert is its own entry with before/after swapped.
	assert.NotEqual(t, entry.ID, revertEntry.ID)
	assert.Equal(t, "revert_update_text", revertEntry.EditType)
	assert.JSONEq(t, `{"text":"new"}`, string(revertEntry.ContentBefore))
	assert.JSONEq(t, `{"text":"old"}`, string(revertEntry.ContentAfter))
	assert.False(t, revertEntry.IsRolledBack)

	entries, err := l.List(ctx, store.HistoryFilter{IncludeRolledBack: true}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRevertTwiceFails(t *testing.T) {
	l, _, _ := newTestLog()
	editor := testEditor()
	ctx := context.Background()

	entry, err := l.Append(ctx, editor, sampleEntry())
	require.NoError(t, err)

	_, err = l.Revert(ctx, entry.ID, editor, nil)
	require.NoError(t, err)

	_, err = l.Revert(ctx, entry.ID, editor, nil)
	assert.ErrorIs(t, err, ErrAlreadyRolledBack)
}

func TestRevertOfRevertIsWellDefined(t *testing.T) {
	l, _, rev := newTestLog()
	editor := testEditor()
	ctx := context.Background()

	entry, err := l.Append(ctx, editor, sampleEntry())
	require.NoError(t, err)

	revertEntry, err := l.Revert(ctx, entry.ID, editor, nil)
	require.NoError(t, err)

	// Reverting the revert restores the post-edit content.
	again, err := l.Revert(ctx, revertEntry.ID, editor, nil)
	require.NoError(t, err)
	assert.Equal(t, "revert_revert_update_text", again.EditType)
	assert.JSONEq(t, `{"text":"new"}`, string(rev.restored[len(rev.restored)-1]))

	entries, err := l.List(ctx, store.HistoryFilter{IncludeRolledBack: true}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRevertUnknownEntry(t *testing.T) {
	l, _, _ := newTestLog()

	_, err := l.Revert(context.Background(), uuid.New(), testEditor(), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevertLeavesFlagUnsetWhenInverseWriteFails(t *testing.T) {
	l, _, rev := newTestLog()
	editor := testEditor()
	ctx := context.Background()

	entry, err := l.Append(ctx, editor, sampleEntry())
	require.NoError(t, err)

	rev.fail = errors.New("store unavailable")
	_, err = l.Revert(ctx, entry.ID, editor, nil)
	require.Error(t, err)

	got, err := l.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRolledBack)

	// Retry succeeds once the write path recovers.
	rev.fail = nil
	_, err = l.Revert(ctx, entry.ID, editor, nil)
	require.NoError(t, err)
}

func TestRevertWithoutReverterFails(t *testing.T) {
	st := store.NewMemoryStore()
	l := New(st, testLogger())
	editor := testEditor()
	ctx := context.Background()

	entry, err := l.Append(ctx, editor, sampleEntry())
	require.NoError(t, err)

	_, err = l.Revert(ctx, entry.ID, editor, nil)
	assert.ErrorIs(t, err, ErrNoReverter)
}
