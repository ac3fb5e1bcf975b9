package segments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podscribe/transcript-service/models"
)

func strPtr(s string) *string { return &s }

func helloWorldSegment() models.Segment {
	return models.Segment{
		ID:    "s1",
		Start: 0,
		End:   5,
		Text:  "hello world",
		Words: []models.Word{
			{Text: "hello", Start: 0, End: 2},
			{Text: "world", Start: 3, End: 5},
		},
		Speaker: strPtr("alice"),
	}
}

func TestSplitAtWordBoundary(t *testing.T) {
	segs := []models.Segment{helloWorldSegment()}

	out, err := Split(segs, "s1", 6)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first, second := out[0], out[1]

	assert.Equal(t, "s1", first.ID)
	assert.Equal(t, "hello", first.Text)
	assert.Equal(t, 0.0, first.Start)
	assert.Equal(t, 2.0, first.End)

	assert.NotEqual(t, "s1", second.ID)
	assert.NotEmpty(t, second.ID)
	assert.Equal(t, "world", second.Text)
	assert.Equal(t, 3.0, second.Start)
	assert.Equal(t, 5.0, second.End)

	// Both halves inherit the speaker.
	require.NotNil(t, first.Speaker)
	require.NotNil(t, second.Speaker)
	assert.Equal(t, "alice", *first.Speaker)
	assert.Equal(t, "alice", *second.Speaker)
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	segs := []models.Segment{helloWorldSegment()}

	_, err := Split(segs, "s1", 6)
	require.NoError(t, err)

	assert.Equal(t, "hello world", segs[0].Text)
	assert.Len(t, segs[0].Words, 2)
}

func TestSplitRejectsBadCursors(t *testing.T) {
	tests := []struct {
		name   string
		cursor int
	}{
		{"at start", 0},
		{"negative", -3},
		{"at end", 11},
		{"past end", 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split([]models.Segment{helloWorldSegment()}, "s1", tt.cursor)
			assert.ErrorIs(t, err, ErrInvalidSplitPoint)
		})
	}
}

func TestSplitRequiresWordAlignment(t *testing.T) {
	segs := []models.Segment{{ID: "s1", Start: 0, End: 5, Text: "hello world"}}
	_, err := Split(segs, "s1", 6)
	assert.ErrorIs(t, err, ErrInvalidSplitPoint)

	oneWord := []models.Segment{{
		ID: "s1", Start: 0, End: 5, Text: "hello",
		Words: []models.Word{{Text: "hello", Start: 0, End: 5}},
	}}
	_, err = Split(oneWord, "s1", 2)
	assert.ErrorIs(t, err, ErrInvalidSplitPoint)
}

func TestSplitUnknownSegment(t *testing.T) {
	_, err := Split([]models.Segment{helloWorldSegment()}, "nope", 6)
	assert.ErrorIs(t, err, ErrSegmentNotFound)
}

func TestSplitThenMergeRoundTrip(t *testing.T) {
	original := helloWorldSegment()

	split, err := Split([]models.Segment{original}, "s1", 6)
	require.NoError(t, err)
	require.Len(t, split, 2)

	merged, err := Merge(split, split[1].ID)
	require.NoError(t, err)
	require.Len(t, merged, 1)

	got := merged[0]
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Text, got.Text)
	assert.Equal(t, original.Start, got.Start)
	assert.Equal(t, original.End, got.End)
	assert.Equal(t, original.Words, got.Words)
}

func TestMergeFirstSegmentFails(t *testing.T) {
	segs := []models.Segment{helloWorldSegment()}
	_, err := Merge(segs, "s1")
	assert.ErrorIs(t, err, ErrNoPreviousSegment)
}

func TestMergeInheritsPreviousSpeaker(t *testing.T) {
	segs := []models.Segment{
		{ID: "a", Start: 0, End: 2, Text: "one", Speaker: strPtr("alice")},
		{ID: "b", Start: 3, End: 5, Text: "two", Speaker: strPtr("bob")},
	}

	out, err := Merge(segs, "b")
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "one two", out[0].Text)
	assert.Equal(t, 0.0, out[0].Start)
	assert.Equal(t, 5.0, out[0].End)
	require.NotNil(t, out[0].Speaker)
	assert.Equal(t, "alice", *out[0].Speaker)
}

func TestDeleteIsIdempotent(t *testing.T) {
	segs := []models.Segment{helloWorldSegment()}

	out, removed := Delete(segs, "s1")
	assert.True(t, removed)
	assert.Empty(t, out)

	out, removed = Delete(segs, "missing")
	assert.False(t, removed)
	assert.Equal(t, segs, out)
}

func TestUpdateTextLeavesTimingAlone(t *testing.T) {
	segs := []models.Segment{helloWorldSegment()}

	out, err := UpdateText(segs, "s1", "hello, world!")
	require.NoError(t, err)

	assert.Equal(t, "hello, world!", out[0].Text)
	assert.Equal(t, segs[0].Words, out[0].Words)
	assert.Equal(t, segs[0].Start, out[0].Start)
	assert.Equal(t, segs[0].End, out[0].End)
	// Input untouched.
	assert.Equal(t, "hello world", segs[0].Text)
}

func TestReassignSpeakerGlobal(t *testing.T) {
	segs := []models.Segment{
		{ID: "a", Start: 0, End: 1, Speaker: strPtr("spk_1")},
		{ID: "b", Start: 1, End: 2, Speaker: strPtr("spk_2")},
		{ID: "c", Start: 2, End: 3, Speaker: strPtr("spk_1")},
		{ID: "d", Start: 3, End: 4, Speaker: strPtr("spk_1")},
	}

	out, changed, err := ReassignSpeaker(segs, "a", "spk_9", true)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	for _, id := range []string{"a", "c", "d"} {
		idx := -1
		for i, s := range out {
			if s.ID == id {
				idx = i
			}
		}
		require.NotEqual(t, -1, idx)
		require.NotNil(t, out[idx].Speaker)
		assert.Equal(t, "spk_9", *out[idx].Speaker)
	}
	require.NotNil(t, out[1].Speaker)
	assert.Equal(t, "spk_2", *out[1].Speaker)
}

func TestReassignSpeakerNoOp(t *testing.T) {
	segs := []models.Segment{
		{ID: "a", Start: 0, End: 1, Speaker: strPtr("spk_1")},
	}

	out, changed, err := ReassignSpeaker(segs, "a", "spk_1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, segs, out)
}

func TestReassignSpeakerUnassignedNeverMatchesLiteralNull(t *testing.T) {
	segs := []models.Segment{
		{ID: "a", Start: 0, End: 1}, // unassigned
		{ID: "b", Start: 1, End: 2, Speaker: strPtr("null")},
		{ID: "c", Start: 2, End: 3}, // unassigned
	}

	out, changed, err := ReassignSpeaker(segs, "a", "spk_1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	require.NotNil(t, out[1].Speaker)
	assert.Equal(t, "null", *out[1].Speaker)
}

func TestSortByStartIsStable(t *testing.T) {
	segs := []models.Segment{
		{ID: "late", Start: 5},
		{ID: "early", Start: 1},
		{ID: "overlap-1", Start: 3},
		{ID: "overlap-2", Start: 3},
	}

	out := SortByStart(segs)
	assert.Equal(t, []string{"early", "overlap-1", "overlap-2", "late"},
		[]string{out[0].ID, out[1].ID, out[2].ID, out[3].ID})
}

func TestApplyDispatch(t *testing.T) {
	segs := []models.Segment{helloWorldSegment()}

	outcome, err := Apply(segs, SplitOp{SegmentID: "s1", CursorPosition: 6})
	require.NoError(t, err)
	assert.Len(t, outcome.Segments, 2)
	assert.Equal(t, 2, outcome.Changed)

	outcome, err = Apply(segs, DeleteOp{SegmentID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Changed)

	_, err = Apply(segs, MergeOp{SegmentID: "s1"})
	assert.ErrorIs(t, err, ErrNoPreviousSegment)
}
