// Package segments implements the transcript segment editing engine. All
// operations are pure functions over a segment slice: they return a new
// slice and never mutate their input.
package segments

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"podscribe/transcript-service/models"
)

var (
	// ErrInvalidSplitPoint is returned when a split cursor does not fall
	// strictly between word boundaries, or the segment lacks word-level
	// alignment.
	ErrInvalidSplitPoint = errors.New("invalid split point")
	// ErrNoPreviousSegment is returned when merging the first segment.
	ErrNoPreviousSegment = errors.New("no previous segment to merge into")
	// ErrSegmentNotFound is returned when the target segment id is absent.
	ErrSegmentNotFound = errors.New("segment not found")
)

func indexOf(segs []models.Segment, segmentID string) int {
	for i, s := range segs {
		if s.ID == segmentID {
			return i
		}
	}
	return -1
}

func cloneSegments(segs []models.Segment) []models.Segment {
	out := make([]models.Segment, len(segs))
	copy(out, segs)
	return out
}

// Split divides the target segment into two at the word boundary nearest the
// cursor. The cursor is a character offset into the segment's space-joined
// word text. The first segment keeps the original id and start; the second
// gets a freshly minted id. Both inherit the original speaker.
func Split(segs []models.Segment, segmentID string, cursor int) ([]models.Segment, error) {
	idx := indexOf(segs, segmentID)
	if idx < 0 {
		return nil, fmt.Errorf("split %s: %w", segmentID, ErrSegmentNotFound)
	}

	target := segs[idx]
	if len(target.Words) < 2 {
		return nil, fmt.Errorf("split %s: segment has no splittable word alignment: %w", segmentID, ErrInvalidSplitPoint)
	}

	totalLen := len(target.JoinWords())
	if cursor <= 0 || cursor >= totalLen {
		return nil, fmt.Errorf("split %s: cursor %d outside (0, %d): %w", segmentID, cursor, totalLen, ErrInvalidSplitPoint)
	}

	// Word boundary i sits after words[0:i] in the space-joined text.
	// Pick the interior boundary nearest the cursor; ties go to the
	// earlier boundary so the first group stays minimal.
	bestIdx, bestDist := -1, totalLen+1
	offset := 0
	for i := 1; i < len(target.Words); i++ {
		offset += len(target.Words[i-1].Text) + 1
		dist := cursor - offset
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			bestIdx, bestDist = i, dist
		}
	}
	if bestIdx <= 0 || bestIdx >= len(target.Words) {
		return nil, fmt.Errorf("split %s: no interior word boundary: %w", segmentID, ErrInvalidSplitPoint)
	}

	firstWords := make([]models.Word, bestIdx)
	copy(firstWords, target.Words[:bestIdx])
	secondWords := make([]models.Word, len(target.Words)-bestIdx)
	copy(secondWords, target.Words[bestIdx:])

	first := models.Segment{
		ID:      target.ID,
		Start:   target.Start,
		End:     firstWords[len(firstWords)-1].End,
		Words:   firstWords,
		Speaker: target.Speaker,
	}
	first.Text = first.JoinWords()

	second := models.Segment{
		ID:      uuid.NewString(),
		Start:   secondWords[0].Start,
		End:     target.End,
		Words:   secondWords,
		Speaker: target.Speaker,
	}
	second.Text = second.JoinWords()

	out := make([]models.Segment, 0, len(segs)+1)
	out = append(out, segs[:idx]...)
	out = append(out, first, second)
	out = append(out, segs[idx+1:]...)
	return out, nil
}

// Merge folds the target segment into the segment immediately before it in
// list order. The merged segment keeps the previous segment's id, start and
// speaker and extends to the target's end.
func Merge(segs []models.Segment, segmentID string) ([]models.Segment, error) {
	idx := indexOf(segs, segmentID)
	if idx < 0 {
		return nil, fmt.Errorf("merge %s: %w", segmentID, ErrSegmentNotFound)
	}
	if idx == 0 {
		return nil, fmt.Errorf("merge %s: %w", segmentID, ErrNoPreviousSegment)
	}

	prev, target := segs[idx-1], segs[idx]

	words := make([]models.Word, 0, len(prev.Words)+len(target.Words))
	words = append(words, prev.Words...)
	words = append(words, target.Words...)

	merged := models.Segment{
		ID:      prev.ID,
		Start:   prev.Start,
		End:     target.End,
		Text:    strings.TrimSpace(prev.Text) + " " + strings.TrimSpace(target.Text),
		Words:   words,
		Speaker: prev.Speaker,
	}

	out := make([]models.Segment, 0, len(segs)-1)
	out = append(out, segs[:idx-1]...)
	out = append(out, merged)
	out = append(out, segs[idx+1:]...)
	return out, nil
}

// Delete removes the target segment. Deleting an unknown id is a no-op and
// returns the input list unchanged.
func Delete(segs []models.Segment, segmentID string) ([]models.Segment, bool) {
	idx := indexOf(segs, segmentID)
	if idx < 0 {
		return segs, false
	}
	out := make([]models.Segment, 0, len(segs)-1)
	out = append(out, segs[:idx]...)
	out = append(out, segs[idx+1:]...)
	return out, true
}

// UpdateText replaces the target segment's display text. Word alignment and
// timing are left untouched.
func UpdateText(segs []models.Segment, segmentID, newText string) ([]models.Segment, error) {
	idx := indexOf(segs, segmentID)
	if idx < 0 {
		return nil, fmt.Errorf("update text %s: %w", segmentID, ErrSegmentNotFound)
	}
	out := cloneSegments(segs)
	out[idx].Text = newText
	return out, nil
}

// ReassignSpeaker sets the target segment's speaker. When global is true,
// every segment sharing the target's old speaker value is updated instead.
// The returned count is the number of segments whose speaker actually
// changed; zero means the operation was a no-op and should not be logged.
func ReassignSpeaker(segs []models.Segment, segmentID, newSpeaker string, global bool) ([]models.Segment, int, error) {
	idx := indexOf(segs, segmentID)
	if idx < 0 {
		return nil, 0, fmt.Errorf("reassign speaker %s: %w", segmentID, ErrSegmentNotFound)
	}

	oldSpeaker := segs[idx].Speaker
	out := cloneSegments(segs)
	changed := 0

	assign := func(i int) {
		if out[i].Speaker != nil && *out[i].Speaker == newSpeaker {
			return
		}
		v := newSpeaker
		out[i].Speaker = &v
		changed++
	}

	if global {
		for i := range out {
			if models.SpeakerEquals(out[i].Speaker, oldSpeaker) {
				assign(i)
			}
		}
	} else {
		assign(idx)
	}

	if changed == 0 {
		return segs, 0, nil
	}
	return out, changed, nil
}

// SortByStart returns the segments ordered by start time for display. The
// sort is stable so overlapping segments keep their relative order.
func SortByStart(segs []models.Segment) []models.Segment {
	out := cloneSegments(segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
