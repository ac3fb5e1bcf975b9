package segments

import (
	"fmt"

	"podscribe/transcript-service/models"
)

// Operation is the closed set of segment edits. The marker method keeps the
// set sealed so Apply can match exhaustively.
type Operation interface {
	isOperation()
	// Type is the edit type recorded in the history log.
	Type() string
	// Destructive operations may be routed through a confirmation step.
	Destructive() bool
}

// SplitOp divides a segment in two at the word boundary nearest
// CursorPosition.
type SplitOp struct {
	SegmentID      string
	CursorPosition int
}

// MergeOp folds a segment into the one before it.
type MergeOp struct {
	SegmentID string
}

// DeleteOp removes a segment.
type DeleteOp struct {
	SegmentID string
}

// UpdateTextOp replaces a segment's display text.
type UpdateTextOp struct {
	SegmentID string
	Text      string
}

// ReassignSpeakerOp relabels the speaker of one segment, or of every segment
// sharing the target's current speaker when Global is set.
type ReassignSpeakerOp struct {
	SegmentID  string
	NewSpeaker string
	Global     bool
}

func (SplitOp) isOperation()           {}
func (MergeOp) isOperation()           {}
func (DeleteOp) isOperation()          {}
func (UpdateTextOp) isOperation()      {}
func (ReassignSpeakerOp) isOperation() {}

func (SplitOp) Type() string           { return models.EditTypeSplit }
func (MergeOp) Type() string           { return models.EditTypeMerge }
func (DeleteOp) Type() string          { return models.EditTypeDelete }
func (UpdateTextOp) Type() string      { return models.EditTypeUpdateText }
func (ReassignSpeakerOp) Type() string { return models.EditTypeReassignSpeaker }

func (SplitOp) Destructive() bool           { return true }
func (MergeOp) Destructive() bool           { return true }
func (DeleteOp) Destructive() bool          { return true }
func (UpdateTextOp) Destructive() bool      { return false }
func (ReassignSpeakerOp) Destructive() bool { return false }

// Outcome is the result of applying an Operation. Changed counts the
// segments the operation actually touched; zero marks a no-op that callers
// must not record in the history log.
type Outcome struct {
	Segments []models.Segment
	Changed  int
}

// Apply dispatches an Operation against the segment list.
func Apply(segs []models.Segment, op Operation) (Outcome, error) {
	switch o := op.(type) {
	case SplitOp:
		out, err := Split(segs, o.SegmentID, o.CursorPosition)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Segments: out, Changed: 2}, nil
	case MergeOp:
		out, err := Merge(segs, o.SegmentID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Segments: out, Changed: 2}, nil
	case DeleteOp:
		out, removed := Delete(segs, o.SegmentID)
		changed := 0
		if removed {
			changed = 1
		}
		return Outcome{Segments: out, Changed: changed}, nil
	case UpdateTextOp:
		out, err := UpdateText(segs, o.SegmentID, o.Text)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Segments: out, Changed: 1}, nil
	case ReassignSpeakerOp:
		out, changed, err := ReassignSpeaker(segs, o.SegmentID, o.NewSpeaker, o.Global)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Segments: out, Changed: changed}, nil
	default:
		return Outcome{}, fmt.Errorf("unknown operation %T", op)
	}
}
