package editing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"podscribe/transcript-service/internal/segments"
	"podscribe/transcript-service/models"
)

// SessionState is the editing session lifecycle state.
type SessionState int

const (
	StateIdle SessionState = iota
	StateEditing
	StateSaving
	StateError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrSaveInFlight is returned when a save is requested while another save
// for the same session is still running.
var ErrSaveInFlight = errors.New("save already in flight")

// PlaybackSnapshot captures the external player's position and play state
// when a session enters Editing, so it can be restored on exit.
type PlaybackSnapshot struct {
	Position float64
	Playing  bool
}

// Session is one editor's editing session for a single transcript. It
// enforces Idle -> Editing -> Saving -> Idle, with Editing -> Error ->
// Editing on a failed save so the editor can retry. The playback snapshot
// taken at Begin is restored whenever the session returns to Idle.
type Session struct {
	mu        sync.Mutex
	state     SessionState
	segmentID string
	snapshot  PlaybackSnapshot
	lastErr   error
	restore   func(PlaybackSnapshot)
}

// NewSession creates an idle session. restore may be nil when no player is
// attached.
func NewSession(restore func(PlaybackSnapshot)) *Session {
	return &Session{state: StateIdle, restore: restore}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error that moved the session into StateError.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Begin enters Editing for the given segment, capturing the playback
// snapshot to restore on exit.
func (s *Session) Begin(segmentID string, snap PlaybackSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("cannot begin editing from state %s", s.state)
	}
	s.state = StateEditing
	s.segmentID = segmentID
	s.snapshot = snap
	s.lastErr = nil
	return nil
}

// Cancel abandons the session before a save is issued and restores the
// playback snapshot. Allowed from Editing and Error.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state != StateEditing && s.state != StateError {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot cancel from state %s", state)
	}
	s.toIdleLocked()
	restore, snap := s.restore, s.snapshot
	s.mu.Unlock()

	if restore != nil {
		restore(snap)
	}
	return nil
}

// Retry moves a failed session back into Editing.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateError {
		return fmt.Errorf("cannot retry from state %s", s.state)
	}
	s.state = StateEditing
	return nil
}

func (s *Session) toIdleLocked() {
	s.state = StateIdle
	s.segmentID = ""
	s.lastErr = nil
}

// Save runs the operation through the editing service. Saving is the only
// state allowed to touch the store and the history log; a new save cannot
// start while one is in flight. On success the session returns to Idle and
// the playback snapshot is restored; on failure it moves to Error with the
// error retained for retry.
func (s *Session) Save(ctx context.Context, svc *Service, editor *models.Editor, episodeSlug, lang string, op segments.Operation) (*ApplyResult, error) {
	s.mu.Lock()
	switch s.state {
	case StateSaving:
		s.mu.Unlock()
		return nil, ErrSaveInFlight
	case StateEditing:
		// proceed
	default:
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("cannot save from state %s", state)
	}
	s.state = StateSaving
	s.mu.Unlock()

	result, err := svc.ApplyOperation(ctx, editor, episodeSlug, lang, op)

	s.mu.Lock()
	if err != nil {
		s.state = StateError
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}
	restore, snap := s.restore, s.snapshot
	s.toIdleLocked()
	s.mu.Unlock()

	if restore != nil {
		restore(snap)
	}
	return result, nil
}
