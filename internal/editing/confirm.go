package editing

import (
	"sync"

	"podscribe/transcript-service/internal/segments"
)

// ConfirmPrefs holds the standing per-operation-type "don't ask again"
// preferences for destructive operations. Non-destructive operations never
// require confirmation.
type ConfirmPrefs struct {
	mu       sync.Mutex
	disabled map[string]bool
}

// NewConfirmPrefs creates preferences with confirmation enabled for every
// destructive operation type.
func NewConfirmPrefs() *ConfirmPrefs {
	return &ConfirmPrefs{disabled: make(map[string]bool)}
}

// NeedsConfirmation reports whether the operation should be routed through
// a user-confirmable step.
func (p *ConfirmPrefs) NeedsConfirmation(op segments.Operation) bool {
	if !op.Destructive() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.disabled[op.Type()]
}

// DisableConfirmation permanently disables the confirmation step for one
// operation type.
func (p *ConfirmPrefs) DisableConfirmation(opType string) {
	p.mu.Lock()
	p.disabled[opType] = true
	p.mu.Unlock()
}
