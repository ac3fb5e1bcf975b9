package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Edit types recorded in the history log. Revert entries use the
// "revert_" prefix in front of the original edit type.
const (
	EditTypeSplit           = "split"
	EditTypeMerge           = "merge"
	EditTypeDelete          = "delete"
	EditTypeUpdateText      = "update_text"
	EditTypeReassignSpeaker = "reassign_speaker"

	RevertEditTypePrefix = "revert_"
)

// EditHistoryEntry represents one row of the append-only edit history table.
// Entries are created once per mutation and only ever mutated to set the
// rollback fields.
type EditHistoryEntry struct {
	ID             uuid.UUID              `json:"id"`
	EditorID       uuid.UUID              `json:"editor_id"`
	EditorEmail    string                 `json:"editor_email"`
	EditorName     string                 `json:"editor_name"`
	EditType       string                 `json:"edit_type"`
	TargetType     string                 `json:"target_type"`
	TargetID       string                 `json:"target_id"`
	FilePath       *string                `json:"file_path,omitempty"` // Nullable TEXT
	ContentBefore  json.RawMessage        `json:"content_before,omitempty"`
	ContentAfter   json.RawMessage        `json:"content_after,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	IsRolledBack   bool                   `json:"is_rolled_back"`
	RolledBackBy   *string                `json:"rolled_back_by,omitempty"`
	RolledBackAt   *time.Time             `json:"rolled_back_at,omitempty"`
	RollbackReason *string                `json:"rollback_reason,omitempty"`
}
