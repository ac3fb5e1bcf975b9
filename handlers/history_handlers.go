package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"podscribe/transcript-service/internal/history"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/utils"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// GetHistory lists edit history entries, newest first.
// GET /api/v1/history
func (h *ApplicationHandler) GetHistory(c *fiber.Ctx) error {
	filter := store.HistoryFilter{
		EditType:          c.Query("edit_type"),
		TargetType:        c.Query("target_type"),
		TargetID:          c.Query("target_id"),
		EditorEmail:       c.Query("editor_email"),
		IncludeRolledBack: true,
	}
	if raw := c.Query("include_rolled_back"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "include_rolled_back must be a boolean")
		}
		filter.IncludeRolledBack = include
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.History.List(c.Context(), filter, limit, offset)
	if err != nil {
		h.Logger.WithError(err).Error("History listing failed")
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not list history: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}

// RevertPayload defines the optional request body for a revert.
type RevertPayload struct {
	Reason *string `json:"reason,omitempty"`
}

// RevertEdit rolls back a prior edit, restoring its before-content and
// appending a compensating history entry.
// POST /api/v1/history/:id/revert
func (h *ApplicationHandler) RevertEdit(c *fiber.Ctx) error {
	editID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "invalid history entry ID format")
	}

	editor, ok, resp := h.requireEditor(c)
	if !ok {
		return resp
	}

	var payload RevertPayload
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse JSON: %v", err))
		}
	}

	revertEntry, err := h.Editing.Revert(c.Context(), editor, editID, payload.Reason)
	if err != nil {
		switch {
		case errors.Is(err, history.ErrNotFound):
			return utils.RespondWithError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, history.ErrAlreadyRolledBack):
			return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
		default:
			h.Logger.WithError(err).WithField("entry_id", editID).Error("Revert failed")
			return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not revert edit: %v", err))
		}
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"success":          true,
		"restored_content": json.RawMessage(revertEntry.ContentAfter),
		"revert_entry":     revertEntry,
	})
}
