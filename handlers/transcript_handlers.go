package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"podscribe/transcript-service/internal/segments"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/models"
	"podscribe/transcript-service/utils"
)

// ApplyOperationPayload defines the request body for a segment operation.
// Type selects the operation; the remaining fields apply per type.
type ApplyOperationPayload struct {
	Type           string  `json:"type" validate:"required,oneof=split merge delete update_text reassign_speaker"`
	SegmentID      string  `json:"segment_id" validate:"required"`
	CursorPosition *int    `json:"cursor_position,omitempty"`
	Text           *string `json:"text,omitempty"`
	NewSpeaker     *string `json:"new_speaker,omitempty"`
	Global         bool    `json:"global,omitempty"`
	Confirmed      bool    `json:"confirmed,omitempty"`
	DontAskAgain   bool    `json:"dont_ask_again,omitempty"`
}

func operationFromPayload(p ApplyOperationPayload) (segments.Operation, error) {
	switch p.Type {
	case models.EditTypeSplit:
		if p.CursorPosition == nil {
			return nil, fmt.Errorf("split requires cursor_position")
		}
		return segments.SplitOp{SegmentID: p.SegmentID, CursorPosition: *p.CursorPosition}, nil
	case models.EditTypeMerge:
		return segments.MergeOp{SegmentID: p.SegmentID}, nil
	case models.EditTypeDelete:
		return segments.DeleteOp{SegmentID: p.SegmentID}, nil
	case models.EditTypeUpdateText:
		if p.Text == nil {
			return nil, fmt.Errorf("update_text requires text")
		}
		return segments.UpdateTextOp{SegmentID: p.SegmentID, Text: *p.Text}, nil
	case models.EditTypeReassignSpeaker:
		if p.NewSpeaker == nil {
			return nil, fmt.Errorf("reassign_speaker requires new_speaker")
		}
		return segments.ReassignSpeakerOp{SegmentID: p.SegmentID, NewSpeaker: *p.NewSpeaker, Global: p.Global}, nil
	default:
		return nil, fmt.Errorf("unknown operation type %q", p.Type)
	}
}

// ApplyOperation applies one segment operation to a transcript.
// POST /api/v1/transcripts/:slug/:lang/operations
func (h *ApplicationHandler) ApplyOperation(c *fiber.Ctx) error {
	episodeSlug := c.Params("slug")
	lang := c.Params("lang")

	editor, ok, resp := h.requireEditor(c)
	if !ok {
		return resp
	}

	var payload ApplyOperationPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse JSON: %v", err))
	}
	if err := h.Validate.Struct(payload); err != nil {
		errs := utils.FormatValidationErrors(err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(errs, ", "))
	}

	op, err := operationFromPayload(payload)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	if payload.DontAskAgain {
		h.Confirm.DisableConfirmation(op.Type())
	}
	if h.Confirm.NeedsConfirmation(op) && !payload.Confirmed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"status":  "error",
			"code":    "confirmation_required",
			"message": fmt.Sprintf("Operation %q is destructive. Repeat with confirmed=true, or set dont_ask_again.", op.Type()),
		})
	}

	result, err := h.Editing.ApplyOperation(c.Context(), editor, episodeSlug, lang, op)
	if err != nil {
		return h.respondOperationError(c, episodeSlug, lang, op.Type(), err)
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, result)
}

func (h *ApplicationHandler) respondOperationError(c *fiber.Ctx, episodeSlug, lang, opType string, err error) error {
	logEntry := h.Logger.WithFields(map[string]interface{}{
		"episode_slug": episodeSlug,
		"lang":         lang,
		"operation":    opType,
	})

	switch {
	case errors.Is(err, segments.ErrInvalidSplitPoint),
		errors.Is(err, segments.ErrNoPreviousSegment):
		return utils.RespondWithError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, segments.ErrSegmentNotFound),
		errors.Is(err, store.ErrNotFound):
		return utils.RespondWithError(c, fiber.StatusNotFound, err.Error())
	default:
		logEntry.WithError(err).Error("Transcript operation failed")
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Operation %s failed: %v", opType, err))
	}
}

// SaveTranscript stores a transcript document and its chunked form.
// PUT /api/v1/transcripts/:slug/:lang
func (h *ApplicationHandler) SaveTranscript(c *fiber.Ctx) error {
	episodeSlug := c.Params("slug")
	lang := c.Params("lang")

	editor, ok, resp := h.requireEditor(c)
	if !ok {
		return resp
	}

	var doc models.TranscriptDocument
	if err := c.BodyParser(&doc); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse JSON: %v", err))
	}
	if doc.Text == "" && len(doc.Utterances) > 0 {
		doc.Text = doc.JoinUtteranceTexts()
	}

	if err := h.Editing.SaveDocument(c.Context(), editor, episodeSlug, lang, &doc); err != nil {
		h.Logger.WithError(err).Error("Transcript save failed")
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not save transcript: %v", err))
	}

	meta, err := h.Chunks.SaveChunked(c.Context(), episodeSlug, lang, doc)
	if err != nil {
		h.Logger.WithError(err).Error("Transcript chunking failed")
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not chunk transcript: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"episode_slug": episodeSlug,
		"lang":         lang,
		"chunks":       meta,
	})
}
