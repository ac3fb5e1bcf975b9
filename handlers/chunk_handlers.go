package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"podscribe/transcript-service/internal/chunker"
	"podscribe/transcript-service/utils"
)

// GetChunksInfo returns the chunk metadata for a transcript, or null when
// the transcript has never been chunked.
// GET /api/v1/transcripts/:slug/:lang/chunks
func (h *ApplicationHandler) GetChunksInfo(c *fiber.Ctx) error {
	episodeSlug := c.Params("slug")
	lang := c.Params("lang")

	meta, err := h.Chunks.ChunksInfo(c.Context(), episodeSlug, lang)
	if err != nil {
		h.Logger.WithError(err).Error("Chunk info lookup failed")
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not read chunk info: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, meta)
}

// ReconstructTranscript reassembles the full transcript from its chunks.
// GET /api/v1/transcripts/:slug/:lang/reconstruct
func (h *ApplicationHandler) ReconstructTranscript(c *fiber.Ctx) error {
	episodeSlug := c.Params("slug")
	lang := c.Params("lang")

	transcript, err := h.Chunks.Reconstruct(c.Context(), episodeSlug, lang)
	if err != nil {
		switch {
		case errors.Is(err, chunker.ErrIncompleteChunkSet),
			errors.Is(err, chunker.ErrCorruptChunk):
			// Consistency failure: retrying cannot change the outcome.
			return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
		default:
			h.Logger.WithError(err).Error("Transcript reconstruction failed")
			return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not reconstruct transcript: %v", err))
		}
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, transcript)
}

// ClearChunks deletes all chunks and metadata for a transcript. Idempotent.
// DELETE /api/v1/transcripts/:slug/:lang/chunks
func (h *ApplicationHandler) ClearChunks(c *fiber.Ctx) error {
	episodeSlug := c.Params("slug")
	lang := c.Params("lang")

	editor, ok, resp := h.requireEditor(c)
	if !ok {
		return resp
	}

	if err := h.Chunks.Clear(c.Context(), episodeSlug, lang); err != nil {
		h.Logger.WithError(err).WithField("editor_email", editor.Email).Error("Chunk clearing failed")
		return utils.RespondWithError(c, fiber.StatusBadGateway, fmt.Sprintf("Could not clear chunks: %v", err))
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"cleared": true})
}
