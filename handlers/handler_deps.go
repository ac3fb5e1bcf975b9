package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"podscribe/transcript-service/internal/chunkstore"
	"podscribe/transcript-service/internal/editing"
	"podscribe/transcript-service/internal/editoridentity"
	"podscribe/transcript-service/internal/history"
	"podscribe/transcript-service/models"
	"podscribe/transcript-service/utils"
)

// editorEmailHeader carries the acting editor's identity on every mutating
// request. The identity itself lives client-side; the server resolves it
// against the editors table per request.
const editorEmailHeader = "X-Editor-Email"

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Logger   *logrus.Logger
	Editors  *editoridentity.Service
	Editing  *editing.Service
	Chunks   *chunkstore.Service
	History  *history.Log
	Confirm  *editing.ConfirmPrefs
	Validate *validator.Validate
}

// NewApplicationHandler creates an ApplicationHandler with the given
// dependencies.
func NewApplicationHandler(logger *logrus.Logger, editors *editoridentity.Service, editingSvc *editing.Service, chunks *chunkstore.Service, hist *history.Log) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:   logger,
		Editors:  editors,
		Editing:  editingSvc,
		Chunks:   chunks,
		History:  hist,
		Confirm:  editing.NewConfirmPrefs(),
		Validate: validator.New(),
	}
}

// actingEditor resolves the per-request editor identity. A missing header or
// unknown editor yields (nil, nil); callers respond with the auth-required
// signal so the UI can prompt for login and retry.
func (h *ApplicationHandler) actingEditor(c *fiber.Ctx) (*models.Editor, error) {
	email := c.Get(editorEmailHeader)
	if email == "" {
		return nil, nil
	}
	editor, err := h.Editors.Resolve(c.Context(), email)
	if err != nil {
		if errors.Is(err, editoridentity.ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	return editor, nil
}

// requireEditor resolves the acting editor or writes the auth-required
// response. The returned bool reports whether the handler should continue.
func (h *ApplicationHandler) requireEditor(c *fiber.Ctx) (*models.Editor, bool, error) {
	editor, err := h.actingEditor(c)
	if err != nil {
		return nil, false, utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not resolve editor identity.")
	}
	if editor == nil {
		return nil, false, utils.RespondWithAuthRequired(c)
	}
	return editor, true, nil
}
