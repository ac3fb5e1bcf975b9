package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"podscribe/transcript-service/internal/editoridentity"
	"podscribe/transcript-service/utils"
)

// LoginPayload defines the expected request body for editor login.
type LoginPayload struct {
	Email string `json:"email" validate:"required"`
	Name  string `json:"name" validate:"required"`
}

// Login resolves or creates the editor record for the given email and name.
// POST /api/v1/login
func (h *ApplicationHandler) Login(c *fiber.Ctx) error {
	var payload LoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse JSON: %v", err))
	}

	if err := h.Validate.Struct(payload); err != nil {
		errs := utils.FormatValidationErrors(err)
		return utils.RespondWithError(c, fiber.StatusBadRequest, strings.Join(errs, ", "))
	}

	editor, err := h.Editors.Login(c.Context(), payload.Email, payload.Name)
	if err != nil {
		if errors.Is(err, editoridentity.ErrInvalidFormat) {
			return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
		}
		h.Logger.WithError(err).Error("Editor login failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not complete login.")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"success": true,
		"editor":  editor,
	})
}
