package server

import (
	"github.com/gofiber/fiber/v2"

	"quill/internal/models"
	"quill/internal/service"
)

// EditNote handles POST /api/notes/:id/edit.
func (s *Server) EditNote(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Error: "Authorization required",
		})
	}

	actor, err := s.userRepo.GetByID(c.UserContext(), userID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	var input service.EditNoteInput
	if err := c.BodyParser(&input); err != nil {
		return models.RespondWithError(c, models.NewValidationError("invalid request body"))
	}

	note, err := s.noteEditService.Edit(c.UserContext(), actor, c.Params("id"), &input)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(note)
}
