package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"foodgram-backend/domain"
)

// statusForError maps domain errors onto HTTP statuses: ownership failures
// are 403, missing resources 404, everything else a validation or conflict
// problem the client can fix, so 400.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrRecipeNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrIngredientNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrShortLinkNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusBadRequest
	}
}
