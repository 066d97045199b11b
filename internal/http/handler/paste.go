package handler

import (
	"github.com/gofiber/fiber/v2"

	"libportal/internal/form"
	"libportal/internal/model"
	"libportal/internal/service"
)

type pastePreview struct {
	Fields []string       `json:"fields"`
	Values map[string]any `json:"values"`
}

// PastePreview parses pasted text the way the editor does and returns the
// fields it would fill. Nothing is written.
func PastePreview[T model.Entity](h *Handler, svc service.ContentService[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := form.New[T](svc, nil, h.logger)
		applied, err := f.Paste(string(c.Body()))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PASTE", err.Error())
		}
		return c.JSON(pastePreview{Fields: applied, Values: f.Values()})
	}
}
