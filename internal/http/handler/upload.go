package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"libportal/internal/service"
)

type uploadResponse struct {
	Success bool `json:"success"`
	*service.UploadResult
	Error *uploadError `json:"error,omitempty"`
}

type uploadError struct {
	Message string `json:"message"`
}

func uploadFailed(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(uploadResponse{Error: &uploadError{Message: message}})
}

// UploadImage stores the multipart "file" field in the image bucket.
//
// @Summary  Upload an image
// @Tags     upload
// @Security BearerAuth
// @Accept   multipart/form-data
// @Param    file formData file true "Image"
// @Success  200 {object} uploadResponse
// @Failure  400 {object} uploadResponse
// @Failure  413 {object} uploadResponse
// @Failure  415 {object} uploadResponse
// @Router   /api/upload [post]
func UploadImage(h *Handler, svc service.UploadService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return uploadFailed(c, fiber.StatusBadRequest, "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return uploadFailed(c, fiber.StatusBadRequest, "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.UploadImage(c.UserContext(), f, fh.Filename, contentTypeOrDefault(fh.Header.Get("Content-Type")), fh.Size)
		switch {
		case err == nil:
			return c.JSON(uploadResponse{Success: true, UploadResult: res})
		case errors.Is(err, service.ErrUnsupportedMedia):
			return uploadFailed(c, fiber.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, service.ErrTooLarge):
			return uploadFailed(c, fiber.StatusRequestEntityTooLarge, err.Error())
		}
		h.logger.Error().Err(err).Str("request_id", requestIDFromCtx(c)).Msg("upload failed")
		return uploadFailed(c, fiber.StatusBadGateway, "upload failed")
	}
}
