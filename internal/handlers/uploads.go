package handlers

import (
	"errors"

	"unity-upload-backend/internal/logger"
	"unity-upload-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

func uploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidFilename):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrQuotaExceeded):
		return fail(c, fiber.StatusRequestEntityTooLarge, "Upload quota exceeded")
	case errors.Is(err, services.ErrUploadNotFound):
		return fail(c, fiber.StatusNotFound, "File not found")
	default:
		logger.Error("[uploads] %v", err)
		return fail(c, fiber.StatusInternalServerError, "Upload storage error")
	}
}

// UploadMap accepts the multipart "file" field with the uploader in "name".
func (h *Handlers) UploadMap(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Upload could not be read")
	}
	defer f.Close()

	info, err := h.Uploads.Save(fh.Filename, c.FormValue("name"), f)
	if err != nil {
		return uploadError(c, err)
	}

	logger.Info("[uploads] %s uploaded %s (%d KB)", info.Uploader, info.Filename, info.SizeKB)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": info})
}

func (h *Handlers) ListUploads(c *fiber.Ctx) error {
	files, err := h.Uploads.List()
	if err != nil {
		return uploadError(c, err)
	}
	usage, err := h.Uploads.Usage()
	if err != nil {
		return uploadError(c, err)
	}
	if files == nil {
		files = []services.UploadInfo{}
	}
	return ok(c, fiber.Map{"files": files, "usage": usage})
}

func (h *Handlers) DeleteUpload(c *fiber.Ctx) error {
	if err := h.Uploads.Delete(c.Params("filename")); err != nil {
		return uploadError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "File deleted"})
}

func (h *Handlers) DeleteUploads(c *fiber.Ctx) error {
	var req struct {
		Filenames []string `json:"filenames" form:"filenames"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.Filenames) == 0 {
		return fail(c, fiber.StatusBadRequest, "filenames is required")
	}

	deleted, err := h.Uploads.DeleteMany(req.Filenames)
	resp := fiber.Map{"success": err == nil, "data": fiber.Map{"deleted": deleted}}
	if err != nil {
		resp["error"] = err.Error()
	}
	return c.JSON(resp)
}
