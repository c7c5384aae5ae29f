package handlers

import (
	"errors"
	"strings"

	"unity-upload-backend/internal/models"
	"unity-upload-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

var reportFields = map[string]bool{
	"reporterName": true, "reporterId": true, "targetName": true, "targetId": true, "reason": true,
}

// CreateReport takes a form or JSON body from the game client. Fields other
// than the known ones are kept as metadata.
func (h *Handlers) CreateReport(c *fiber.Ctx) error {
	var req struct {
		ReporterName string            `json:"reporterName" form:"reporterName"`
		ReporterID   string            `json:"reporterId" form:"reporterId"`
		TargetName   string            `json:"targetName" form:"targetName"`
		TargetID     string            `json:"targetId" form:"targetId"`
		Reason       string            `json:"reason" form:"reason"`
		Metadata     map[string]string `json:"metadata" form:"-"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	extra := req.Metadata
	if form, err := c.MultipartForm(); err == nil {
		extra = collectExtra(extra, form.Value)
	} else if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationForm) {
		values := map[string][]string{}
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			values[string(k)] = append(values[string(k)], string(v))
		})
		extra = collectExtra(extra, values)
	}

	report := &models.Report{
		ReporterName: req.ReporterName,
		ReporterID:   req.ReporterID,
		TargetName:   req.TargetName,
		TargetID:     req.TargetID,
		Reason:       req.Reason,
	}
	if err := h.Reports.Create(report, extra); err != nil {
		if errors.Is(err, services.ErrInvalidArgument) {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
		return fail(c, fiber.StatusInternalServerError, "Report could not be saved")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": report})
}

func collectExtra(extra map[string]string, values map[string][]string) map[string]string {
	for k, v := range values {
		if reportFields[k] || len(v) == 0 {
			continue
		}
		if extra == nil {
			extra = map[string]string{}
		}
		extra[k] = v[0]
	}
	return extra
}

func (h *Handlers) ListReports(c *fiber.Ctx) error {
	page, err := h.Reports.List(c.QueryInt("page", 1), c.QueryInt("per_page", 20), c.Query("search"))
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	return ok(c, page)
}
