package handlers

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/theme"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
)

// PublicHandler serves the read-only data the public site renders
type PublicHandler struct {
	Complaints *services.ComplaintService
	Reports    *services.ReportService
	Bucket     objects.Bucket
	Theme      *theme.Provider
}

// GetComplaints handles GET /api/complaints
// @Summary Get the complaint table
// @Description Rows of the published complaint data table in display order
// @Tags Public
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /complaints [get]
func (h *PublicHandler) GetComplaints(c *fiber.Ctx) error {
	rows, err := h.Complaints.Table(c.UserContext())
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), statusOf(err, fiber.StatusOK), "getComplaints")
	}
	return utils.SuccessResponse(c, fiber.Map{"ok": true, "rows": rows}, fiber.StatusOK)
}

// GetReports handles GET /api/reports/:day
// @Summary Get reports for a weekday
// @Description Reports uploaded for a weekday, newest first
// @Tags Public
// @Produce json
// @Param day path string true "Weekday (monday-friday)"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /reports/{day} [get]
func (h *PublicHandler) GetReports(c *fiber.Ctx) error {
	reports, err := h.Reports.List(c.UserContext(), c.Params("day"))
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), statusOf(err, fiber.StatusOK), "getReports")
	}
	return utils.SuccessResponse(c, fiber.Map{"ok": true, "reports": reports}, fiber.StatusOK)
}

// GetFile handles GET /api/files/*
// @Summary Download an uploaded file
// @Tags Public
// @Produce octet-stream
// @Param path path string true "Storage path"
// @Success 200 {file} file
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /files/{path} [get]
func (h *PublicHandler) GetFile(c *fiber.Ctx) error {
	storagePath, err := url.PathUnescape(c.Params("*"))
	if err != nil || storagePath == "" {
		return utils.NotFoundResponse(c, "File not found")
	}

	blob, err := h.Bucket.Open(c.UserContext(), storagePath)
	if err != nil {
		if errors.Is(err, types.ErrStorageObjectNotFound) {
			return utils.NotFoundResponse(c, fmt.Sprintf("File '%s' not found", storagePath))
		}
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadGateway, "getFile")
	}

	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentSecurityPolicy, "sandbox")
	if services.Inline(blob.ContentType) {
		c.Set(fiber.HeaderContentType, blob.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", blob.FileName))
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", blob.FileName))
	}
	return c.Status(fiber.StatusOK).Send(blob.Data)
}

// GetTheme handles GET /api/theme
// @Summary Get the current theme
// @Description Selected palette plus the gradient for the current time of day
// @Tags Public
// @Produce json
// @Success 200 {object} theme.Theme
// @Router /theme [get]
func (h *PublicHandler) GetTheme(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, h.Theme.Current(), fiber.StatusOK)
}
