// admin.go
//
// Realtime collection service for form capture, admin tables and file uploads
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-collectionsdb.
// jam-build-collectionsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-collectionsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-collectionsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/theme"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
	"github.com/localnerve/jam-build-collectionsdb/internal/view"
)

// AdminHandler serves the admin tables and their actions
type AdminHandler struct {
	Store      *store.Store
	Dispatcher *services.Dispatcher
	Complaints *services.ComplaintService
	Reports    *services.ReportService
	Theme      *theme.Provider
}

// adminRow is a record plus the actions the admin UI may offer for it
type adminRow struct {
	Record     store.Record        `json:"record"`
	Affordance services.Affordance `json:"affordance"`
}

// confirmed reads the confirm query flag of a destructive request
func confirmed(c *fiber.Ctx) services.Confirmation {
	return services.Confirmation(c.QueryBool("confirm", false))
}

// List handles GET /api/admin/:collection
// @Summary List a collection
// @Description Filtered, sorted and paginated view of one collection
// @Tags Admin
// @Produce json
// @Param collection path string true "Collection path"
// @Param q query string false "Filter text"
// @Param sort query string false "Sort field"
// @Param dir query string false "asc or desc"
// @Param page query int false "Page number"
// @Param pageSize query int false "Rows per page"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /admin/{collection} [get]
func (h *AdminHandler) List(c *fiber.Ctx) error {
	def, ok := collectionParam(c)
	if !ok {
		return utils.NotFoundResponse(c, fmt.Sprintf("Collection '%s' not found", c.Params("collection")))
	}

	snap, err := h.Store.Snapshot(c.UserContext(), def.Path)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), statusOf(err, fiber.StatusOK), "adminList")
	}

	q := queryFromRequest(c, def)
	page := view.Apply(snap.Records, q)
	rows := make([]adminRow, 0, len(page.Records))
	for _, r := range page.Records {
		rows = append(rows, adminRow{Record: r, Affordance: services.Affordances(def.Path, r.ID)})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":         true,
		"collection": def.Path,
		"title":      def.Title,
		"version":    snap.Version,
		"columns":    def.Columns(),
		"rows":       rows,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
		"matched":    page.Matched,
		"total":      page.Total,
		"filter":     q.Filter,
		"sort":       q.Sort,
		"desc":       q.Desc,
	})
}

// Save handles PATCH /api/admin/:collection/:id
// @Summary Save a record
// @Description Merge edited fields into a record. id and timestamp are never changed.
// @Tags Admin
// @Accept json
// @Produce json
// @Param collection path string true "Collection path"
// @Param id path string true "Record id"
// @Param body body map[string]interface{} true "Edited fields"
// @Success 200 {object} utils.ActionResponseStruct
// @Failure 404 {object} utils.ActionResponseStruct
// @Failure 422 {object} utils.ActionResponseStruct
// @Failure 502 {object} utils.ActionResponseStruct
// @Router /admin/{collection}/{id} [patch]
func (h *AdminHandler) Save(c *fiber.Ctx) error {
	def, ok := collectionParam(c)
	if !ok {
		return utils.NotFoundResponse(c, fmt.Sprintf("Collection '%s' not found", c.Params("collection")))
	}

	fields := map[string]interface{}{}
	if err := c.BodyParser(&fields); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "save")
	}

	out := h.Dispatcher.Save(context.WithoutCancel(c.UserContext()), def.Path, pathParam(c, "id"), fields)
	return respondOutcome(c, out, fiber.StatusOK, "save")
}

// Delete handles DELETE /api/admin/:collection/:id
// @Summary Delete a record
// @Description Delete a record and its files. Requires confirm=true.
// @Tags Admin
// @Produce json
// @Param collection path string true "Collection path"
// @Param id path string true "Record id"
// @Param confirm query bool true "Confirm the deletion"
// @Success 200 {object} utils.ActionResponseStruct
// @Failure 403 {object} utils.ActionResponseStruct
// @Failure 428 {object} utils.ActionResponseStruct
// @Failure 502 {object} utils.ActionResponseStruct
// @Router /admin/{collection}/{id} [delete]
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	def, ok := collectionParam(c)
	if !ok {
		return utils.NotFoundResponse(c, fmt.Sprintf("Collection '%s' not found", c.Params("collection")))
	}

	out := h.Dispatcher.Delete(context.WithoutCancel(c.UserContext()), def.Path, pathParam(c, "id"), confirmed(c))
	return respondOutcome(c, out, fiber.StatusOK, "delete")
}

// Export handles GET /api/admin/:collection/export
// @Summary Export a collection
// @Description Download the filtered and sorted collection as csv or xlsx. scope=page exports the current page only.
// @Tags Admin
// @Produce octet-stream
// @Param collection path string true "Collection path"
// @Param format query string false "csv or xlsx"
// @Param scope query string false "all or page"
// @Success 200 {file} file
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 503 {object} utils.ErrorResponseStruct
// @Router /admin/{collection}/export [get]
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	def, ok := collectionParam(c)
	if !ok {
		return utils.NotFoundResponse(c, fmt.Sprintf("Collection '%s' not found", c.Params("collection")))
	}

	format, err := services.ParseFormat(c.Query("format", string(services.FormatCSV)))
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "export")
	}

	snap, err := h.Store.Snapshot(c.UserContext(), def.Path)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), statusOf(err, fiber.StatusOK), "export")
	}

	q := queryFromRequest(c, def)
	var records []store.Record
	switch c.Query("scope", "all") {
	case "page":
		records = view.Apply(snap.Records, q).Records
	case "all":
		records = view.Filter(snap.Records, q.Filter)
		if q.Sort != "" {
			view.Sort(records, q.Sort, q.Desc)
		}
	default:
		return utils.ErrorResponse(c, "scope must be all or page", fiber.StatusBadRequest, "export")
	}

	var buf bytes.Buffer
	if err := services.Export(&buf, records, def.Columns(), format, def.Title); err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "export")
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", services.ExportFileName(def.Path, format, time.Now())))
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// ReplaceComplaints handles PUT /api/admin/complaints
// @Summary Replace the complaint table
// @Description Rows in display order. The Grand Total row is required.
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body object true "rows"
// @Success 200 {object} utils.ActionResponseStruct
// @Failure 422 {object} utils.ActionResponseStruct
// @Router /admin/complaints [put]
func (h *AdminHandler) ReplaceComplaints(c *fiber.Ctx) error {
	var body struct {
		Rows types.FlexList[map[string]interface{}] `json:"rows"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "replaceComplaints")
	}

	out := h.Complaints.Replace(context.WithoutCancel(c.UserContext()), body.Rows.Slice())
	return respondOutcome(c, out, fiber.StatusOK, "replaceComplaints")
}

// EditComplaint handles PATCH /api/admin/complaints/:srNo
// @Summary Edit one complaint table row
// @Tags Admin
// @Accept json
// @Produce json
// @Param srNo path string true "Row srNo"
// @Param body body map[string]interface{} true "Edited fields"
// @Success 200 {object} utils.ActionResponseStruct
// @Failure 422 {object} utils.ActionResponseStruct
// @Router /admin/complaints/{srNo} [patch]
func (h *AdminHandler) EditComplaint(c *fiber.Ctx) error {
	fields := map[string]interface{}{}
	if err := c.BodyParser(&fields); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "editComplaint")
	}

	out := h.Complaints.EditRow(context.WithoutCancel(c.UserContext()), pathParam(c, "srNo"), fields)
	return respondOutcome(c, out, fiber.StatusOK, "editComplaint")
}

// UploadReport handles POST /api/admin/reports/:day
// @Summary Upload a report
// @Tags Admin
// @Accept mpfd
// @Produce json
// @Param day path string true "Weekday"
// @Param title formData string false "Title"
// @Param file formData file true "Report file"
// @Success 201 {object} utils.ActionResponseStruct
// @Failure 422 {object} utils.ActionResponseStruct
// @Router /admin/reports/{day} [post]
func (h *AdminHandler) UploadReport(c *fiber.Ctx) error {
	var file services.Upload
	if fh, err := c.FormFile("file"); err == nil {
		if file, err = readUpload(fh); err != nil {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "uploadReport")
		}
	}

	out := h.Reports.Upload(context.WithoutCancel(c.UserContext()), c.Params("day"), c.FormValue("title"), file)
	return respondOutcome(c, out, fiber.StatusCreated, "uploadReport")
}

// DeleteReport handles DELETE /api/admin/reports/:day/:id
// @Summary Delete a report
// @Tags Admin
// @Produce json
// @Param day path string true "Weekday"
// @Param id path string true "Report id"
// @Param confirm query bool true "Confirm the deletion"
// @Success 200 {object} utils.ActionResponseStruct
// @Failure 428 {object} utils.ActionResponseStruct
// @Router /admin/reports/{day}/{id} [delete]
func (h *AdminHandler) DeleteReport(c *fiber.Ctx) error {
	out := h.Reports.Delete(context.WithoutCancel(c.UserContext()), c.Params("day"), pathParam(c, "id"), confirmed(c))
	return respondOutcome(c, out, fiber.StatusOK, "deleteReport")
}

// SetTheme handles PUT /api/admin/theme
// @Summary Select the site palette
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body object true "name"
// @Success 200 {object} theme.Theme
// @Failure 422 {object} utils.ErrorResponseStruct
// @Router /admin/theme [put]
func (h *AdminHandler) SetTheme(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "setTheme")
	}

	t, err := h.Theme.Set(body.Name)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusUnprocessableEntity, "setTheme")
	}
	return utils.SuccessResponse(c, t, fiber.StatusOK)
}
