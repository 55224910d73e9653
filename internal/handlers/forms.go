// forms.go
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
	"context"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
)

// FormsHandler accepts public form submissions
type FormsHandler struct {
	Dispatcher *services.Dispatcher
	Consents   *services.ConsentService
}

// Submit handles POST /api/forms/:collection
// @Summary Submit a form
// @Description Validate and store a visitor form submission. The consent form is only accepted as multipart/form-data with panCard, aadhaarCard and signature image or PDF files.
// @Tags Forms
// @Accept json,mpfd
// @Produce json
// @Param collection path string true "Collection path"
// @Param body body map[string]interface{} false "Form fields"
// @Success 201 {object} utils.ActionResponseStruct
// @Failure 404 {object} utils.ActionResponseStruct
// @Failure 415 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ActionResponseStruct
// @Failure 502 {object} utils.ActionResponseStruct
// @Router /forms/{collection} [post]
func (h *FormsHandler) Submit(c *fiber.Ctx) error {
	def, ok := collectionParam(c)
	if !ok || !def.Public() {
		return utils.NotFoundResponse(c, "Form not found")
	}

	// Writes outlive a client that disconnects mid request
	ctx := context.WithoutCancel(c.UserContext())

	// Forms with attachments are only accepted as multipart uploads.
	if len(def.Files) > 0 {
		if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
			return utils.ErrorResponse(c, "Multipart form data required", fiber.StatusUnsupportedMediaType, "submit")
		}
		return h.submitConsent(c, ctx, def)
	}

	fields := map[string]interface{}{}
	if err := c.BodyParser(&fields); err != nil {
		return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "submit")
	}

	out := h.Dispatcher.Submit(ctx, def.Path, fields)
	return respondOutcome(c, out, fiber.StatusCreated, "submit")
}

func (h *FormsHandler) submitConsent(c *fiber.Ctx, ctx context.Context, def forms.Definition) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, "Invalid multipart form", fiber.StatusBadRequest, "submit")
	}

	fields := map[string]interface{}{}
	for name, values := range form.Value {
		if len(values) > 0 {
			fields[name] = formValue(values[0])
		}
	}

	files := map[string]services.Upload{}
	for _, f := range def.Files {
		headers := form.File[f.Name]
		if len(headers) == 0 {
			continue
		}
		up, err := readUpload(headers[0])
		if err != nil {
			return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "submit")
		}
		files[f.Name] = up
	}

	out := h.Consents.Submit(ctx, fields, files)
	return respondOutcome(c, out, fiber.StatusCreated, "submit")
}

// readUpload reads one multipart file into memory
func readUpload(fh *multipart.FileHeader) (services.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, err
	}
	return services.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}
