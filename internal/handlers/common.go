// common.go
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
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
	"github.com/localnerve/jam-build-collectionsdb/internal/view"
)

// statusOf maps an action error to the HTTP status the client sees.
func statusOf(err error, success int) int {
	var (
		verr *types.ValidationError
		rerr *types.ReadError
		werr *types.WriteError
	)
	switch {
	case err == nil:
		return success
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, types.ErrConfirmationRequired):
		return fiber.StatusPreconditionRequired
	case errors.Is(err, types.ErrProtectedRecord):
		return fiber.StatusForbidden
	case errors.Is(err, types.ErrUnknownCollection):
		return fiber.StatusNotFound
	case errors.As(err, &rerr):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &werr):
		if werr.NotFound() {
			return fiber.StatusNotFound
		}
		return fiber.StatusBadGateway
	case types.IsNotFound(err):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

// respondOutcome sends the action envelope for out.
func respondOutcome(c *fiber.Ctx, out services.Outcome, success int, errorType string) error {
	extra := fiber.Map{}
	if out.ID != "" {
		extra["id"] = out.ID
	}
	var verr *types.ValidationError
	if errors.As(out.Err, &verr) {
		extra["errors"] = verr.Fields
	}
	if out.Fields != nil {
		extra["fields"] = out.Fields
	}
	return utils.ActionResponse(c, statusOf(out.Err, success), out.Notification, errorType, extra)
}

// collectionParam resolves the :collection route parameter.
func collectionParam(c *fiber.Ctx) (forms.Definition, bool) {
	return forms.Resolve(c.Params("collection"))
}

// queryFromRequest reads the view query parameters, defaulting to the
// collection's own order.
func queryFromRequest(c *fiber.Ctx, def forms.Definition) view.Query {
	q := view.Query{
		Filter:   c.Query("q"),
		Sort:     c.Query("sort", def.DefaultSort),
		Desc:     def.DefaultDesc,
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", view.DefaultPageSize),
	}
	switch strings.ToLower(c.Query("dir")) {
	case "asc":
		q.Desc = false
	case "desc":
		q.Desc = true
	}
	return q
}

// formValue converts a multipart text value, keeping booleans as booleans
func formValue(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}

// pathParam returns the unescaped route parameter name, so ids like
// "Grand Total" arrive as stored.
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
