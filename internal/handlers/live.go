// live.go
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
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/mirror"
	"github.com/localnerve/jam-build-collectionsdb/internal/services"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/theme"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/localnerve/jam-build-collectionsdb/internal/utils"
	"github.com/localnerve/jam-build-collectionsdb/internal/view"
)

// LiveHandler pushes admin view pages over a websocket as the collection changes
type LiveHandler struct {
	Store *store.Store
	Theme *theme.Provider
}

// liveRequest is a view change sent by the client. Absent members keep their value.
type liveRequest struct {
	Filter   *string          `json:"filter"`
	Sort     *string          `json:"sort"`
	Dir      string           `json:"dir"`
	Page     types.FlexUint64 `json:"page"`
	PageSize types.FlexUint64 `json:"pageSize"`
}

// liveFrame is one server push
type liveFrame struct {
	Type       string         `json:"type"` // page, error or theme
	Collection string         `json:"collection,omitempty"`
	Version    uint64         `json:"version,omitempty"`
	Columns    []forms.Column `json:"columns,omitempty"`
	Rows       []adminRow     `json:"rows,omitempty"`
	Page       int            `json:"page,omitempty"`
	PageSize   int            `json:"pageSize,omitempty"`
	TotalPages int            `json:"totalPages,omitempty"`
	Matched    int            `json:"matched"`
	Total      int            `json:"total"`
	Message    string         `json:"message,omitempty"`
	Theme      *theme.Theme   `json:"theme,omitempty"`
}

// Upgrade handles GET /api/admin/live/:collection before the websocket handshake
// @Summary Live admin view
// @Description Websocket. The server sends page frames as the collection changes; the client sends {filter, sort, dir, page, pageSize}.
// @Tags Admin
// @Param collection path string true "Collection path"
// @Success 101
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 426 {object} utils.ErrorResponseStruct
// @Router /admin/live/{collection} [get]
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return utils.ErrorResponse(c, "Websocket upgrade required", fiber.StatusUpgradeRequired, "live")
	}
	def, ok := collectionParam(c)
	if !ok {
		return utils.NotFoundResponse(c, "Collection not found")
	}
	c.Locals("collection", def.Path)
	return c.Next()
}

// Stream returns the websocket handler mounted after Upgrade
func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *LiveHandler) serve(conn *websocket.Conn) {
	path, _ := conn.Locals("collection").(string)
	def, _ := forms.Lookup(path)
	log := logger.WithCollection(path)

	state := view.NewState(def.DefaultSort, def.DefaultDesc)

	changed := make(chan struct{}, 1)
	m := mirror.Watch(h.Store, path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer m.Close()

	themes, cancelTheme := h.Theme.Subscribe()
	defer cancelTheme()

	requests := make(chan liveRequest)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		defer close(requests)
		for {
			var req liveRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			select {
			case requests <- req:
			case <-quit:
				return
			}
		}
	}()

	// All writes happen on this goroutine.
	errorSent := false
	push := func() error {
		if err := m.Err(); err != nil {
			if errorSent {
				return nil
			}
			errorSent = true
			return conn.WriteJSON(liveFrame{Type: "error", Collection: path, Message: err.Error()})
		}
		errorSent = false
		if m.Version() == 0 {
			return nil
		}
		return conn.WriteJSON(pageFrame(def, m.Version(), state.Render(m.Records())))
	}

	for {
		select {
		case <-changed:
		case req, ok := <-requests:
			if !ok {
				return
			}
			applyRequest(state, req)
		case t, ok := <-themes:
			if !ok {
				themes = nil
				continue
			}
			if err := conn.WriteJSON(liveFrame{Type: "theme", Theme: &t}); err != nil {
				log.WithError(err).Debug("live write failed")
				return
			}
			continue
		}
		if err := push(); err != nil {
			log.WithError(err).Debug("live write failed")
			return
		}
	}
}

// applyRequest moves the view state as the client asked
func applyRequest(state *view.State, req liveRequest) {
	if req.Filter != nil {
		state.SetFilter(*req.Filter)
	}
	if req.Sort != nil || req.Dir != "" {
		q := state.Query()
		field, desc := q.Sort, q.Desc
		if req.Sort != nil {
			field = *req.Sort
		}
		switch strings.ToLower(req.Dir) {
		case "asc":
			desc = false
		case "desc":
			desc = true
		}
		state.SetSort(field, desc)
	}
	if req.PageSize > 0 {
		state.SetPageSize(req.PageSize.Int(view.DefaultPageSize))
	}
	if req.Page > 0 {
		state.SetPage(req.Page.Int(1))
	}
}

func pageFrame(def forms.Definition, version uint64, page view.Page) liveFrame {
	rows := make([]adminRow, 0, len(page.Records))
	for _, r := range page.Records {
		rows = append(rows, adminRow{Record: r, Affordance: services.Affordances(def.Path, r.ID)})
	}
	return liveFrame{
		Type:       "page",
		Collection: def.Path,
		Version:    version,
		Columns:    def.Columns(),
		Rows:       rows,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Matched:    page.Matched,
		Total:      page.Total,
	}
}
