// view.go
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

package view

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 10

// Query selects the visible rows of a collection.
// An empty Sort keeps the collection's own order.
type Query struct {
	Filter   string `json:"filter"`
	Sort     string `json:"sort"`
	Desc     bool   `json:"desc"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// Page is the result of Apply.
type Page struct {
	Records    []store.Record `json:"records"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
	Matched    int            `json:"matched"` // records left after filtering
	Total      int            `json:"total"`   // records before filtering
}

// Apply filters, sorts and paginates records. The input is not modified.
func Apply(records []store.Record, q Query) Page {
	matched := Filter(records, q.Filter)
	if q.Sort != "" {
		Sort(matched, q.Sort, q.Desc)
	}
	page := Paginate(matched, q.Page, q.PageSize)
	page.Total = len(records)
	return page
}

// Filter keeps the records with any field value containing text, ignoring case.
// The record identifier is not searched.
func Filter(records []store.Record, text string) []store.Record {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		if needle == "" || matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r store.Record, needle string) bool {
	for _, v := range r.Fields {
		if strings.Contains(strings.ToLower(Stringify(v)), needle) {
			return true
		}
	}
	return false
}

// Stringify renders a field value as text. Maps and slices render their
// values separated by spaces, maps in key order.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, Stringify(val[k]))
		}
		return strings.Join(parts, " ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

// value kinds in ascending order
const (
	kindMissing = iota
	kindNumber
	kindText
)

type sortKey struct {
	kind int
	num  float64
	text string
}

func keyOf(v any) sortKey {
	switch val := v.(type) {
	case nil:
		return sortKey{kind: kindMissing}
	case float64:
		return sortKey{kind: kindNumber, num: val}
	case float32:
		return sortKey{kind: kindNumber, num: float64(val)}
	case int:
		return sortKey{kind: kindNumber, num: float64(val)}
	case int64:
		return sortKey{kind: kindNumber, num: float64(val)}
	case bool:
		if val {
			return sortKey{kind: kindNumber, num: 1}
		}
		return sortKey{kind: kindNumber}
	case string:
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			return sortKey{kind: kindNumber, num: float64(t.UnixMilli())}
		}
		return sortKey{kind: kindText, text: strings.ToLower(val)}
	}
	return sortKey{kind: kindText, text: strings.ToLower(Stringify(v))}
}

func compareKeys(a, b sortKey) int {
	if a.kind != b.kind {
		return a.kind - b.kind
	}
	switch a.kind {
	case kindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	case kindText:
		return strings.Compare(a.text, b.text)
	}
	return 0
}

// Sort orders records in place by field. Missing values sort first when
// ascending, numbers and timestamps before text. Ties fall back to the
// record identifier so the order is total.
func Sort(records []store.Record, field string, desc bool) {
	keys := make(map[string]sortKey, len(records))
	for _, r := range records {
		keys[r.ID] = keyOf(r.Fields[field])
	}
	slices.SortStableFunc(records, func(a, b store.Record) int {
		c := compareKeys(keys[a.ID], keys[b.ID])
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})
}

// Paginate returns one page of records. page is clamped to the valid range,
// so a page past the end shows the last page.
func Paginate(records []store.Record, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := max(int(math.Ceil(float64(len(records))/float64(pageSize))), 1)
	page = min(max(page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(records))

	return Page{
		Records:    slices.Clone(records[start:end]),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Matched:    len(records),
		Total:      len(records),
	}
}
