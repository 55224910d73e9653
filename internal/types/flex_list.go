// flex_list.go
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

package types

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// FlexList decodes a JSON array, a single JSON value, or an object keyed by
// array index ({"0": ..., "1": ...}) as a realtime database serializes arrays.
// Index-keyed objects may be sparse; items are kept in index order.
type FlexList[T any] []T

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}

	switch data[0] {
	case '[':
		var slice []T
		if err := json.Unmarshal(data, &slice); err != nil {
			return err
		}
		*f = FlexList[T](slice)
		return nil
	case '{':
		if items, ok, err := indexKeyed[T](data); ok || err != nil {
			*f = items
			return err
		}
	}

	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*f = FlexList[T]{item}
	return nil
}

// indexKeyed reports ok only when data is a non-empty object whose keys are
// all non-negative integers.
func indexKeyed[T any](data []byte) (FlexList[T], bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || len(raw) == 0 {
		return nil, false, nil
	}

	indexes := make([]int, 0, len(raw))
	byIndex := make(map[int]json.RawMessage, len(raw))
	for key, value := range raw {
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 {
			return nil, false, nil
		}
		indexes = append(indexes, n)
		byIndex[n] = value
	}
	sort.Ints(indexes)

	items := make(FlexList[T], 0, len(indexes))
	for _, n := range indexes {
		if string(byIndex[n]) == "null" {
			continue
		}
		var item T
		if err := json.Unmarshal(byIndex[n], &item); err != nil {
			return nil, true, err
		}
		items = append(items, item)
	}
	return items, true, nil
}

// Slice converts FlexList[T] back to []T.
func (f FlexList[T]) Slice() []T {
	return []T(f)
}
