// backend_firebase.go
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

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"firebase.google.com/go/v4/db"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// arrayIDKey keeps a row identifier inside array elements written by Replace.
const arrayIDKey = "_id"

// FirebaseBackend stores collections in the Firebase Realtime Database.
// Pushed children are keyed by push ids, which sort chronologically.
type FirebaseBackend struct {
	client *db.Client
}

// NewFirebaseBackend wraps a Realtime Database client.
func NewFirebaseBackend(client *db.Client) *FirebaseBackend {
	return &FirebaseBackend{client: client}
}

// Name implements Backend.
func (b *FirebaseBackend) Name() string {
	return "firebase"
}

// List implements Backend.
func (b *FirebaseBackend) List(ctx context.Context, path string) ([]Record, error) {
	var raw any
	if err := b.client.NewRef(path).Get(ctx, &raw); err != nil {
		return nil, err
	}
	return recordsFromTree(raw), nil
}

// recordsFromTree converts the value stored at a path into ordered records.
// Objects become one record per child key; arrays keep element order.
func recordsFromTree(raw any) []Record {
	switch tree := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(tree))
		for k := range tree {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records := make([]Record, 0, len(keys))
		for _, k := range keys {
			fields, ok := tree[k].(map[string]any)
			if !ok {
				fields = map[string]any{"value": tree[k]}
			}
			records = append(records, Record{ID: k, Fields: fields})
		}
		return records
	case []any:
		records := make([]Record, 0, len(tree))
		for i, elem := range tree {
			fields, ok := elem.(map[string]any)
			if !ok {
				// Sparse arrays come back with nil holes.
				continue
			}
			id, _ := fields[arrayIDKey].(string)
			if id == "" {
				id = strconv.Itoa(i)
			}
			delete(fields, arrayIDKey)
			records = append(records, Record{ID: id, Fields: fields})
		}
		return records
	}
	return []Record{}
}

// Insert implements Backend.
func (b *FirebaseBackend) Insert(ctx context.Context, path string, fields map[string]any) (string, error) {
	ref, err := b.client.NewRef(path).Push(ctx, fields)
	if err != nil {
		return "", err
	}
	return ref.Key, nil
}

func (b *FirebaseBackend) exists(ctx context.Context, ref *db.Ref) (bool, error) {
	var existing map[string]any
	if err := ref.Get(ctx, &existing); err != nil {
		return false, err
	}
	return existing != nil, nil
}

// Merge implements Backend. The Realtime Database creates missing children on
// update, so existence is checked first.
func (b *FirebaseBackend) Merge(ctx context.Context, path, id string, fields map[string]any) error {
	ref := b.client.NewRef(path).Child(id)
	ok, err := b.exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	if len(fields) == 0 {
		return nil
	}
	return ref.Update(ctx, fields)
}

// Replace implements Backend by writing an array, the shape the complaint table uses.
func (b *FirebaseBackend) Replace(ctx context.Context, path string, recs []Record) error {
	rows := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		row := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			row[k] = v
		}
		if rec.ID != "" {
			row[arrayIDKey] = rec.ID
		}
		rows = append(rows, row)
	}
	return b.client.NewRef(path).Set(ctx, rows)
}

// Remove implements Backend.
func (b *FirebaseBackend) Remove(ctx context.Context, path, id string) error {
	ref := b.client.NewRef(path).Child(id)
	ok, err := b.exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotFound
	}
	return ref.Delete(ctx)
}

// Ping implements Backend.
func (b *FirebaseBackend) Ping(ctx context.Context) error {
	var keys map[string]any
	if err := b.client.NewRef("/").GetShallow(ctx, &keys); err != nil {
		return fmt.Errorf("firebase ping: %w", err)
	}
	return nil
}
