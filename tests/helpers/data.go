// data.go
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

package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
)

// HomeForm returns a valid home page enquiry for name
func HomeForm(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":       name,
		"phone":      "9998887776",
		"city":       "Indore",
		"experience": "Beginner",
	}
}

// SeedRecords creates n home form records directly in the store and returns their ids
func SeedRecords(t *testing.T, s *store.Store, path string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		fields := HomeForm(fmt.Sprintf("Seed %02d", i))
		fields[store.FieldTimestamp] = int64(1772445600000 + i)
		id, err := s.Create(context.Background(), path, fields)
		if err != nil {
			t.Fatalf("Failed to seed record %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// PostJSON sends body as JSON and decodes the JSON response
func PostJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Failed to post %s: %v", url, err)
	}
	var out map[string]interface{}
	ParseJSON(t, resp, &out)
	return resp, out
}
