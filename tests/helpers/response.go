// response.go
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
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

// AssertStatus verifies the HTTP status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode == expected {
		return
	}
	if resp.Request != nil {
		t.Errorf("%s %s: expected status %d, got %d", resp.Request.Method, resp.Request.URL.Path, expected, resp.StatusCode)
		return
	}
	t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
}

// ParseJSON decodes the response body into the target. The body is always closed.
func ParseJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Expected a JSON response, got %q. Body: %s", ct, string(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("Failed to decode JSON: %v. Body: %s", err, string(body))
	}
}

// GetJSON fetches url, checks the status and decodes the body into target
func GetJSON(t *testing.T, url string, status int, target interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	AssertStatus(t, resp, status)
	ParseJSON(t, resp, target)
}

// AssertEnvelope verifies the ok flag and notification level of an action response
func AssertEnvelope(t *testing.T, body map[string]interface{}, ok bool, level string) {
	t.Helper()
	if body["ok"] != ok {
		t.Errorf("Expected ok=%v, got %v", ok, body["ok"])
	}
	notification, _ := body["notification"].(map[string]interface{})
	if notification == nil {
		t.Fatalf("Expected a notification in %v", body)
	}
	if notification["level"] != level {
		t.Errorf("Expected notification level %s, got %v", level, notification["level"])
	}
}

// AssertFieldErrors verifies that a validation response names each field
func AssertFieldErrors(t *testing.T, body map[string]interface{}, fields ...string) {
	t.Helper()
	errs, _ := body["errors"].(map[string]interface{})
	for _, field := range fields {
		if _, ok := errs[field]; !ok {
			t.Errorf("Expected a validation message for %s, got %v", field, errs)
		}
	}
}
