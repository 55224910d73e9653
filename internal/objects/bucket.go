// bucket.go
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

package objects

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// Object locates an uploaded file.
type Object struct {
	URL         string
	StoragePath string
	FileName    string
}

// Blob is the content of a stored object.
type Blob struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// Bucket stores uploaded files by storage path.
// Open and Delete return types.ErrStorageObjectNotFound for an absent path.
type Bucket interface {
	Upload(ctx context.Context, storagePath string, data []byte, contentType string) (Object, error)
	Open(ctx context.Context, storagePath string) (*Blob, error)
	Delete(ctx context.Context, storagePath string) error
	Name() string
}

// DeleteQuietly deletes an object, treating an already absent object as deleted.
func DeleteQuietly(ctx context.Context, b Bucket, storagePath string) error {
	err := b.Delete(ctx, storagePath)
	if err != nil && !errors.Is(err, types.ErrStorageObjectNotFound) {
		return err
	}
	return nil
}

// ConsentPath is the storage path of one consent form attachment.
func ConsentPath(submissionID, field, fileName string) string {
	return fmt.Sprintf("client-consents/%s/%s-%s", submissionID, field, CleanFileName(fileName))
}

// ReportPath is the storage path of a weekday report uploaded at timestamp (epoch ms).
func ReportPath(day string, timestamp int64, fileName string) string {
	return fmt.Sprintf("reports/%s/%d_%s", strings.ToLower(day), timestamp, CleanFileName(fileName))
}

// CleanFileName reduces a client supplied name to a single safe path segment.
func CleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
