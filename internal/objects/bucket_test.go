package objects

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/localnerve/jam-build-collectionsdb/internal/database"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

func setupTestBucket(t *testing.T) *SQLBucket {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return NewSQLBucket(db, "http://localhost:3000/")
}

func TestSQLBucketUploadOpenDelete(t *testing.T) {
	ctx := context.Background()
	b := setupTestBucket(t)

	storagePath := ConsentPath("sub-1", "panCard", "my pan.png")
	obj, err := b.Upload(ctx, storagePath, []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if obj.StoragePath != "client-consents/sub-1/panCard-my pan.png" {
		t.Errorf("unexpected storage path %q", obj.StoragePath)
	}
	if obj.URL != "http://localhost:3000/api/files/client-consents/sub-1/panCard-my%20pan.png" {
		t.Errorf("unexpected url %q", obj.URL)
	}
	if obj.FileName != "panCard-my pan.png" {
		t.Errorf("unexpected file name %q", obj.FileName)
	}

	blob, err := b.Open(ctx, storagePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(blob.Data) != "png-bytes" || blob.ContentType != "image/png" || blob.Size != 9 {
		t.Errorf("unexpected blob %+v", blob)
	}

	if err := b.Delete(ctx, storagePath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := b.Open(ctx, storagePath); !errors.Is(err, types.ErrStorageObjectNotFound) {
		t.Errorf("expected ErrStorageObjectNotFound after delete, got %v", err)
	}
}

func TestSQLBucketUploadReplaces(t *testing.T) {
	ctx := context.Background()
	b := setupTestBucket(t)

	p := ReportPath("Monday", 1700000000000, "week.pdf")
	if _, err := b.Upload(ctx, p, []byte("v1"), "application/pdf"); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	if _, err := b.Upload(ctx, p, []byte("version2"), "application/pdf"); err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	blob, err := b.Open(ctx, p)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(blob.Data) != "version2" {
		t.Errorf("expected replaced content, got %q", blob.Data)
	}
}

func TestDeleteQuietly(t *testing.T) {
	ctx := context.Background()
	b := setupTestBucket(t)

	if err := b.Delete(ctx, "reports/monday/missing.pdf"); !errors.Is(err, types.ErrStorageObjectNotFound) {
		t.Fatalf("expected ErrStorageObjectNotFound, got %v", err)
	}
	if err := DeleteQuietly(ctx, b, "reports/monday/missing.pdf"); err != nil {
		t.Errorf("DeleteQuietly should ignore absent objects, got %v", err)
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"consent", ConsentPath("abc", "signature", "sig.jpg"), "client-consents/abc/signature-sig.jpg"},
		{"consent strips dirs", ConsentPath("abc", "panCard", `C:\Users\me\pan.png`), "client-consents/abc/panCard-pan.png"},
		{"report", ReportPath("Friday", 42, "r.pdf"), "reports/friday/42_r.pdf"},
		{"empty name", ReportPath("monday", 1, ""), "reports/monday/1_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestFirebaseDownloadURL(t *testing.T) {
	got := firebaseDownloadURL("site.appspot.com", "reports/monday/1_r.pdf", "tok")
	if !strings.HasPrefix(got, "https://firebasestorage.googleapis.com/v0/b/site.appspot.com/o/reports%2Fmonday%2F1_r.pdf") {
		t.Errorf("unexpected url %q", got)
	}
	if !strings.HasSuffix(got, "?alt=media&token=tok") {
		t.Errorf("missing token in %q", got)
	}
}
