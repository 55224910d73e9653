package objects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// downloadTokenKey is the object metadata key Firebase Storage reads download tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// FirebaseBucket stores uploads in a Firebase Storage (GCS) bucket.
type FirebaseBucket struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewFirebaseBucket wraps a bucket handle, typically from the Firebase Admin storage client.
func NewFirebaseBucket(bucket *gcs.BucketHandle, name string) *FirebaseBucket {
	return &FirebaseBucket{bucket: bucket, name: name}
}

// Name implements Bucket.
func (b *FirebaseBucket) Name() string {
	return "firebase:" + b.name
}

// Upload implements Bucket.
func (b *FirebaseBucket) Upload(ctx context.Context, storagePath string, data []byte, contentType string) (Object, error) {
	token := uuid.NewString()

	w := b.bucket.Object(storagePath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokenKey: token}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return Object{}, err
	}
	if err := w.Close(); err != nil {
		return Object{}, err
	}

	return Object{
		URL:         firebaseDownloadURL(b.name, storagePath, token),
		StoragePath: storagePath,
		FileName:    path.Base(storagePath),
	}, nil
}

// Open implements Bucket.
func (b *FirebaseBucket) Open(ctx context.Context, storagePath string) (*Blob, error) {
	r, err := b.bucket.Object(storagePath).NewReader(ctx)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &Blob{
		FileName:    path.Base(storagePath),
		ContentType: r.Attrs.ContentType,
		Size:        r.Attrs.Size,
		Data:        data,
	}, nil
}

// Delete implements Bucket.
func (b *FirebaseBucket) Delete(ctx context.Context, storagePath string) error {
	return mapStorageErr(b.bucket.Object(storagePath).Delete(ctx))
}

func mapStorageErr(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", types.ErrStorageObjectNotFound, err)
	}
	return err
}

// firebaseDownloadURL builds the token URL the Firebase client SDK hands out.
func firebaseDownloadURL(bucket, storagePath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(storagePath), token)
}
