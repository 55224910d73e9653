package objects

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/localnerve/jam-build-collectionsdb/internal/models"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLBucket keeps uploads in the stored_objects table and serves them
// through the files endpoint of this service.
type SQLBucket struct {
	DB      *gorm.DB
	BaseURL string // public URL of this service, without trailing slash
}

// NewSQLBucket creates a bucket over db.
func NewSQLBucket(db *gorm.DB, baseURL string) *SQLBucket {
	return &SQLBucket{DB: db, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Name implements Bucket.
func (b *SQLBucket) Name() string {
	return "sql"
}

// FileURL is the download URL for storagePath.
func (b *SQLBucket) FileURL(storagePath string) string {
	segments := strings.Split(storagePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.BaseURL + "/api/files/" + strings.Join(segments, "/")
}

// Upload implements Bucket. Uploading to an existing path replaces the object.
func (b *SQLBucket) Upload(ctx context.Context, storagePath string, data []byte, contentType string) (Object, error) {
	obj := models.StoredObject{
		StoragePath: storagePath,
		FileName:    path.Base(storagePath),
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}
	err := b.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&obj).Error
	if err != nil {
		return Object{}, err
	}
	return Object{URL: b.FileURL(storagePath), StoragePath: storagePath, FileName: obj.FileName}, nil
}

// Open implements Bucket.
func (b *SQLBucket) Open(ctx context.Context, storagePath string) (*Blob, error) {
	var obj models.StoredObject
	err := b.DB.WithContext(ctx).Where("storage_path = ?", storagePath).First(&obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrStorageObjectNotFound
		}
		return nil, err
	}
	return &Blob{
		FileName:    obj.FileName,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Data:        obj.Data,
	}, nil
}

// Delete implements Bucket.
func (b *SQLBucket) Delete(ctx context.Context, storagePath string) error {
	result := b.DB.WithContext(ctx).
		Where("storage_path = ?", storagePath).
		Delete(&models.StoredObject{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrStorageObjectNotFound
	}
	return nil
}
