package models

import (
	"time"
)

// StoredObject is an uploaded file held by the SQL object bucket.
type StoredObject struct {
	StoragePath string `gorm:"primaryKey;size:512"`
	FileName    string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:128"`
	Size        int64  `gorm:"not null;default:0"`
	Data        []byte `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName overrides the table name for StoredObject
func (StoredObject) TableName() string {
	return "stored_objects"
}
