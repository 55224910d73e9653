package models

import (
	"time"
)

// CollectionRecord is one persisted Record of a path-addressed Collection.
// Fields holds the record body as JSON; the store never validates its shape.
type CollectionRecord struct {
	RecordID   string `gorm:"primaryKey;size:64"`
	Collection string `gorm:"primaryKey;size:255;index:idx_collection_order,priority:1"`
	Position   int64  `gorm:"not null;default:0;index:idx_collection_order,priority:2"`
	Timestamp  int64  `gorm:"not null;default:0;index"`
	Fields     JSON
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the table name for CollectionRecord
func (CollectionRecord) TableName() string {
	return "collection_records"
}
