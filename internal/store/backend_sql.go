package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/jam-build-collectionsdb/internal/models"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// SQLBackend keeps every collection in the collection_records table.
type SQLBackend struct {
	DB *gorm.DB
}

// NewSQLBackend returns a backend over an already migrated database.
func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{DB: db}
}

// Name implements Backend.
func (b *SQLBackend) Name() string {
	return "sql:" + b.DB.Dialector.Name()
}

func (b *SQLBackend) quiet(ctx context.Context) *gorm.DB {
	return b.DB.Session(&gorm.Session{Logger: b.DB.Logger.LogMode(logger.Silent)}).WithContext(ctx)
}

// List implements Backend.
func (b *SQLBackend) List(ctx context.Context, path string) ([]Record, error) {
	var rows []models.CollectionRecord
	err := b.quiet(ctx).
		Clauses(hints.Comment("select", "collectionsdb:list")).
		Where("collection = ?", path).
		Order("position ASC").
		Order("record_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		fields, err := row.Fields.Map()
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", path, row.RecordID, err)
		}
		records = append(records, Record{ID: row.RecordID, Fields: fields})
	}
	return records, nil
}

// Insert implements Backend.
func (b *SQLBackend) Insert(ctx context.Context, path string, fields map[string]any) (string, error) {
	encoded, err := models.NewJSON(fields)
	if err != nil {
		return "", err
	}

	row := models.CollectionRecord{
		RecordID:   uuid.New().String(),
		Collection: path,
		Position:   time.Now().UnixNano(),
		Timestamp:  timestampOf(fields),
		Fields:     encoded,
	}
	if err := b.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.RecordID, nil
}

// Merge implements Backend.
func (b *SQLBackend) Merge(ctx context.Context, path, id string, fields map[string]any) error {
	return b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.CollectionRecord
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND record_id = ?", path, id).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNotFound
			}
			return err
		}

		current, err := row.Fields.Map()
		if err != nil {
			return fmt.Errorf("decode %s/%s: %w", path, id, err)
		}
		maps.Copy(current, fields)

		encoded, err := models.NewJSON(current)
		if err != nil {
			return err
		}
		return tx.Model(&row).
			Where("collection = ? AND record_id = ?", path, id).
			Updates(map[string]any{"fields": encoded, "updated_at": time.Now()}).Error
	})
}

// Replace implements Backend.
func (b *SQLBackend) Replace(ctx context.Context, path string, recs []Record) error {
	return b.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", path).Delete(&models.CollectionRecord{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}

		rows := make([]models.CollectionRecord, 0, len(recs))
		for i, rec := range recs {
			encoded, err := models.NewJSON(rec.Fields)
			if err != nil {
				return err
			}
			id := rec.ID
			if id == "" {
				id = uuid.New().String()
			}
			rows = append(rows, models.CollectionRecord{
				RecordID:   id,
				Collection: path,
				Position:   int64(i),
				Timestamp:  timestampOf(rec.Fields),
				Fields:     encoded,
			})
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}

// Remove implements Backend.
func (b *SQLBackend) Remove(ctx context.Context, path, id string) error {
	result := b.DB.WithContext(ctx).
		Where("collection = ? AND record_id = ?", path, id).
		Delete(&models.CollectionRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Ping implements Backend.
func (b *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// timestampOf reads an epoch millisecond timestamp field for the indexed column.
func timestampOf(fields map[string]any) int64 {
	switch v := fields[FieldTimestamp].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
