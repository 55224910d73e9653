package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON is a wrapper around gorm.io/datatypes.JSON to allow for custom data type mapping
type JSON struct {
	datatypes.JSON
}

// NewJSON encodes record fields for storage.
func NewJSON(fields map[string]any) (JSON, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return JSON{}, err
	}
	return JSON{JSON: datatypes.JSON(raw)}, nil
}

// Map decodes the stored fields. An empty column decodes to an empty map.
func (j JSON) Map() (map[string]any, error) {
	fields := map[string]any{}
	if len(j.JSON) == 0 || string(j.JSON) == "null" {
		return fields, nil
	}
	if err := json.Unmarshal(j.JSON, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSON) Scan(value interface{}) error {
	return j.JSON.Scan(value)
}

// GormDBDataType picks a column type per dialect, MSSQL has no json type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
