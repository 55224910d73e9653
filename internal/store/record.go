package store

import (
	"encoding/json"
	"maps"
)

// Paths of the collections served by this repository.
const (
	PathHomeForm         = "homeFormSubmissions"
	PathContactEntries   = "contactEntries"
	PathPopupForms       = "popoForms"
	PathConsentForms     = "clientServiceConsentForms"
	PathComplaintTable   = "complaintTableData/data"
	PathReports          = "reports"
	PathInvestorFeedback = "investorCharterFeedback"
	FieldTimestamp       = "timestamp"
	FieldID              = "id"
)

// Record is one item of a Collection: a store assigned identifier and its fields.
type Record struct {
	ID     string
	Fields map[string]any
}

// Clone returns a record whose top level field map can be modified freely.
func (r Record) Clone() Record {
	return Record{ID: r.ID, Fields: maps.Clone(r.Fields)}
}

// MarshalJSON flattens the record into its fields plus "id", the shape the site reads.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+1)
	maps.Copy(out, r.Fields)
	out[FieldID] = r.ID
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flattened shape written by MarshalJSON.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if id, ok := fields[FieldID].(string); ok {
		r.ID = id
	}
	delete(fields, FieldID)
	r.Fields = fields
	return nil
}

// Snapshot is the complete state of one Collection at a version.
// Versions increase monotonically per path for the life of the process.
type Snapshot struct {
	Path    string   `json:"path"`
	Version uint64   `json:"version"`
	Records []Record `json:"records"`
}

// CloneRecords copies the record slice and each record's top level fields.
func CloneRecords(records []Record) []Record {
	if records == nil {
		return []Record{}
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
