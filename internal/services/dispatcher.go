// dispatcher.go
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

package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/metrics"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// Level of a user facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is the transient message shown after an action.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Outcome is the result of one dispatched action.
type Outcome struct {
	Notification Notification
	ID           string
	// Fields echoes the submitted fields after a failed submission so the form keeps them.
	Fields map[string]any
	Err    error
}

// OK reports whether the action succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Confirmer answers whether the user explicitly confirmed a destructive action.
type Confirmer interface {
	Confirmed() bool
}

// Confirmation is a Confirmer from a plain flag, such as a confirm query parameter.
type Confirmation bool

// Confirmed implements Confirmer.
func (c Confirmation) Confirmed() bool {
	return bool(c)
}

// Dispatcher turns admin and visitor actions into store calls plus a notification.
// Failures are logged and returned in the Outcome, never panicked.
type Dispatcher struct {
	Store  *store.Store
	Bucket objects.Bucket
	Now    func() time.Time
}

// NewDispatcher creates a dispatcher over s and b.
func NewDispatcher(s *store.Store, b objects.Bucket) *Dispatcher {
	return &Dispatcher{Store: s, Bucket: b, Now: time.Now}
}

func (d *Dispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Dispatcher) succeed(path, action, message, id string) Outcome {
	metrics.Actions.WithLabelValues(path, action, string(LevelSuccess)).Inc()
	logger.WithCollection(path).WithField("action", action).WithField("id", id).Info(message)
	return Outcome{Notification: Notification{Level: LevelSuccess, Message: message}, ID: id}
}

func (d *Dispatcher) inform(path, action, message, id string) Outcome {
	metrics.Actions.WithLabelValues(path, action, string(LevelInfo)).Inc()
	return Outcome{Notification: Notification{Level: LevelInfo, Message: message}, ID: id}
}

func (d *Dispatcher) fail(path, action, message string, err error) Outcome {
	metrics.Actions.WithLabelValues(path, action, string(LevelError)).Inc()

	entry := logger.WithCollection(path).WithField("action", action).WithError(err)
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		entry.Info(message)
	} else {
		entry.Error(message)
	}
	return Outcome{Notification: Notification{Level: LevelError, Message: message}, Err: err}
}

// Submit validates and creates a visitor submission.
// Nothing is written when validation fails.
func (d *Dispatcher) Submit(ctx context.Context, path string, fields map[string]any) Outcome {
	def, ok := forms.Lookup(path)
	if !ok || !def.Public() {
		return d.fail(path, "submit", "This form is not available.", types.ErrUnknownCollection)
	}

	err := forms.Validate(def, fields)
	if err == nil {
		err = clientFiles(def, fields)
	}
	if err != nil {
		out := d.fail(path, "submit", "Please correct the highlighted fields.", err)
		out.Fields = maps.Clone(fields)
		return out
	}

	return d.create(ctx, path, fields)
}

// clientFiles rejects file references in client supplied fields. References
// are only written by the upload services, so forms with attachments cannot
// be submitted here at all.
func clientFiles(def forms.Definition, fields map[string]any) error {
	verr := &types.ValidationError{}
	for _, f := range def.Files {
		verr.Add(f.Name, fmt.Sprintf("%s must be uploaded", f.Label))
	}
	rejectFileRefs(verr, fields)
	return verr.OrNil()
}

// rejectFileRefs flags every field shaped like a file reference.
func rejectFileRefs(verr *types.ValidationError, fields map[string]any) {
	for _, name := range store.FileRefFields(fields) {
		verr.Add(name, "file references cannot be submitted")
	}
}

// create stamps the submission time and writes the record.
func (d *Dispatcher) create(ctx context.Context, path string, fields map[string]any) Outcome {
	if err := checkFileRefs(fields); err != nil {
		out := d.fail(path, "submit", "Please correct the highlighted fields.", err)
		out.Fields = maps.Clone(fields)
		return out
	}

	rec := maps.Clone(fields)
	delete(rec, store.FieldID)
	rec[store.FieldTimestamp] = d.now().UnixMilli()

	id, err := d.Store.Create(ctx, path, rec)
	if err != nil {
		out := d.fail(path, "submit", fmt.Sprintf("Submission failed: %v", err), err)
		out.Fields = maps.Clone(fields)
		return out
	}
	return d.succeed(path, "submit", "Thank you! Your submission has been received.", id)
}

// checkFileRefs rejects file references missing their url, storage path or name.
func checkFileRefs(fields map[string]any) error {
	verr := &types.ValidationError{}
	for _, name := range store.PartialFileRefs(fields) {
		verr.Add(name, "file reference is incomplete")
	}
	return verr.OrNil()
}

// find reads path and returns the record with id.
func (d *Dispatcher) find(ctx context.Context, path, id string) (store.Record, []store.Record, error) {
	snap, err := d.Store.Snapshot(ctx, path)
	if err != nil {
		return store.Record{}, nil, err
	}
	for _, r := range snap.Records {
		if r.ID == id {
			return r, snap.Records, nil
		}
	}
	return store.Record{}, snap.Records, types.ErrNotFound
}

// Delete removes a record after explicit confirmation, then the files it
// referenced, best-effort. A failed file delete never fails the action.
// A record that is already gone counts as deleted.
func (d *Dispatcher) Delete(ctx context.Context, path, id string, confirm Confirmer) Outcome {
	def, ok := forms.Lookup(path)
	if !ok {
		return d.fail(path, "delete", "Unknown collection.", types.ErrUnknownCollection)
	}
	if confirm == nil || !confirm.Confirmed() {
		return d.inform(path, "delete", "Please confirm the deletion.", id).withErr(types.ErrConfirmationRequired)
	}
	if !Affordances(path, id).Deletable {
		return d.fail(path, "delete", "This row cannot be deleted.", types.ErrProtectedRecord)
	}

	if def.Kind == forms.KindTable {
		return d.deleteRow(ctx, path, id)
	}

	rec, _, findErr := d.find(ctx, path, id)
	if findErr != nil && !errors.Is(findErr, types.ErrNotFound) {
		logger.WithCollection(path).WithError(findErr).Warn("could not read record before delete")
	}

	if err := d.Store.Delete(ctx, path, id); err != nil {
		var werr *types.WriteError
		if errors.As(err, &werr) && werr.NotFound() {
			return d.inform(path, "delete", "Record was already deleted.", id)
		}
		return d.fail(path, "delete", fmt.Sprintf("Delete failed: %v", err), err)
	}
	if findErr == nil {
		d.deleteFiles(ctx, path, rec)
	}
	return d.succeed(path, "delete", "Record deleted.", id)
}

func (o Outcome) withErr(err error) Outcome {
	o.Err = err
	return o
}

// deleteFiles deletes the objects a record references and logs failures.
func (d *Dispatcher) deleteFiles(ctx context.Context, path string, rec store.Record) {
	if d.Bucket == nil {
		return
	}
	for field, ref := range store.FileRefs(rec.Fields) {
		if err := objects.DeleteQuietly(ctx, d.Bucket, ref.StoragePath); err != nil {
			logger.WithCollection(path).
				WithField("id", rec.ID).
				WithField("field", field).
				WithField("storagePath", ref.StoragePath).
				WithError(err).
				Warn("file delete failed")
		}
	}
}

// Save merges edited fields into a record. The identifier and the creation
// timestamp cannot be changed.
func (d *Dispatcher) Save(ctx context.Context, path, id string, fields map[string]any) Outcome {
	def, ok := forms.Lookup(path)
	if !ok {
		return d.fail(path, "save", "Unknown collection.", types.ErrUnknownCollection)
	}

	edit := maps.Clone(fields)
	delete(edit, store.FieldID)
	delete(edit, store.FieldTimestamp)

	if def.Kind == forms.KindTable {
		verr := &types.ValidationError{}
		rejectFileRefs(verr, edit)
		if err := verr.OrNil(); err != nil {
			return d.fail(path, "save", "Please correct the highlighted fields.", err)
		}
		return d.saveRow(ctx, path, id, edit)
	}

	current, _, err := d.find(ctx, path, id)
	if errors.Is(err, types.ErrNotFound) {
		err = &types.WriteError{Op: "update", Path: path, ID: id, Err: err}
	}
	if err != nil {
		return d.fail(path, "save", fmt.Sprintf("Save failed: %v", err), err)
	}

	removed, err := fileEdits(def, current.Fields, edit)
	if err != nil {
		return d.fail(path, "save", "Please correct the highlighted fields.", err)
	}

	if err := d.Store.Update(ctx, path, id, edit); err != nil {
		return d.fail(path, "save", fmt.Sprintf("Save failed: %v", err), err)
	}
	d.deleteFiles(ctx, path, store.Record{ID: id, Fields: removed})
	return d.succeed(path, "save", "Changes saved.", id)
}

// fileEdits checks the file fields of an edit against the current record.
// A file may be kept as is or removed with null, never pointed elsewhere.
// It returns the references the edit removes.
func fileEdits(def forms.Definition, current, edit map[string]any) (map[string]any, error) {
	held := store.FileRefs(current)
	removed := map[string]any{}
	verr := &types.ValidationError{}

	for name, value := range edit {
		old, holds := held[name]
		ref, shaped := store.ParseFileRef(value)
		if !holds && !shaped && !def.FileField(name) {
			continue
		}
		switch {
		case value == nil:
			if holds {
				removed[name] = old.Map()
			}
		case holds && shaped && ref == old:
		default:
			verr.Add(name, "a file can only be kept or removed")
		}
	}
	return removed, verr.OrNil()
}

// saveRow edits one row of a fixed table by replacing the whole table.
// Locked fields may be sent back unchanged but not altered.
func (d *Dispatcher) saveRow(ctx context.Context, path, id string, edit map[string]any) Outcome {
	current, rows, err := d.find(ctx, path, id)
	if err != nil {
		return d.fail(path, "save", fmt.Sprintf("Save failed: %v", err), &types.WriteError{Op: "update", Path: path, ID: id, Err: err})
	}

	verr := &types.ValidationError{}
	for _, name := range Affordances(path, id).LockedFields {
		if v, ok := edit[name]; ok && fmt.Sprint(v) != fmt.Sprint(current.Fields[name]) {
			verr.Add(name, fmt.Sprintf("%s cannot be edited", name))
		}
	}
	if err := verr.OrNil(); err != nil {
		return d.fail(path, "save", "This field cannot be edited.", err)
	}
	for i := range rows {
		if rows[i].ID == id {
			if rows[i].Fields == nil {
				rows[i].Fields = map[string]any{}
			}
			maps.Copy(rows[i].Fields, edit)
		}
	}
	if err := d.Store.ReplaceAll(ctx, path, rows); err != nil {
		return d.fail(path, "save", fmt.Sprintf("Save failed: %v", err), err)
	}
	return d.succeed(path, "save", "Changes saved.", id)
}

// deleteRow removes one row of a fixed table by replacing the whole table.
func (d *Dispatcher) deleteRow(ctx context.Context, path, id string) Outcome {
	_, rows, err := d.find(ctx, path, id)
	if errors.Is(err, types.ErrNotFound) {
		return d.inform(path, "delete", "Record was already deleted.", id)
	}
	if err != nil {
		return d.fail(path, "delete", fmt.Sprintf("Delete failed: %v", err), err)
	}

	kept := make([]store.Record, 0, len(rows))
	for _, r := range rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if err := d.Store.ReplaceAll(ctx, path, kept); err != nil {
		return d.fail(path, "delete", fmt.Sprintf("Delete failed: %v", err), err)
	}
	return d.succeed(path, "delete", "Record deleted.", id)
}

// Affordance lists what the admin UI may offer for one record.
type Affordance struct {
	Deletable    bool     `json:"deletable"`
	LockedFields []string `json:"locked,omitempty"` // shown but not editable
}

// Affordances returns the actions allowed on record id of path.
func Affordances(path, id string) Affordance {
	if path == store.PathComplaintTable && id == ComplaintSentinel {
		return Affordance{Deletable: false, LockedFields: []string{"srNo", "source"}}
	}
	if path == store.PathComplaintTable {
		return Affordance{Deletable: true, LockedFields: []string{"srNo"}}
	}
	return Affordance{Deletable: true}
}
