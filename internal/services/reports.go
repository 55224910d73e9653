package services

import (
	"context"
	"fmt"

	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/localnerve/jam-build-collectionsdb/internal/view"
)

// ReportService manages the downloadable reports published per weekday.
type ReportService struct {
	D *Dispatcher
}

// Upload stores file as a report for day and records it.
func (s *ReportService) Upload(ctx context.Context, day, title string, file Upload) Outcome {
	path := store.PathReports
	def, _ := forms.Lookup(path)

	fields := map[string]any{"day": day}
	if title != "" {
		fields["title"] = title
	}
	verr := &types.ValidationError{}
	if err := forms.Validate(def, fields); err != nil {
		verr = err.(*types.ValidationError)
	}
	if len(file.Data) == 0 {
		verr.Add("file", "File is required")
	} else if contentType, allowed := sniff(file.Data, reportTypes); allowed {
		file.ContentType = contentType
	} else {
		verr.Add("file", "File must be a PDF, image, spreadsheet or text file")
	}
	if err := verr.OrNil(); err != nil {
		return s.D.fail(path, "upload", "Please correct the highlighted fields.", err)
	}

	day, _ = forms.NormalizeDay(day)
	fields["day"] = day
	fields["fileName"] = file.FileName

	obj, err := s.D.Bucket.Upload(ctx, objects.ReportPath(day, s.D.now().UnixMilli(), file.FileName), file.Data, file.ContentType)
	if err != nil {
		return s.D.fail(path, "upload", fmt.Sprintf("Upload failed: %v", err), err)
	}
	fields["file"] = store.FileRef{URL: obj.URL, StoragePath: obj.StoragePath, FileName: file.FileName}.Map()

	out := s.D.create(ctx, path, fields)
	if !out.OK() {
		if err := objects.DeleteQuietly(ctx, s.D.Bucket, obj.StoragePath); err != nil {
			logger.WithCollection(path).
				WithField("storagePath", obj.StoragePath).
				WithError(err).
				Warn("orphaned upload")
		}
		return out
	}
	out.Notification.Message = fmt.Sprintf("Report uploaded for %s.", day)
	return out
}

// List returns the reports of day, newest first.
func (s *ReportService) List(ctx context.Context, day string) ([]store.Record, error) {
	day, ok := forms.NormalizeDay(day)
	if !ok {
		verr := &types.ValidationError{}
		verr.Add("day", "Day must be a weekday")
		return nil, verr
	}

	snap, err := s.D.Store.Snapshot(ctx, store.PathReports)
	if err != nil {
		return nil, err
	}

	out := make([]store.Record, 0, len(snap.Records))
	for _, r := range snap.Records {
		if r.Fields["day"] == day {
			out = append(out, r)
		}
	}
	view.Sort(out, store.FieldTimestamp, true)
	return out, nil
}

// Delete removes report id of day together with its file.
func (s *ReportService) Delete(ctx context.Context, day, id string, confirm Confirmer) Outcome {
	reports, err := s.List(ctx, day)
	if err != nil {
		return s.D.fail(store.PathReports, "delete", fmt.Sprintf("Delete failed: %v", err), err)
	}
	for _, r := range reports {
		if r.ID == id {
			return s.D.Delete(ctx, store.PathReports, id, confirm)
		}
	}
	return s.D.inform(store.PathReports, "delete", "Report was already deleted.", id)
}
