package services

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/objects"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// Upload is one file received with a form.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ConsentService accepts client service consent forms with their three attachments.
type ConsentService struct {
	D *Dispatcher
}

// Submit validates the form, uploads the attachments under a new submission
// id and creates the record. When the record cannot be created the uploads
// are removed again, best-effort.
func (s *ConsentService) Submit(ctx context.Context, fields map[string]any, files map[string]Upload) Outcome {
	path := store.PathConsentForms
	def, _ := forms.Lookup(path)

	verr := &types.ValidationError{}
	if err := forms.Validate(def, fields); err != nil {
		verr = err.(*types.ValidationError)
	}
	rejectFileRefs(verr, fields)
	accepted := make(map[string]Upload, len(def.Files))
	for _, f := range def.Files {
		up, ok := files[f.Name]
		if !ok || len(up.Data) == 0 {
			verr.Add(f.Name, fmt.Sprintf("%s is required", f.Label))
			continue
		}
		contentType, allowed := sniff(up.Data, consentTypes)
		if !allowed {
			verr.Add(f.Name, fmt.Sprintf("%s must be an image or a PDF", f.Label))
			continue
		}
		up.ContentType = contentType
		accepted[f.Name] = up
	}
	if err := verr.OrNil(); err != nil {
		out := s.D.fail(path, "submit", "Please correct the highlighted fields.", err)
		out.Fields = maps.Clone(fields)
		return out
	}

	submissionID := uuid.NewString()
	rec := maps.Clone(fields)
	rec["submissionId"] = submissionID

	var uploaded []string
	for _, f := range def.Files {
		up := accepted[f.Name]
		obj, err := s.D.Bucket.Upload(ctx, objects.ConsentPath(submissionID, f.Name, up.FileName), up.Data, up.ContentType)
		if err != nil {
			s.rollback(ctx, uploaded)
			out := s.D.fail(path, "submit", fmt.Sprintf("Upload of %s failed: %v", f.Label, err), err)
			out.Fields = maps.Clone(fields)
			return out
		}
		uploaded = append(uploaded, obj.StoragePath)
		rec[f.Name] = store.FileRef{URL: obj.URL, StoragePath: obj.StoragePath, FileName: up.FileName}.Map()
	}

	out := s.D.create(ctx, path, rec)
	if !out.OK() {
		s.rollback(ctx, uploaded)
		out.Fields = maps.Clone(fields)
	}
	return out
}

func (s *ConsentService) rollback(ctx context.Context, storagePaths []string) {
	for _, p := range storagePaths {
		if err := objects.DeleteQuietly(ctx, s.D.Bucket, p); err != nil {
			logger.WithCollection(store.PathConsentForms).
				WithField("storagePath", p).
				WithError(err).
				Warn("orphaned upload")
		}
	}
}
