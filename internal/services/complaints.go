package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// ComplaintSentinel is the srNo of the totals row of the complaint table.
const ComplaintSentinel = "Grand Total"

// complaintCounts are the numeric columns of a complaint row.
var complaintCounts = []string{
	"pendingLastMonth",
	"received",
	"resolved",
	"totalPending",
	"pendingOver3Months",
	"avgResolutionDays",
}

// DefaultComplaintRows is the table published before any admin edit.
func DefaultComplaintRows() []store.Record {
	sources := []struct{ srNo, source string }{
		{"1", "Directly from Investors"},
		{"2", "SEBI (SCORES)"},
		{"3", "Other Sources (if any)"},
		{ComplaintSentinel, ComplaintSentinel},
	}
	rows := make([]store.Record, 0, len(sources))
	for _, s := range sources {
		fields := map[string]any{"srNo": s.srNo, "source": s.source}
		for _, c := range complaintCounts {
			fields[c] = 0
		}
		rows = append(rows, store.Record{ID: s.srNo, Fields: fields})
	}
	return rows
}

// ComplaintService maintains the public complaint data table.
type ComplaintService struct {
	D *Dispatcher
}

// Seed writes the default table when the table is empty.
func (s *ComplaintService) Seed(ctx context.Context) error {
	snap, err := s.D.Store.Snapshot(ctx, store.PathComplaintTable)
	if err != nil {
		return err
	}
	if len(snap.Records) > 0 {
		return nil
	}
	return s.D.Store.ReplaceAll(ctx, store.PathComplaintTable, DefaultComplaintRows())
}

// Table returns the rows in table order.
func (s *ComplaintService) Table(ctx context.Context) ([]store.Record, error) {
	snap, err := s.D.Store.Snapshot(ctx, store.PathComplaintTable)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

// EditRow changes the fields of row srNo.
func (s *ComplaintService) EditRow(ctx context.Context, srNo string, fields map[string]any) Outcome {
	return s.D.Save(ctx, store.PathComplaintTable, srNo, fields)
}

// Replace swaps in a whole new table. Rows keep the order given; each needs a
// unique srNo and the Grand Total row must be present with its fixed source.
func (s *ComplaintService) Replace(ctx context.Context, rows []map[string]any) Outcome {
	path := store.PathComplaintTable

	verr := &types.ValidationError{}
	seen := map[string]bool{}
	records := make([]store.Record, 0, len(rows))
	for i, fields := range rows {
		srNo := strings.TrimSpace(fmt.Sprint(fields["srNo"]))
		key := fmt.Sprintf("rows[%d].srNo", i)
		switch {
		case fields["srNo"] == nil || srNo == "":
			verr.Add(key, "srNo is required")
			continue
		case seen[srNo]:
			verr.Add(key, fmt.Sprintf("duplicate srNo %q", srNo))
			continue
		}
		seen[srNo] = true

		rec := store.Record{ID: srNo, Fields: map[string]any{}}
		for k, v := range fields {
			if k != store.FieldID {
				rec.Fields[k] = v
			}
		}
		rec.Fields["srNo"] = srNo
		if srNo == ComplaintSentinel && rec.Fields["source"] == nil {
			rec.Fields["source"] = ComplaintSentinel
		}
		if srNo == ComplaintSentinel && rec.Fields["source"] != ComplaintSentinel {
			verr.Add(fmt.Sprintf("rows[%d].source", i), "source cannot be edited")
		}
		records = append(records, rec)
	}
	if !seen[ComplaintSentinel] {
		verr.Add("rows", "the Grand Total row is required")
	}
	if err := verr.OrNil(); err != nil {
		return s.D.fail(path, "replace", "Please correct the highlighted fields.", err)
	}

	if err := s.D.Store.ReplaceAll(ctx, path, records); err != nil {
		return s.D.fail(path, "replace", fmt.Sprintf("Save failed: %v", err), err)
	}
	return s.D.succeed(path, "replace", "Complaint table saved.", "")
}
