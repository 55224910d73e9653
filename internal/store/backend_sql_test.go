package store

import (
	"context"
	"testing"

	"github.com/localnerve/jam-build-collectionsdb/internal/database"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a Store over a fresh in-memory SQLite database
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return New(NewSQLBackend(db))
}

func TestSQLCreateAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Create(ctx, PathHomeForm, map[string]any{
		"name":         "Priya Gupta",
		"email":        "priya@example.com",
		FieldTimestamp: int64(1700000000000),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := s.Snapshot(ctx, PathHomeForm)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, id, snap.Records[0].ID)
	assert.Equal(t, "Priya Gupta", snap.Records[0].Fields["name"])

	other, err := s.Snapshot(ctx, PathContactEntries)
	require.NoError(t, err)
	assert.Empty(t, other.Records)
}

func TestSQLDeleteTwiceReportsNotFound(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Create(ctx, PathPopupForms, map[string]any{"name": "Arun"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, PathPopupForms, id))

	err = s.Delete(ctx, PathPopupForms, id)
	var writeErr *types.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.True(t, writeErr.NotFound())
}

func TestSQLUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	id, err := s.Create(ctx, PathConsentForms, map[string]any{
		"clientName":   "Kiran",
		"city":         "Pune",
		FieldTimestamp: int64(42),
	})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, PathConsentForms, id, map[string]any{"city": "Mumbai", FieldTimestamp: int64(7)}))

	snap, err := s.Snapshot(ctx, PathConsentForms)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	fields := snap.Records[0].Fields
	assert.Equal(t, "Kiran", fields["clientName"])
	assert.Equal(t, "Mumbai", fields["city"])
	assert.EqualValues(t, 42, fields[FieldTimestamp])

	err = s.Update(ctx, PathConsentForms, "nope", map[string]any{"city": "Delhi"})
	assert.True(t, types.IsNotFound(err))
}

func TestSQLReplaceAllKeepsOrderAndIDs(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	rows := []Record{
		{ID: "1", Fields: map[string]any{"source": "Directly from Investors"}},
		{ID: "2", Fields: map[string]any{"source": "SEBI (SCORES)"}},
		{ID: "3", Fields: map[string]any{"source": "Other Sources"}},
		{ID: "Grand Total", Fields: map[string]any{"source": "Grand Total"}},
	}
	require.NoError(t, s.ReplaceAll(ctx, PathComplaintTable, rows))

	// Replace again with a reordered table
	rows[0], rows[2] = rows[2], rows[0]
	require.NoError(t, s.ReplaceAll(ctx, PathComplaintTable, rows))

	snap, err := s.Snapshot(ctx, PathComplaintTable)
	require.NoError(t, err)
	require.Len(t, snap.Records, 4)
	ids := make([]string, 0, 4)
	for _, r := range snap.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"3", "2", "1", "Grand Total"}, ids)
}

func TestSQLSubscriberSeesWrites(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	rec := newRecorder()

	unsubscribe := s.Subscribe(PathReports, rec.onChange, rec.onError)
	defer func() {
		unsubscribe()
		s.Wait()
	}()
	rec.next(t)

	_, err := s.Create(ctx, PathReports, map[string]any{"day": "friday", "fileName": "a.pdf"})
	require.NoError(t, err)
	snap := rec.until(t, 1)
	assert.Equal(t, "friday", snap.Records[0].Fields["day"])
}

func TestSQLPing(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "sql:sqlite", s.Backend().Name())
}
