package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/jam-build-collectionsdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errOffline = errors.New("backend offline")

// memBackend is an in-memory Backend whose reads can be made to fail.
type memBackend struct {
	mu       sync.Mutex
	data     map[string][]Record
	nextID   int
	failList bool
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[string][]Record{}}
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) setFailList(fail bool) {
	m.mu.Lock()
	m.failList = fail
	m.mu.Unlock()
}

func (m *memBackend) List(ctx context.Context, path string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errOffline
	}
	return CloneRecords(m.data[path]), nil
}

func (m *memBackend) Insert(ctx context.Context, path string, fields map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("rec-%03d", m.nextID)
	m.data[path] = append(m.data[path], Record{ID: id, Fields: fields})
	return id, nil
}

func (m *memBackend) Merge(ctx context.Context, path, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.data[path] {
		if r.ID == id {
			for k, v := range fields {
				m.data[path][i].Fields[k] = v
			}
			return nil
		}
	}
	return types.ErrNotFound
}

func (m *memBackend) Replace(ctx context.Context, path string, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = recs
	return nil
}

func (m *memBackend) Remove(ctx context.Context, path, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.data[path] {
		if r.ID == id {
			m.data[path] = append(m.data[path][:i], m.data[path][i+1:]...)
			return nil
		}
	}
	return types.ErrNotFound
}

func (m *memBackend) Ping(ctx context.Context) error { return nil }

// recorder collects deliveries for one subscription.
type recorder struct {
	snaps chan Snapshot
	errs  chan error
}

func newRecorder() *recorder {
	return &recorder{snaps: make(chan Snapshot, 64), errs: make(chan error, 64)}
}

func (r *recorder) onChange(s Snapshot) { r.snaps <- s }
func (r *recorder) onError(err error)   { r.errs <- err }

func (r *recorder) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-r.snaps:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

// until reads snapshots until one holds n records.
func (r *recorder) until(t *testing.T, n int) Snapshot {
	t.Helper()
	for {
		s := r.next(t)
		if len(s.Records) == n {
			return s
		}
	}
}

func TestSubscribeDeliversInitialAndChangedSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	s := New(newMemBackend())
	rec := newRecorder()

	unsubscribe := s.Subscribe(PathHomeForm, rec.onChange, rec.onError)

	first := rec.next(t)
	assert.Equal(t, PathHomeForm, first.Path)
	assert.Empty(t, first.Records)

	id, err := s.Create(ctx, PathHomeForm, map[string]any{"name": "Asha", FieldTimestamp: int64(100)})
	require.NoError(t, err)

	second := rec.until(t, 1)
	assert.Equal(t, id, second.Records[0].ID)
	assert.Greater(t, second.Version, first.Version)

	unsubscribe()
	s.Wait()
	assert.Equal(t, 0, s.Subscribers(PathHomeForm))
}

func TestSnapshotsArriveInVersionOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	s := New(newMemBackend())
	rec := newRecorder()
	unsubscribe := s.Subscribe(PathContactEntries, rec.onChange, rec.onError)
	rec.next(t)

	for i := range 20 {
		_, err := s.Create(ctx, PathContactEntries, map[string]any{"n": i})
		require.NoError(t, err)
	}

	var last uint64
	for {
		snap := rec.next(t)
		assert.Greater(t, snap.Version, last)
		last = snap.Version
		if len(snap.Records) == 20 {
			break
		}
	}

	unsubscribe()
	s.Wait()
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	s := New(newMemBackend())
	rec := newRecorder()
	unsubscribe := s.Subscribe(PathPopupForms, rec.onChange, rec.onError)
	rec.next(t)

	unsubscribe()
	unsubscribe()
	s.Wait()

	_, err := s.Create(ctx, PathPopupForms, map[string]any{"name": "late"})
	require.NoError(t, err)

	assert.Empty(t, rec.snaps)
	assert.Equal(t, 0, s.Subscribers(PathPopupForms))
}

func TestSecondSubscriberGetsCachedSnapshot(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	s := New(newMemBackend())
	a, b := newRecorder(), newRecorder()

	stopA := s.Subscribe(PathReports, a.onChange, a.onError)
	a.next(t)
	_, err := s.Create(ctx, PathReports, map[string]any{"day": "monday"})
	require.NoError(t, err)
	a.until(t, 1)

	stopB := s.Subscribe(PathReports, b.onChange, b.onError)
	got := b.next(t)
	assert.Len(t, got.Records, 1)
	assert.Equal(t, 2, s.Subscribers(PathReports))

	stopA()
	stopB()
	s.Wait()
}

func TestDeliveredSnapshotsAreCopies(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	s := New(newMemBackend())
	a, b := newRecorder(), newRecorder()
	stopA := s.Subscribe(PathHomeForm, a.onChange, a.onError)
	stopB := s.Subscribe(PathHomeForm, b.onChange, b.onError)

	_, err := s.Create(ctx, PathHomeForm, map[string]any{"name": "Ravi"})
	require.NoError(t, err)

	fromA := a.until(t, 1)
	fromA.Records[0].Fields["name"] = "mutated"
	fromB := b.until(t, 1)
	assert.Equal(t, "Ravi", fromB.Records[0].Fields["name"])

	stopA()
	stopB()
	s.Wait()
}

func TestReadErrorSurfacedOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	backend := newMemBackend()
	backend.setFailList(true)
	s := New(backend)
	rec := newRecorder()
	unsubscribe := s.Subscribe(PathInvestorFeedback, rec.onChange, rec.onError)

	select {
	case err := <-rec.errs:
		var readErr *types.ReadError
		require.ErrorAs(t, err, &readErr)
		assert.Equal(t, PathInvestorFeedback, readErr.Path)
		assert.ErrorIs(t, err, errOffline)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read error")
	}

	for range 3 {
		_, err := s.Create(ctx, PathInvestorFeedback, map[string]any{"rating": 5})
		require.NoError(t, err)
	}

	backend.setFailList(false)
	_, err := s.Create(ctx, PathInvestorFeedback, map[string]any{"rating": 4})
	require.NoError(t, err)
	rec.until(t, 4)

	assert.Empty(t, rec.errs)

	unsubscribe()
	s.Wait()
}

func TestReadErrorSurfacedAgainAfterRecovery(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	backend := newMemBackend()
	backend.setFailList(true)
	s := New(backend)
	rec := newRecorder()
	unsubscribe := s.Subscribe(PathInvestorFeedback, rec.onChange, rec.onError)

	nextErr := func() error {
		t.Helper()
		select {
		case err := <-rec.errs:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for read error")
			return nil
		}
	}

	assert.ErrorIs(t, nextErr(), errOffline)

	backend.setFailList(false)
	_, err := s.Create(ctx, PathInvestorFeedback, map[string]any{"rating": 3})
	require.NoError(t, err)
	rec.until(t, 1)

	backend.setFailList(true)
	_, err = s.Create(ctx, PathInvestorFeedback, map[string]any{"rating": 2})
	require.NoError(t, err)
	assert.ErrorIs(t, nextErr(), errOffline)

	_, err = s.Create(ctx, PathInvestorFeedback, map[string]any{"rating": 1})
	require.NoError(t, err)

	unsubscribe()
	s.Wait()
	assert.Empty(t, rec.errs)
}

func TestUpdateKeepsTimestampAndID(t *testing.T) {
	ctx := context.Background()
	s := New(newMemBackend())

	id, err := s.Create(ctx, PathContactEntries, map[string]any{"name": "Meera", FieldTimestamp: int64(100)})
	require.NoError(t, err)

	err = s.Update(ctx, PathContactEntries, id, map[string]any{
		"name":         "Meera K",
		FieldTimestamp: int64(999),
		FieldID:        "other",
	})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, PathContactEntries)
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, id, snap.Records[0].ID)
	assert.Equal(t, "Meera K", snap.Records[0].Fields["name"])
	assert.EqualValues(t, 100, snap.Records[0].Fields[FieldTimestamp])
	assert.NotContains(t, snap.Records[0].Fields, FieldID)
}

func TestWriteErrorsWrapBackendFailures(t *testing.T) {
	ctx := context.Background()
	s := New(newMemBackend())

	err := s.Update(ctx, PathHomeForm, "missing", map[string]any{"name": "x"})
	var writeErr *types.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "update", writeErr.Op)
	assert.True(t, writeErr.NotFound())

	err = s.Delete(ctx, PathHomeForm, "missing")
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "delete", writeErr.Op)
	assert.True(t, types.IsNotFound(err))
}

func TestSnapshotReadError(t *testing.T) {
	backend := newMemBackend()
	backend.setFailList(true)
	s := New(backend)

	_, err := s.Snapshot(context.Background(), PathReports)
	var readErr *types.ReadError
	assert.ErrorAs(t, err, &readErr)
}
