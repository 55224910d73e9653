// store.go
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

package store

import (
	"context"
	"maps"
	"sync"

	"github.com/localnerve/jam-build-collectionsdb/internal/logger"
	"github.com/localnerve/jam-build-collectionsdb/internal/metrics"
	"github.com/localnerve/jam-build-collectionsdb/internal/types"
)

// Store is the single mediator between the service and its Backend.
// Every successful write re-reads the written path and pushes the full
// snapshot to that path's subscribers.
type Store struct {
	backend Backend

	mu     sync.Mutex
	topics map[string]*topic

	// wg tracks subscriber delivery goroutines.
	wg sync.WaitGroup
}

// New returns a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend, topics: make(map[string]*topic)}
}

// Backend returns the wrapped backend.
func (s *Store) Backend() Backend {
	return s.backend
}

func (s *Store) topic(path string) *topic {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[path]
	if !ok {
		t = newTopic(path)
		s.topics[path] = t
	}
	return t
}

// Subscribe registers a listener for path. onChange receives the entire
// current snapshot right away and again after every change; onError receives
// a *types.ReadError at most once. The returned function stops delivery and
// may be called more than once.
func (s *Store) Subscribe(path string, onChange func(Snapshot), onError func(error)) func() {
	t := s.topic(path)
	sub := newSubscriber(onChange, onError)

	s.wg.Add(1)
	go sub.run(&s.wg)

	cached := t.add(sub)
	metrics.Subscribers.WithLabelValues(path).Inc()
	if cached != nil {
		sub.offer(*cached)
	} else {
		go s.refresh(context.Background(), path)
	}

	return func() {
		sub.once.Do(func() {
			sub.stop()
			t.remove(sub.id)
			metrics.Subscribers.WithLabelValues(path).Dec()
		})
	}
}

// Subscribers returns the number of live listeners on path.
func (s *Store) Subscribers(path string) int {
	return s.topic(path).count()
}

// Wait blocks until every unsubscribed listener's goroutine has exited.
// Tests use it to prove no delivery goroutine outlives its subscription.
func (s *Store) Wait() {
	s.wg.Wait()
}

// refresh reads path from the backend and publishes the result. A path with
// no subscribers is not read at all.
func (s *Store) refresh(ctx context.Context, path string) {
	t := s.topic(path)
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	if t.count() == 0 {
		return
	}

	records, err := s.backend.List(ctx, path)
	if err != nil {
		readErr := &types.ReadError{Path: path, Err: err}
		logger.WithCollection(path).WithError(err).Warn("snapshot read failed")
		t.fail(readErr)
		return
	}

	snap := t.publish(records)
	metrics.Publishes.WithLabelValues(path).Inc()
	logger.WithCollection(path).WithField("version", snap.Version).Debug("snapshot published")
}

// changed publishes path after a write. The caller's cancellation does not
// stop the publish, the write already happened.
func (s *Store) changed(ctx context.Context, path string) {
	s.refresh(context.WithoutCancel(ctx), path)
}

// Snapshot reads the current state of path once.
func (s *Store) Snapshot(ctx context.Context, path string) (Snapshot, error) {
	t := s.topic(path)
	records, err := s.backend.List(ctx, path)
	if err != nil {
		return Snapshot{}, &types.ReadError{Path: path, Err: err}
	}
	t.mu.Lock()
	version := t.version
	t.mu.Unlock()
	return Snapshot{Path: path, Version: version, Records: records}, nil
}

// Create appends a record to path and returns its identifier.
// The store does not validate the record's shape.
func (s *Store) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	id, err := s.backend.Insert(ctx, path, maps.Clone(fields))
	if err != nil {
		return "", &types.WriteError{Op: "create", Path: path, Err: err}
	}
	s.changed(ctx, path)
	return id, nil
}

// Update merges fields into one record. The timestamp set at creation is
// immutable, so a timestamp in fields is ignored.
func (s *Store) Update(ctx context.Context, path, id string, fields map[string]any) error {
	partial := maps.Clone(fields)
	delete(partial, FieldTimestamp)
	delete(partial, FieldID)

	if err := s.backend.Merge(ctx, path, id, partial); err != nil {
		return &types.WriteError{Op: "update", Path: path, ID: id, Err: err}
	}
	s.changed(ctx, path)
	return nil
}

// ReplaceAll swaps the whole collection, used for the fixed complaint table.
func (s *Store) ReplaceAll(ctx context.Context, path string, recs []Record) error {
	if err := s.backend.Replace(ctx, path, CloneRecords(recs)); err != nil {
		return &types.WriteError{Op: "replace", Path: path, Err: err}
	}
	s.changed(ctx, path)
	return nil
}

// Delete removes one record. Removing an absent record returns a
// *types.WriteError whose NotFound reports true.
func (s *Store) Delete(ctx context.Context, path, id string) error {
	if err := s.backend.Remove(ctx, path, id); err != nil {
		return &types.WriteError{Op: "delete", Path: path, ID: id, Err: err}
	}
	s.changed(ctx, path)
	return nil
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
