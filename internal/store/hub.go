// hub.go
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
	"sync"
)

// topic is the pub/sub state for one collection path: the cached latest
// snapshot, its version counter and the live subscribers.
type topic struct {
	path string

	// refreshMu serializes backend reads so versions follow read order.
	refreshMu sync.Mutex

	mu       sync.Mutex
	version  uint64
	snapshot *Snapshot
	subs     map[uint64]*subscriber
	nextID   uint64
}

func newTopic(path string) *topic {
	return &topic{path: path, subs: make(map[uint64]*subscriber)}
}

// publish assigns the next version to records, caches the snapshot and
// offers it to every subscriber.
func (t *topic) publish(records []Record) Snapshot {
	t.mu.Lock()
	t.version++
	snap := Snapshot{Path: t.path, Version: t.version, Records: records}
	// Only cache while someone listens; an unwatched path is re-read on the next subscribe.
	if len(t.subs) > 0 {
		t.snapshot = &snap
	}
	subs := t.subscribers()
	t.mu.Unlock()

	for _, s := range subs {
		s.offer(snap)
	}
	return snap
}

// fail offers a read failure to every subscriber.
func (t *topic) fail(err error) {
	t.mu.Lock()
	subs := t.subscribers()
	t.mu.Unlock()

	for _, s := range subs {
		s.offerErr(err)
	}
}

// subscribers must be called with t.mu held.
func (t *topic) subscribers() []*subscriber {
	out := make([]*subscriber, 0, len(t.subs))
	for _, s := range t.subs {
		out = append(out, s)
	}
	return out
}

func (t *topic) add(s *subscriber) (cached *Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	s.id = t.nextID
	t.subs[s.id] = s
	return t.snapshot
}

func (t *topic) remove(id uint64) {
	t.mu.Lock()
	delete(t.subs, id)
	if len(t.subs) == 0 {
		t.snapshot = nil
	}
	t.mu.Unlock()
}

func (t *topic) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// subscriber delivers snapshots to one listener from its own goroutine.
// The mailbox holds only the newest pending snapshot, so bursts coalesce.
type subscriber struct {
	id       uint64
	onChange func(Snapshot)
	onError  func(error)

	mu         sync.Mutex
	pending    *Snapshot
	pendingErr error
	delivered  uint64
	errored    bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newSubscriber(onChange func(Snapshot), onError func(error)) *subscriber {
	return &subscriber{
		onChange: onChange,
		onError:  onError,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (s *subscriber) offer(snap Snapshot) {
	s.mu.Lock()
	if s.pending == nil || snap.Version > s.pending.Version {
		s.pending = &snap
	}
	// A successful read supersedes an error not yet delivered.
	s.pendingErr = nil
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber) offerErr(err error) {
	s.mu.Lock()
	s.pendingErr = err
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *subscriber) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		snap, err := s.pending, s.pendingErr
		s.pending, s.pendingErr = nil, nil
		reportErr := err != nil && !s.errored
		deliver := snap != nil && snap.Version > s.delivered
		if deliver {
			s.delivered = snap.Version
		}
		// One report per outage; a snapshot without a later error ends it.
		switch {
		case err != nil:
			s.errored = true
		case snap != nil:
			s.errored = false
		}
		s.mu.Unlock()

		if reportErr && s.onError != nil && !s.stopped() {
			s.onError(err)
		}
		if deliver && !s.stopped() {
			s.onChange(Snapshot{Path: snap.Path, Version: snap.Version, Records: CloneRecords(snap.Records)})
		}
	}
}

func (s *subscriber) stop() {
	close(s.done)
}
