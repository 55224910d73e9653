// mirror.go
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

package mirror

import (
	"sync"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
)

// Source delivers collection snapshots. *store.Store satisfies it.
type Source interface {
	Subscribe(path string, onChange func(store.Snapshot), onError func(error)) func()
}

// Mirror keeps the latest snapshot of one collection path for a single owner.
// Each delivery replaces the whole record sequence.
type Mirror struct {
	path string

	mu          sync.RWMutex
	records     []store.Record
	version     uint64
	err         error
	onUpdate    func()
	unsubscribe func()
	attached    bool
	closed      bool

	closeOnce sync.Once
}

// New returns an unattached mirror of path.
func New(path string) *Mirror {
	return &Mirror{path: path, records: []store.Record{}}
}

// Watch returns a mirror of path already attached to src, calling onUpdate after each change.
func Watch(src Source, path string, onUpdate func()) *Mirror {
	m := New(path)
	m.OnUpdate(onUpdate)
	m.Attach(src)
	return m
}

// Path returns the mirrored collection path.
func (m *Mirror) Path() string {
	return m.path
}

// OnUpdate sets the hook called after every snapshot or read error.
// The hook runs on the delivery goroutine and must not block for long.
func (m *Mirror) OnUpdate(fn func()) {
	m.mu.Lock()
	m.onUpdate = fn
	m.mu.Unlock()
}

// Attach subscribes to src. A mirror subscribes at most once; later calls
// and calls after Close do nothing.
func (m *Mirror) Attach(src Source) {
	m.mu.Lock()
	if m.attached || m.closed {
		m.mu.Unlock()
		return
	}
	m.attached = true
	m.mu.Unlock()

	unsubscribe := src.Subscribe(m.path, m.apply, m.fail)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()
}

func (m *Mirror) apply(snap store.Snapshot) {
	m.mu.Lock()
	if m.closed || (m.version != 0 && snap.Version <= m.version) {
		m.mu.Unlock()
		return
	}
	m.version = snap.Version
	if snap.Records == nil {
		m.records = []store.Record{}
	} else {
		m.records = snap.Records
	}
	m.err = nil
	hook := m.onUpdate
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (m *Mirror) fail(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.err = err
	hook := m.onUpdate
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Records returns a copy of the current records.
func (m *Mirror) Records() []store.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return store.CloneRecords(m.records)
}

// Version returns the version of the mirrored snapshot, zero before the first one.
func (m *Mirror) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Err returns the read error reported by the source, if any.
func (m *Mirror) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Close unsubscribes and drops the mirrored state. Safe to call more than once.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		unsubscribe := m.unsubscribe
		m.unsubscribe = nil
		m.records = []store.Record{}
		m.err = nil
		m.onUpdate = nil
		m.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
	})
}
