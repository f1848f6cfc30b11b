// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package streamtable implements the concurrent stream-id -> writer-handle
// map both dispatchers route frames through: Get/Set/Remove, no iteration
// on the hot path, Set happens-before any subsequent Get on the same id.
package streamtable

import "sync"

// Table is a concurrent map from stream-id to a writer handle of type T.
// Lookups outnumber inserts by a wide margin on the Data-frame path, so an
// RWMutex-guarded map suffices; the generic type gives callers a typed
// writer handle back from Get/Remove without a type assertion.
type Table[T any] struct {
	mu   sync.RWMutex
	rows map[uint32]T
}

// New creates an empty Table.
func New[T any]() *Table[T] {
	return &Table[T]{rows: make(map[uint32]T)}
}

// Set installs (or replaces) the writer handle for id. Set happens-before
// any subsequent Get on the same id observed by the same goroutine that
// called Set, or any goroutine synchronized with it.
func (t *Table[T]) Set(id uint32, handle T) {
	t.mu.Lock()
	t.rows[id] = handle
	t.mu.Unlock()
}

// Get returns the writer handle for id, if any.
func (t *Table[T]) Get(id uint32) (handle T, ok bool) {
	t.mu.RLock()
	handle, ok = t.rows[id]
	t.mu.RUnlock()
	return handle, ok
}

// Remove deletes and returns the writer handle for id, if present. It is
// idempotent: removing an id that is no longer in the table (e.g. a
// duplicate Close racing a prior Close) returns ok=false rather than an
// error, so callers can tell "already gone" from "still here" without
// double-emitting a wire Close.
func (t *Table[T]) Remove(id uint32) (handle T, ok bool) {
	t.mu.Lock()
	handle, ok = t.rows[id]
	if ok {
		delete(t.rows, id)
	}
	t.mu.Unlock()
	return handle, ok
}

// Len returns the number of installed entries. Used only for diagnostics
// and tests, never on the hot path.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
