// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package streamtable

import (
	"sync"
	"testing"
)

func TestTable_SetGetRemove(t *testing.T) {
	tbl := New[string]()

	tbl.Set(1, "writer-1")
	got, ok := tbl.Get(1)
	if !ok || got != "writer-1" {
		t.Fatalf("expected writer-1, got %q ok=%v", got, ok)
	}

	removed, ok := tbl.Remove(1)
	if !ok || removed != "writer-1" {
		t.Fatalf("Remove: expected writer-1, got %q ok=%v", removed, ok)
	}

	if _, ok := tbl.Get(1); ok {
		t.Fatalf("expected Get after Remove to report not-found")
	}
}

func TestTable_RemoveIdempotent(t *testing.T) {
	tbl := New[int]()
	tbl.Set(9, 100)

	if _, ok := tbl.Remove(9); !ok {
		t.Fatalf("first Remove should succeed")
	}
	if _, ok := tbl.Remove(9); ok {
		t.Fatalf("second Remove of the same id must report ok=false, not error")
	}
}

func TestTable_ConcurrentDistinctIDs(t *testing.T) {
	tbl := New[int]()
	var wg sync.WaitGroup

	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			tbl.Set(id, int(id)*2)
		}(uint32(i))
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		v, ok := tbl.Get(uint32(i))
		if !ok || v != i*2 {
			t.Errorf("id %d: expected %d, got %d ok=%v", i, i*2, v, ok)
		}
	}
}
