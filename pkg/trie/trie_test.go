// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package trie

import (
	"bytes"
	"math/bits"
	"testing"
)

func TestFindInsertRemoveRoundTrip(t *testing.T) {
	tr := New[int]()

	if _, ok := tr.Find([]byte("abc")); ok {
		t.Fatalf("Find on empty trie returned ok=true")
	}

	if _, inserted := tr.Insert([]byte("abc"), 1); !inserted {
		t.Fatalf("first insert of abc reported not inserted")
	}
	if _, inserted := tr.Insert([]byte("abc"), 99); inserted {
		t.Fatalf("re-insert of abc reported inserted")
	}
	if v, ok := tr.Find([]byte("abc")); !ok || v != 1 {
		t.Fatalf("Find(abc) = %v, %v; want 1, true", v, ok)
	}

	if !tr.Remove([]byte("abc")) {
		t.Fatalf("Remove(abc) = false")
	}
	if tr.Remove([]byte("abc")) {
		t.Fatalf("second Remove(abc) = true")
	}
	if _, ok := tr.Find([]byte("abc")); ok {
		t.Fatalf("Find(abc) after removal reported ok=true")
	}
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tr.Len())
	}
}

// TestBranchSplitAndCondense exercises the edge-split-on-divergence
// path ("abc"/"abd" forces a split at "ab") and its inverse on
// removal: deleting the prefix value "ab" must not leave a degree-1
// internal node behind.
func TestBranchSplitAndCondense(t *testing.T) {
	tr := New[int]()
	tr.Insert([]byte("abc"), 1)
	tr.Insert([]byte("abd"), 2)
	tr.Insert([]byte("ab"), 3)

	wantKeys := []string{"ab", "abc", "abd"}
	var gotKeys []string
	for it := tr.Iter(); !it.AtEnd(); it.Next() {
		gotKeys = append(gotKeys, string(it.Key()))
	}
	if !equalStrings(gotKeys, wantKeys) {
		t.Fatalf("iteration order = %v, want %v", gotKeys, wantKeys)
	}

	if !tr.Remove([]byte("ab")) {
		t.Fatalf("Remove(ab) = false")
	}
	if _, ok := tr.Find([]byte("abc")); !ok {
		t.Fatalf("Find(abc) after removing ab = false")
	}
	if _, ok := tr.Find([]byte("abd")); !ok {
		t.Fatalf("Find(abd) after removing ab = false")
	}

	gotKeys = nil
	for it := tr.Iter(); !it.AtEnd(); it.Next() {
		gotKeys = append(gotKeys, string(it.Key()))
	}
	want := []string{"abc", "abd"}
	if !equalStrings(gotKeys, want) {
		t.Fatalf("iteration order after remove = %v, want %v", gotKeys, want)
	}

	for it := tr.IterStructural(); !it.AtEnd(); it.Next() {
		if !it.HasValue() && it.cur != tr.root && bits.OnesCount16(it.cur.bitmap) < 2 {
			t.Fatalf("degree-1 internal node survives at key %q", it.Key())
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLowerBoundAndInsertWithHint(t *testing.T) {
	tr := New[int]()
	tr.Insert([]byte("net.cpu.load"), 1)
	tr.Insert([]byte("net.cpu.temp"), 2)

	pos, exact := tr.LowerBound([]byte("net.cpu"))
	if exact {
		t.Fatalf("LowerBound(net.cpu) reported exact match")
	}

	if _, inserted := tr.InsertWithHint([]byte("net.cpu.freq"), 3, pos); !inserted {
		t.Fatalf("InsertWithHint(net.cpu.freq) reported not inserted")
	}
	if v, ok := tr.Find([]byte("net.cpu.freq")); !ok || v != 3 {
		t.Fatalf("Find(net.cpu.freq) = %v, %v; want 3, true", v, ok)
	}

	pos2, exact2 := tr.LowerBound([]byte("net.cpu.load"))
	if !exact2 {
		t.Fatalf("LowerBound(net.cpu.load) reported no exact match")
	}
	if v := pos2.n.value; v != 1 {
		t.Fatalf("LowerBound position value = %v, want 1", v)
	}
}

func TestIteratorPrevSymmetricWithNext(t *testing.T) {
	tr := New[int]()
	keys := [][]byte{[]byte("a"), []byte("ab"), []byte("abc"), []byte("b")}
	for i, k := range keys {
		tr.Insert(k, i)
	}

	var forward [][]byte
	it := tr.IterStructural()
	for {
		forward = append(forward, append([]byte(nil), it.Key()...))
		if !it.Next() {
			break
		}
	}

	// The forward walk leaves it at end, where Prev reports false;
	// restart and step to the last node before walking back.
	it = tr.IterStructural()
	for i := 1; i < len(forward); i++ {
		it.Next()
	}

	var backward [][]byte
	for {
		backward = append(backward, append([]byte(nil), it.Key()...))
		if !it.Prev() {
			break
		}
	}

	if len(forward) != len(backward) {
		t.Fatalf("forward visited %d nodes, backward visited %d", len(forward), len(backward))
	}
	for i := range forward {
		if !bytes.Equal(forward[i], backward[len(backward)-1-i]) {
			t.Fatalf("forward[%d]=%q != backward[%d]=%q", i, forward[i], len(backward)-1-i, backward[len(backward)-1-i])
		}
	}
}
