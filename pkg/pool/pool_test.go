// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pool

import "testing"

func TestAllocFreeLeavesOutstandingUnchanged(t *testing.T) {
	p := New(64, 2, 3)
	slab, ok := p.TryAlloc()
	if !ok {
		t.Fatalf("TryAlloc() ok = false")
	}
	before := p.Stats().Outstanding
	p.Free(slab)
	slab2, ok := p.TryAlloc()
	if !ok {
		t.Fatalf("second TryAlloc() ok = false")
	}
	after := p.Stats().Outstanding
	if before != after {
		t.Fatalf("outstanding changed across alloc/free pair: %d -> %d", before, after)
	}
	p.Free(slab2)
}

func TestPoolLimitExhaustion(t *testing.T) {
	p := New(64, 3, 3)
	var slabs []Slab
	for i := 0; i < 3; i++ {
		s, ok := p.TryAlloc()
		if !ok {
			t.Fatalf("TryAlloc() #%d ok = false, want true", i)
		}
		slabs = append(slabs, s)
	}
	if _, ok := p.TryAlloc(); ok {
		t.Fatalf("fourth TryAlloc() ok = true, want false")
	}
	p.Free(slabs[0])
	if _, ok := p.TryAlloc(); !ok {
		t.Fatalf("TryAlloc() after Free ok = false, want true")
	}
}

func TestSetTotalLimitShrinksPooledSurplus(t *testing.T) {
	p := New(64, 5, 5)
	var slabs []Slab
	for i := 0; i < 5; i++ {
		s, _ := p.TryAlloc()
		slabs = append(slabs, s)
	}
	for _, s := range slabs {
		p.Free(s)
	}
	if st := p.Stats(); st.Pooled != 5 {
		t.Fatalf("Pooled = %d, want 5", st.Pooled)
	}

	if err := p.SetTotalLimit(2); err != nil {
		t.Fatalf("SetTotalLimit(2) error: %v", err)
	}
	st := p.Stats()
	if st.Pooled != 2 || st.TotalLimit != 2 {
		t.Fatalf("Stats() = %+v, want Pooled=2 TotalLimit=2", st)
	}
}

func TestSetTotalLimitRejectsImpossibleShrink(t *testing.T) {
	p := New(64, 5, 5)
	s1, _ := p.TryAlloc()
	s2, _ := p.TryAlloc()
	defer p.Free(s1)
	defer p.Free(s2)

	if err := p.SetTotalLimit(1); err != ErrInvariant {
		t.Fatalf("SetTotalLimit(1) error = %v, want ErrInvariant", err)
	}
}

func TestCleanupFinishReportsInUse(t *testing.T) {
	p := New(64, 2, 2)
	slab, _ := p.TryAlloc()

	if err := p.Cleanup(true); err != ErrInUse {
		t.Fatalf("Cleanup(true) error = %v, want ErrInUse", err)
	}
	if st := p.Stats(); st.Pooled != 0 {
		t.Fatalf("Pooled after failed Cleanup(true) = %d, want 0", st.Pooled)
	}

	p.Free(slab)
	if err := p.Cleanup(true); err != nil {
		t.Fatalf("Cleanup(true) with no outstanding slabs error: %v", err)
	}
	if _, ok := p.TryAlloc(); ok {
		t.Fatalf("TryAlloc() after retiring Cleanup(true) ok = true")
	}
}

func TestTryAllocWithTimeoutReportsBusy(t *testing.T) {
	p := New(64, 1, 1)
	p.mu.Lock()
	defer p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok, busy, _ := p.TryAllocWithTimeout(0); ok || !busy {
			t.Errorf("TryAllocWithTimeout() ok=%v busy=%v, want false true", ok, busy)
		}
	}()
	<-done
}
