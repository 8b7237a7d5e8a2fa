// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pool implements a single-shard fixed-size slab pool: a
// free list of equally sized []byte buffers bounded by a pooled-count
// limit P and a total-allocated limit T, with P <= T.
//
// The free list is modeled as an explicit slice-backed stack guarded
// by a mutex rather than an intrusive in-slab pointer chain -- Go
// slices already own their backing array, so threading a "next free"
// pointer through slab bytes would buy nothing and would defeat the
// race detector and bounds checks. The external contract (O(1) alloc/
// free, syscall-free critical section) is unchanged.
package pool

import (
	"errors"
	"sync"
	"time"
)

// ErrInvariant is returned when a limit change cannot be honored
// without revoking slabs a caller still holds.
var ErrInvariant = errors.New("ctxkit/pool: invariant violation")

// ErrInUse is returned by Cleanup(true) when outstanding slabs remain.
var ErrInUse = errors.New("ctxkit/pool: slabs still outstanding")

// Slab is a fixed-size buffer obtained from a Pool.
type Slab = []byte

// Pool is a single-shard slab pool. The zero value is not usable;
// construct with New.
type Pool struct {
	mu sync.Mutex

	slabSize int
	free     []Slab

	pooled      int
	outstanding int
	poolLimit   int
	totalLimit  int
}

// New returns a Pool handing out slabs of slabSize bytes, allowing up
// to poolLimit slabs to sit idle in the free list and up to totalLimit
// slabs to exist at once (poolLimit <= totalLimit).
func New(slabSize, poolLimit, totalLimit int) *Pool {
	if poolLimit > totalLimit {
		poolLimit = totalLimit
	}
	return &Pool{
		slabSize:   slabSize,
		poolLimit:  poolLimit,
		totalLimit: totalLimit,
	}
}

// total returns the current number of slabs in existence, pooled or
// outstanding. Caller must hold p.mu.
func (p *Pool) total() int { return p.pooled + p.outstanding }

// TryAlloc returns a slab, or ok=false iff the free list is empty and
// the total limit is currently reached. It never blocks beyond a
// single mutex acquisition.
func (p *Pool) TryAlloc() (slab Slab, ok bool) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		slab = p.free[n-1]
		p.free = p.free[:n-1]
		p.pooled--
		p.outstanding++
		p.mu.Unlock()
		return slab, true
	}
	if p.total() >= p.totalLimit {
		p.mu.Unlock()
		return nil, false
	}
	p.outstanding++
	p.mu.Unlock()
	return make(Slab, p.slabSize), true
}

// TryAllocWithTimeout behaves like TryAlloc but bounds how long it
// will wait to acquire the internal mutex. busy reports whether the
// deadline was reached before the lock could be taken; acquired
// reports the elapsed wait. When busy is true, ok is always false.
func (p *Pool) TryAllocWithTimeout(timeout time.Duration) (slab Slab, ok, busy bool, acquired time.Duration) {
	start := time.Now()
	const pollInterval = 50 * time.Microsecond
	for {
		if p.mu.TryLock() {
			break
		}
		if time.Since(start) >= timeout {
			return nil, false, true, timeout
		}
		time.Sleep(pollInterval)
	}

	acquired = time.Since(start)

	if n := len(p.free); n > 0 {
		slab = p.free[n-1]
		p.free = p.free[:n-1]
		p.pooled--
		p.outstanding++
		p.mu.Unlock()
		return slab, true, false, acquired
	}
	if p.total() >= p.totalLimit {
		p.mu.Unlock()
		return nil, false, false, acquired
	}
	p.outstanding++
	p.mu.Unlock()
	return make(Slab, p.slabSize), true, false, acquired
}

// Free returns slab to the pool. slab must have been obtained from
// this same Pool; passing any other slice is undefined behavior, per
// spec. If the free list is already at its pool limit, slab is
// released to the garbage collector instead of being retained.
func (p *Pool) Free(slab Slab) {
	p.mu.Lock()
	p.outstanding--
	if p.pooled < p.poolLimit {
		p.free = append(p.free, slab)
		p.pooled++
	}
	p.mu.Unlock()
}

// SetPoolLimit changes P, releasing pooled surplus immediately if the
// new limit is smaller than the current pooled count.
func (p *Pool) SetPoolLimit(newLimit int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if newLimit > p.totalLimit {
		return ErrInvariant
	}
	p.poolLimit = newLimit
	p.shrinkFreeListLocked()
	return nil
}

// SetTotalLimit changes T. If newLimit is below the current total, it
// first releases pooled surplus down to max(0, newLimit-outstanding);
// only if outstanding slabs alone still exceed newLimit after that
// does it fail with ErrInvariant, leaving all limits and the free
// list untouched.
func (p *Pool) SetTotalLimit(newLimit int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if newLimit < p.outstanding {
		return ErrInvariant
	}

	allowedPooled := newLimit - p.outstanding
	if allowedPooled < p.poolLimit {
		p.poolLimit = allowedPooled
	}
	p.totalLimit = newLimit
	p.shrinkFreeListLocked()
	return nil
}

// shrinkFreeListLocked drops free-list entries down to p.poolLimit.
// Caller must hold p.mu.
func (p *Pool) shrinkFreeListLocked() {
	if p.pooled <= p.poolLimit {
		return
	}
	drop := p.pooled - p.poolLimit
	p.free = p.free[:len(p.free)-drop]
	p.pooled -= drop
}

// Cleanup releases every currently pooled (idle) slab. If finish is
// true, it additionally clamps the total limit to zero, permanently
// retiring the pool, and fails with ErrInUse if slabs are still
// outstanding -- the free-list release happens first regardless of
// outcome, matching the two-phase shutdown of the original
// implementation.
func (p *Pool) Cleanup(finish bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free = nil
	p.pooled = 0

	if !finish {
		return nil
	}
	if p.outstanding > 0 {
		return ErrInUse
	}
	p.totalLimit = 0
	p.poolLimit = 0
	return nil
}

// Stats reports the pool's current occupancy.
type Stats struct {
	Pooled      int
	Outstanding int
	PoolLimit   int
	TotalLimit  int
}

// Stats returns a snapshot of the pool's current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Pooled:      p.pooled,
		Outstanding: p.outstanding,
		PoolLimit:   p.poolLimit,
		TotalLimit:  p.totalLimit,
	}
}
