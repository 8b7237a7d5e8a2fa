// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package autopool implements an auto-scaling, multi-shard slab pool:
// a headed doubly-linked list of shard entries, kept sorted ascending
// by observed lock-acquisition latency, that spawns an additional
// shard under contention and reaps idle empty ones.
//
// The list discipline (insertFront/unlink/corruption assertions) is
// the same one an MRU cache list would use, re-purposed from MRU
// ordering keyed by a map to latency ordering walked by the rare
// global-mutex holder; there is no per-shard index, since lookups
// here are always "the head" or "the shard named in a handle", never
// by key.
package autopool

import (
	"errors"
	"sync"
	"time"

	"github.com/vencik/ctxkit/pkg/pool"
	"golang.org/x/time/rate"
)

// ErrLimit is returned by Alloc when the global outstanding-object
// limit has been reached, or when neither the chosen shard nor a
// freshly spawned one can hand out a slab.
var ErrLimit = errors.New("ctxkit/autopool: global limit reached")

// Re-exported so callers checking pool-level failures don't need to
// import pkg/pool themselves.
var (
	ErrInvariant = pool.ErrInvariant
	ErrInUse     = pool.ErrInUse
)

// slidingAverage is a fixed-capacity ring-buffer average, implementing
// only the minimal contract an autopool shard needs rather than a
// general-purpose averaging utility.
type slidingAverage struct {
	samples    []time.Duration
	pos, count int
	sum        time.Duration
}

func newSlidingAverage(window int) *slidingAverage {
	if window < 1 {
		window = 1
	}
	return &slidingAverage{samples: make([]time.Duration, window)}
}

func (s *slidingAverage) add(d time.Duration) {
	if s.count < len(s.samples) {
		s.sum += d
		s.samples[s.pos] = d
		s.count++
	} else {
		s.sum += d - s.samples[s.pos]
		s.samples[s.pos] = d
	}
	s.pos = (s.pos + 1) % len(s.samples)
}

func (s *slidingAverage) avg() time.Duration {
	if s.count == 0 {
		return 0
	}
	return s.sum / time.Duration(s.count)
}

type shardEntry struct {
	pool  *pool.Pool
	inUse bool
	avg   *slidingAverage

	prev, next *shardEntry
}

// Handle identifies a slab along with the shard it came from, so Free
// can route directly to the owning shard without a search: instead of
// prepending a raw shard pointer to the byte buffer (a layout trick
// that needs pointer arithmetic to undo), the shard reference travels
// alongside the slab in the Handle Go already returns by value.
type Handle struct {
	shard *shardEntry
	Slab  pool.Slab
}

// Config holds the per-shard pool parameters and the auto-scaling
// policy thresholds.
type Config struct {
	SlabSize        int
	ShardPoolLimit  int
	ShardTotalLimit int
	GlobalLimit     int
	Theta           time.Duration // lock-acquisition-latency threshold
	Window          int           // sliding-window sample count W
}

// Pool is an auto-scaling multi-shard slab pool.
type Pool struct {
	mu sync.Mutex

	head, tail *shardEntry
	shardCount int

	outstanding int // N
	cfg         Config

	busyLog rate.Sometimes

	onBusy func(msg string)
}

// New returns an auto-scaling pool configured per cfg. onBusy, if
// non-nil, receives a rate-limited diagnostic message whenever a
// shard reports contention and a new shard is spawned.
func New(cfg Config, onBusy func(msg string)) *Pool {
	return &Pool{
		cfg:     cfg,
		onBusy:  onBusy,
		busyLog: rate.Sometimes{Interval: time.Second},
	}
}

// ShardCount reports how many shards currently exist.
func (ap *Pool) ShardCount() int {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.shardCount
}

// Outstanding reports the current global outstanding-object count N.
func (ap *Pool) Outstanding() int {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.outstanding
}

// ShardSnapshot describes one shard's current occupancy and latency
// average, for metrics export.
type ShardSnapshot struct {
	Index   int
	Stats   pool.Stats
	Latency time.Duration
}

// ShardSnapshots returns a head-to-tail snapshot of every shard.
func (ap *Pool) ShardSnapshots() []ShardSnapshot {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	out := make([]ShardSnapshot, 0, ap.shardCount)
	i := 0
	for e := ap.head; e != nil; e = e.next {
		out = append(out, ShardSnapshot{Index: i, Stats: e.pool.Stats(), Latency: e.avg.avg()})
		i++
	}
	return out
}

func (ap *Pool) newShardLocked() *shardEntry {
	return &shardEntry{
		pool: pool.New(ap.cfg.SlabSize, ap.cfg.ShardPoolLimit, ap.cfg.ShardTotalLimit),
		avg:  newSlidingAverage(ap.cfg.Window),
	}
}

// Alloc implements the six-step allocation policy: peek the cheapest
// shard, try it within theta, fail over to a fresh shard when it is
// contended or already at its own total limit, then bubble the serving
// shard toward its latency-sorted position.
func (ap *Pool) Alloc() (Handle, error) {
	ap.mu.Lock()
	if ap.outstanding >= ap.cfg.GlobalLimit {
		ap.mu.Unlock()
		return Handle{}, ErrLimit
	}

	entry := ap.head
	justCreated := false
	if entry == nil {
		entry = ap.newShardLocked()
		ap.insertFrontLocked(entry)
		justCreated = true
	}
	entry.inUse = true
	ap.outstanding++
	ap.mu.Unlock()

	slab, ok, busy, acquired := entry.pool.TryAllocWithTimeout(ap.cfg.Theta)
	if ok {
		ap.mu.Lock()
		entry.avg.add(acquired)
		ap.repositionLocked(entry)
		entry.inUse = false
		ap.mu.Unlock()
		return Handle{shard: entry, Slab: slab}, nil
	}

	if !justCreated && busy && ap.onBusy != nil {
		ap.busyLog.Do(func() {
			ap.onBusy("autopool: shard busy, spawning additional shard")
		})
	}

	ap.mu.Lock()
	entry.inUse = false
	fresh := ap.newShardLocked()
	ap.insertFrontLocked(fresh)
	fresh.inUse = true
	ap.mu.Unlock()

	slab2, ok2, _, acquired2 := fresh.pool.TryAllocWithTimeout(ap.cfg.Theta)
	if !ok2 {
		// The caller receives no slab, so the pre-incremented
		// outstanding count is taken back before reporting ErrLimit.
		ap.mu.Lock()
		ap.outstanding--
		fresh.inUse = false
		ap.mu.Unlock()
		return Handle{}, ErrLimit
	}

	ap.mu.Lock()
	fresh.avg.add(acquired2)
	ap.repositionLocked(fresh)
	fresh.inUse = false
	ap.mu.Unlock()
	return Handle{shard: fresh, Slab: slab2}, nil
}

// Free returns h's slab to its owning shard and decrements the global
// outstanding count.
func (ap *Pool) Free(h Handle) {
	if h.shard == nil {
		return
	}
	h.shard.pool.Free(h.Slab)
	ap.mu.Lock()
	ap.outstanding--
	ap.mu.Unlock()
}

// ReapIdle removes shards that are not in use and hold zero slabs,
// total or pooled. Trigger policy is implementation-defined per spec;
// this module exposes it for a caller (cmd/ctxkit-bench's periodic
// sweep) to invoke on its own schedule instead of reaping inline on
// every free.
func (ap *Pool) ReapIdle() (reaped int) {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	e := ap.head
	for e != nil {
		next := e.next
		st := e.pool.Stats()
		if !e.inUse && st.Pooled == 0 && st.Outstanding == 0 && ap.shardCount > 1 {
			ap.unlinkLocked(e)
			reaped++
		}
		e = next
	}
	return reaped
}

func (ap *Pool) insertFrontLocked(e *shardEntry) {
	e.next = ap.head
	e.prev = nil
	if ap.head != nil {
		ap.head.prev = e
	}
	ap.head = e
	if ap.tail == nil {
		ap.tail = e
	}
	ap.shardCount++
}

func (ap *Pool) unlinkLocked(e *shardEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		if ap.head != e {
			panic("ctxkit/autopool: list corrupted")
		}
		ap.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		if ap.tail != e {
			panic("ctxkit/autopool: list corrupted")
		}
		ap.tail = e.prev
	}
	e.prev, e.next = nil, nil
	ap.shardCount--
}

func (ap *Pool) insertBeforeLocked(e, at *shardEntry) {
	e.prev = at.prev
	e.next = at
	if at.prev != nil {
		at.prev.next = e
	} else {
		ap.head = e
	}
	at.prev = e
	ap.shardCount++
}

func (ap *Pool) insertTailLocked(e *shardEntry) {
	e.prev = ap.tail
	e.next = nil
	if ap.tail != nil {
		ap.tail.next = e
	} else {
		ap.head = e
	}
	ap.tail = e
	ap.shardCount++
}

// repositionLocked re-inserts e at its correct ascending-latency slot
// if its neighbors now disagree with its average, an O(k) walk from
// the head performed only when the position actually changed.
func (ap *Pool) repositionLocked(e *shardEntry) {
	prevOK := e.prev == nil || e.prev.avg.avg() <= e.avg.avg()
	nextOK := e.next == nil || e.avg.avg() <= e.next.avg.avg()
	if prevOK && nextOK {
		return
	}

	ap.unlinkLocked(e)
	cur := ap.head
	for cur != nil && cur.avg.avg() <= e.avg.avg() {
		cur = cur.next
	}
	if cur == nil {
		ap.insertTailLocked(e)
	} else {
		ap.insertBeforeLocked(e, cur)
	}
}
