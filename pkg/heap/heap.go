// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package heap implements a mergeable binomial heap with stable
// handles: Add returns a Handle that keeps denoting the same logical
// element across DecreaseKey, Delete and MergeFrom, no matter how
// much the underlying tree shape changes.
//
// Handle stability does not rely on node addresses staying fixed to a
// logical item (that would force awkward whole-subtree rotations on
// every sift); instead each node carries a one-word indirection cell
// that a Handle points to, and a sift step swaps (value, cell) pairs
// between a node and its parent instead of moving payloads bare. This
// is an arena/indirection style handle, the preferred safe-language
// rendition of a node-identity-swap trick that would otherwise need
// unbounded neighbor-pointer fixups.
//
// The heap is not safe for concurrent use; callers serialize their
// own access, exactly like package trie.
package heap

import "errors"

// ErrEmpty is returned by PeekMin/DeleteMin when the heap holds no
// elements.
var ErrEmpty = errors.New("ctxkit/heap: heap is empty")

// Less reports whether a sorts strictly before b. Ties are broken by
// the caller's choice of which side "wins" during Merge/DecreaseKey,
// per the rules documented on those functions.
type Less[T any] func(a, b T) bool

// cell is the indirection a Handle points to; it always tracks the
// node currently holding the value the handle denotes.
type cell[T any] struct {
	n *node[T]
}

// node is a binomial tree node. The sibling chain is a singly-cyclic
// doubly-linked list: prev is cyclic (the first child's prev points
// at the last child), next of the last sibling is nil. superior is
// the node's parent if the node is a first child, otherwise the first
// child among its siblings -- this bounds parent lookup to two hops
// and lets a node be swapped in place with O(1) link edits.
type node[T any] struct {
	value    T
	cell     *cell[T]
	order    int
	superior *node[T]
	child    *node[T] // first (lowest-order) child
	prev     *node[T]
	next     *node[T]
}

func (n *node[T]) isFirstChild() bool {
	return n.superior != nil && n.superior.child == n
}

// parent returns n's parent, or nil if n is a root.
func (n *node[T]) parent() *node[T] {
	if n.superior == nil {
		return nil
	}
	if n.isFirstChild() {
		return n.superior
	}
	return n.superior.superior
}

// Handle is an opaque, stable reference to a value previously added to
// a Heap. It remains valid for the lifetime of the value, across any
// number of merges, decreases or deletions of other elements.
type Handle[T any] struct {
	c *cell[T]
}

// Heap is a binomial heap over values of type T, ordered by less.
type Heap[T any] struct {
	less  Less[T]
	roots *node[T] // head of the root list, ascending order, non-cyclic
	min   *node[T]
	size  int
}

// New returns an empty heap ordered by less.
func New[T any](less Less[T]) *Heap[T] {
	return &Heap[T]{less: less}
}

// Len returns the number of elements currently held.
func (h *Heap[T]) Len() int { return h.size }

// Value returns the value currently denoted by h, following the
// handle's indirection to wherever sifting has moved it.
func (h Handle[T]) Value() *T {
	return &h.c.n.value
}

// Add inserts value as a singleton tree and merges it into the
// forest, returning a stable handle to it.
func (h *Heap[T]) Add(value T) Handle[T] {
	n := &node[T]{value: value}
	c := &cell[T]{n: n}
	n.cell = c
	h.roots = mergeRootLists(h, h.roots, n)
	h.size++
	h.recomputeMin()
	return Handle[T]{c: c}
}

// PeekMin returns the minimum value without removing it.
func (h *Heap[T]) PeekMin() (T, error) {
	var zero T
	if h.min == nil {
		return zero, ErrEmpty
	}
	return h.min.value, nil
}

// MinHandle returns a handle to the current minimum element.
func (h *Heap[T]) MinHandle() (Handle[T], error) {
	if h.min == nil {
		return Handle[T]{}, ErrEmpty
	}
	return Handle[T]{c: h.min.cell}, nil
}

// MergeFrom absorbs other into h in O(log n + log m). other is left
// empty. On a tie between equal-order roots, h's own tree wins.
func (h *Heap[T]) MergeFrom(other *Heap[T]) {
	if other == h || other.size == 0 {
		return
	}
	h.roots = mergeRootLists(h, h.roots, other.roots)
	h.size += other.size
	h.recomputeMin()
	other.roots = nil
	other.min = nil
	other.size = 0
}

// DecreaseKey applies decrease (which must return a value no greater
// than the current one) to the element h denotes, then sifts it up
// until its parent's key is strictly less. On ties with the new
// parent the moving node keeps winning, so a decrease that lands
// exactly on the current minimum still surfaces as (or ties for) the
// new minimum.
func (h *Heap[T]) DecreaseKey(handle Handle[T], decrease func(T) T) {
	handle.c.n.value = decrease(handle.c.n.value)
	cur := handle.c.n
	for {
		p := cur.parent()
		if p == nil {
			break
		}
		if h.less(p.value, cur.value) {
			break
		}
		swapPayload(cur, p)
		cur = p
	}
	h.recomputeMin()
}

// Delete removes the element h denotes: the node is sifted
// unconditionally to its tree's root, the tree is unlinked, its
// children are split into a derivative forest, and that forest is
// merged back into the heap.
func (h *Heap[T]) Delete(handle Handle[T]) {
	cur := handle.c.n
	for {
		p := cur.parent()
		if p == nil {
			break
		}
		swapPayload(cur, p)
		cur = p
	}
	// cur is now a root holding the value to discard.
	h.roots = unlinkRoot(h.roots, cur)
	h.size--

	derivative := childrenToForest(cur)
	h.roots = mergeRootLists(h, h.roots, derivative)
	h.recomputeMin()
}

// DeleteMin removes and returns the minimum value.
func (h *Heap[T]) DeleteMin() (T, error) {
	var zero T
	if h.min == nil {
		return zero, ErrEmpty
	}
	v := h.min.value
	handle, _ := h.MinHandle()
	h.Delete(handle)
	return v, nil
}

// swapPayload exchanges the (value, cell) pair between x and p,
// keeping each cell's back-pointer consistent with whichever node now
// holds the value it denotes. Tree shape (order/superior/child/prev/
// next) on both x and p is left untouched; only payload indirection
// moves.
func swapPayload[T any](x, p *node[T]) {
	x.value, p.value = p.value, x.value
	x.cell, p.cell = p.cell, x.cell
	if x.cell != nil {
		x.cell.n = x
	}
	if p.cell != nil {
		p.cell.n = p
	}
}

// unlinkRoot removes r from the (non-cyclic, singly-linked-forward)
// root list headed by head.
func unlinkRoot[T any](head, r *node[T]) *node[T] {
	if head == r {
		return r.next
	}
	for n := head; n != nil; n = n.next {
		if n.next == r {
			n.next = r.next
			break
		}
	}
	return head
}

// childrenToForest detaches r's children and returns them as a fresh,
// ascending-order root list (children are already attached B_0..B_k-1
// left-to-right, see attachChild).
func childrenToForest[T any](r *node[T]) *node[T] {
	head := r.child
	for c := head; c != nil; c = c.next {
		c.superior = nil
	}
	r.child = nil
	r.order = 0
	return head
}

// taggedRoot pairs a root with whether it originated from the
// receiving heap (h), used only to break order-collision ties during
// merge.
type taggedRoot[T any] struct {
	n    *node[T]
	recv bool
}

// mergeRootLists merges two ascending-order root lists -- recvRoots
// (h's own, the receiver) and otherRoots (being absorbed) -- into one
// ascending-order root list, combining same-order collisions via
// attachChild exactly as CLRS's Binomial-Heap-Union does: walk the
// length-merged list combining an order with its successor whenever
// they collide and a third same-order tree isn't waiting right after.
func mergeRootLists[T any](h *Heap[T], recvRoots, otherRoots *node[T]) *node[T] {
	merged := simpleMergeByOrder(recvRoots, otherRoots)
	if len(merged) == 0 {
		return nil
	}

	out := merged[:0:0]
	i := 0
	for i < len(merged) {
		if i+1 < len(merged) && merged[i].n.order == merged[i+1].n.order &&
			!(i+2 < len(merged) && merged[i+2].n.order == merged[i].n.order) {
			combined := combine(h, merged[i], merged[i+1])
			merged[i+1] = combined
			i++
			continue
		}
		out = append(out, merged[i])
		i++
	}

	var head, tail *node[T]
	for _, tr := range out {
		r := tr.n
		r.superior = nil
		r.prev = nil
		r.next = nil
		if tail == nil {
			head, tail = r, r
			continue
		}
		tail.next = r
		r.prev = tail
		tail = r
	}
	return head
}

// simpleMergeByOrder merges two ascending-order linked lists into a
// single ascending-order slice, tagging provenance for tie-breaking.
func simpleMergeByOrder[T any](recvRoots, otherRoots *node[T]) []taggedRoot[T] {
	var out []taggedRoot[T]
	a, b := recvRoots, otherRoots
	for a != nil && b != nil {
		if a.order <= b.order {
			out = append(out, taggedRoot[T]{n: a, recv: true})
			a = a.next
		} else {
			out = append(out, taggedRoot[T]{n: b, recv: false})
			b = b.next
		}
	}
	for ; a != nil; a = a.next {
		out = append(out, taggedRoot[T]{n: a, recv: true})
	}
	for ; b != nil; b = b.next {
		out = append(out, taggedRoot[T]{n: b, recv: false})
	}
	return out
}

// combine merges two same-order roots into a single order+1 root, the
// smaller key becoming the parent. On a tie, the receiver's root
// wins.
func combine[T any](h *Heap[T], x, y taggedRoot[T]) taggedRoot[T] {
	var winner, loser taggedRoot[T]
	switch {
	case h.less(x.n.value, y.n.value):
		winner, loser = x, y
	case h.less(y.n.value, x.n.value):
		winner, loser = y, x
	case x.recv:
		winner, loser = x, y
	default:
		winner, loser = y, x
	}
	attachChild(winner.n, loser.n)
	return taggedRoot[T]{n: winner.n, recv: winner.recv}
}

// attachChild makes loser the new highest-order child of winner. The
// glossary defines B_k's children as B_0, B_1, ..., B_{k-1} in that
// (left-to-right) order, so the newly attached loser -- always the
// current highest order seen so far in any cascading merge -- is
// appended after the existing child list rather than prepended.
func attachChild[T any](winner, loser *node[T]) {
	loser.next = nil
	if winner.child == nil {
		loser.superior = winner
		loser.prev = loser
		winner.child = loser
	} else {
		first := winner.child
		last := first.prev // cyclic: first.prev is the current last child
		last.next = loser
		loser.prev = last
		loser.superior = first
		first.prev = loser
	}
	winner.order++
}

// recomputeMin scans the root list for the minimum key.
func (h *Heap[T]) recomputeMin() {
	h.min = nil
	for r := h.roots; r != nil; r = r.next {
		if h.min == nil || h.less(r.value, h.min.value) {
			h.min = r
		}
	}
}
