// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package trie implements a path-condensed radix tree over the 4-bit
// nibble alphabet of a byte-string key (a "compressed 16-ary trie").
// Every internal (non-value-bearing) node except the root holds at
// least two occupied branches; any node with exactly one child is
// either value-bearing (legal) or gets condensed away on removal.
//
// Like package heap, a Trie is not safe for concurrent use.
package trie

import (
	"errors"
	"math/bits"
)

// ErrOutOfRange is returned when dereferencing an end iterator.
var ErrOutOfRange = errors.New("ctxkit/trie: iterator out of range")

// StructuralPosition names a node in the trie, including internal
// (non-value-bearing) nodes. It can be produced by LowerBound and fed
// back into InsertWithHint to resume a descent in O(|suffix|) instead
// of O(|key|).
type StructuralPosition[V any] struct {
	n *node[V]
}

// Trie is a compressed nibble trie mapping byte-string keys to values
// of type V.
type Trie[V any] struct {
	root *node[V]
	size int
}

// New returns an empty trie.
func New[V any]() *Trie[V] {
	return &Trie[V]{root: &node[V]{internal: true}}
}

// Len returns the number of value-bearing keys currently stored.
func (t *Trie[V]) Len() int { return t.size }

// Find looks up key, returning its value and true, or the zero value
// and false if key was never inserted or has since been removed.
func (t *Trie[V]) Find(key []byte) (V, bool) {
	var zero V
	n := t.descendExact(t.root, toNibbles(key))
	if n == nil || !n.hasValue {
		return zero, false
	}
	return n.value, true
}

// Insert binds key to value. If key already has a value, the existing
// value is retained and insertedFlag is false. If an internal node
// already exists at key's final offset, it is upgraded to
// value-bearing.
func (t *Trie[V]) Insert(key []byte, value V) (StructuralPosition[V], bool) {
	return t.InsertWithHint(key, value, StructuralPosition[V]{n: t.root})
}

// InsertWithHint resumes insertion from hint, a structural position
// whose key is a known prefix of key, achieving O(|remaining suffix|)
// instead of O(|key|). Passing the zero StructuralPosition (or one
// obtained from this Trie's root) behaves like Insert.
func (t *Trie[V]) InsertWithHint(key []byte, value V, hint StructuralPosition[V]) (StructuralPosition[V], bool) {
	start := hint.n
	if start == nil {
		start = t.root
	}
	nibs := toNibbles(key)
	n, inserted := t.insertDescend(start, nibs, value)
	if inserted {
		t.size++
	}
	return StructuralPosition[V]{n: n}, inserted
}

func (t *Trie[V]) insertDescend(n *node[V], nibs []byte, value V) (*node[V], bool) {
	offset := n.keyOffset
	if offset == len(nibs) {
		if n.hasValue {
			return n, false
		}
		n.hasValue = true
		n.internal = false
		n.value = value
		return n, true
	}

	idx := nibs[offset]
	e := n.branch[idx]
	if e == nil {
		label := append([]byte(nil), nibs[offset:]...)
		child := &node[V]{
			parent:    n,
			at:        int(idx),
			keyOffset: offset + len(label),
			hasValue:  true,
			value:     value,
		}
		n.branch[idx] = &edge[V]{label: label, child: child}
		n.bitmap |= 1 << idx
		return child, true
	}

	label := e.label
	i := 0
	for i < len(label) && offset+i < len(nibs) && label[i] == nibs[offset+i] {
		i++
	}
	if i == len(label) {
		return t.insertDescend(e.child, nibs, value)
	}

	// Diverge inside the branch string: split the edge at position i.
	splitNode := &node[V]{
		parent:    n,
		at:        int(idx),
		keyOffset: offset + i,
		internal:  true,
	}
	tailIdx := label[i]
	splitNode.branch[tailIdx] = &edge[V]{label: label[i:], child: e.child}
	splitNode.bitmap = 1 << tailIdx
	e.child.parent = splitNode
	e.child.at = int(tailIdx)

	n.branch[idx] = &edge[V]{label: label[:i], child: splitNode}
	return t.insertDescend(splitNode, nibs, value)
}

// Remove deletes key's value, if any, condensing the surrounding
// structure so the trie remains indistinguishable by any probe from
// one that never held key (node-allocation counters aside). Removing
// an absent key is a no-op and returns false.
func (t *Trie[V]) Remove(key []byte) bool {
	n := t.descendExact(t.root, toNibbles(key))
	if n == nil || !n.hasValue {
		return false
	}

	var zero V
	n.hasValue = false
	n.value = zero
	t.size--

	childCount := bits.OnesCount16(n.bitmap)
	if childCount == 0 {
		if n == t.root {
			n.internal = true
			return true
		}
		p := n.parent
		p.branch[n.at] = nil
		p.bitmap &^= 1 << uint(n.at)
		t.condense(p)
		return true
	}

	n.internal = true
	if childCount == 1 {
		t.condense(n)
	}
	return true
}

// condense restores the "internal nodes have >=2 children" invariant
// at n after a removal changed n's child count: an internal node left
// with zero children is deleted from its own parent (recursing
// upward); one left with exactly one child is dissolved, its
// remaining child's incoming branch string concatenated onto n's own
// incoming branch so the grandparent points directly at it. The root
// is exempt: it is never removed, only demoted.
func (t *Trie[V]) condense(n *node[V]) {
	if n == t.root || n.hasValue {
		return
	}

	count := bits.OnesCount16(n.bitmap)
	switch count {
	case 0:
		p := n.parent
		p.branch[n.at] = nil
		p.bitmap &^= 1 << uint(n.at)
		t.condense(p)
	case 1:
		at := bits.TrailingZeros16(n.bitmap)
		childEdge := n.branch[at]
		parentEdge := n.parent.branch[n.at]
		parentEdge.label = append(parentEdge.label, childEdge.label...)
		parentEdge.child = childEdge.child
		childEdge.child.parent = n.parent
		childEdge.child.at = n.at
	}
}

// LowerBound returns the deepest structural node whose own key is a
// prefix of key, and whether that node's key equals key exactly. The
// returned position is a valid hint for InsertWithHint.
func (t *Trie[V]) LowerBound(key []byte) (StructuralPosition[V], bool) {
	nibs := toNibbles(key)
	n := t.root
	for {
		offset := n.keyOffset
		if offset == len(nibs) {
			return StructuralPosition[V]{n: n}, true
		}
		idx := nibs[offset]
		e := n.branch[idx]
		if e == nil {
			return StructuralPosition[V]{n: n}, false
		}
		label := e.label
		i := 0
		for i < len(label) && offset+i < len(nibs) && label[i] == nibs[offset+i] {
			i++
		}
		if i < len(label) {
			return StructuralPosition[V]{n: n}, false
		}
		n = e.child
	}
}

// descendExact returns the node whose key equals nibs exactly, or nil.
func (t *Trie[V]) descendExact(n *node[V], nibs []byte) *node[V] {
	offset := n.keyOffset
	if offset == len(nibs) {
		return n
	}
	idx := nibs[offset]
	e := n.branch[idx]
	if e == nil {
		return nil
	}
	label := e.label
	if offset+len(label) > len(nibs) {
		return nil
	}
	for i, nib := range label {
		if nibs[offset+i] != nib {
			return nil
		}
	}
	return t.descendExact(e.child, nibs)
}
