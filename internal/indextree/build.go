// pdf-clown-sub003 - an editable object store for PDF files
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package indextree

import (
	"errors"
	"iter"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// builder writes a balanced tree from a sorted sequence of entries, using
// memory proportional to the depth of the tree.
//
// Completed nodes are kept in tail.  Whenever the last maxEntries nodes in
// tail have the same depth, they are merged into a new parent node.
type builder[K any] struct {
	t *Tree[K]

	tail        []*builtNode[K]
	pendingKeys []K
	pendingVals []pdf.Object
}

type builtNode[K any] struct {
	ref    pdf.Reference
	depth  int
	lo, hi K
}

func (b *builder[K]) add(key K, val pdf.Object) error {
	if n := len(b.pendingKeys); n > 0 && b.t.codec.Compare(key, b.pendingKeys[n-1]) <= 0 {
		return errNotSorted
	} else if n == 0 && len(b.tail) > 0 && b.t.codec.Compare(key, b.tail[len(b.tail)-1].hi) <= 0 {
		return errNotSorted
	}

	b.pendingKeys = append(b.pendingKeys, key)
	b.pendingVals = append(b.pendingVals, val)
	if len(b.pendingKeys) >= b.t.maxEntries() {
		return b.completeLeaf()
	}
	return nil
}

func (b *builder[K]) completeLeaf() error {
	if len(b.pendingKeys) == 0 {
		return nil
	}
	n := &node[K]{
		ref:  b.t.doc.Register(pdf.Dict{}),
		leaf: true,
		keys: b.pendingKeys,
		vals: b.pendingVals,
	}
	if err := b.t.write(n, false); err != nil {
		return err
	}
	b.tail = append(b.tail, &builtNode[K]{
		ref: n.ref,
		lo:  n.keys[0],
		hi:  n.keys[len(n.keys)-1],
	})
	b.pendingKeys = nil
	b.pendingVals = nil

	return b.mergeTail()
}

func (b *builder[K]) mergeTail() error {
	maxEntries := b.t.maxEntries()
	for {
		n := len(b.tail)
		if n < maxEntries || b.tail[n-1].depth != b.tail[n-maxEntries].depth {
			return nil
		}
		if err := b.merge(n-maxEntries, n); err != nil {
			return err
		}
	}
}

// merge replaces tail[start:end] by a new intermediate node.
func (b *builder[K]) merge(start, end int) error {
	children := b.tail[start:end]
	n := &node[K]{ref: b.t.doc.Register(pdf.Dict{})}
	for _, child := range children {
		n.kids = append(n.kids, child.ref)
	}
	if err := b.t.write(n, false); err != nil {
		return err
	}

	depth := 0
	for _, child := range children {
		depth = max(depth, child.depth+1)
	}
	merged := &builtNode[K]{
		ref:   n.ref,
		depth: depth,
		lo:    children[0].lo,
		hi:    children[len(children)-1].hi,
	}
	b.tail = append(b.tail[:start], append([]*builtNode[K]{merged}, b.tail[end:]...)...)
	return nil
}

// finish stores the result in root.  If all entries fit into one node,
// root becomes a leaf.  Otherwise the kids of the top-most node move into
// root, and the top-most node is freed.
func (b *builder[K]) finish(root *node[K]) error {
	if len(b.tail) == 0 {
		root.leaf = true
		root.keys = b.pendingKeys
		root.vals = b.pendingVals
		root.kids = nil
		return b.t.write(root, true)
	}
	if err := b.completeLeaf(); err != nil {
		return err
	}

	// collapse the tail into a single node
	maxEntries := b.t.maxEntries()
	for len(b.tail) > 1 {
		n := len(b.tail)
		start := n - 1
		for start > 0 && b.tail[start-1].depth == b.tail[n-1].depth {
			start--
		}
		if start == n-1 {
			// a single shallow node joins its predecessors
			start = 0
		}
		start = max(start, n-maxEntries)
		if err := b.merge(start, n); err != nil {
			return err
		}
		if err := b.mergeTail(); err != nil {
			return err
		}
	}

	top, err := b.t.readNode(b.tail[0].ref)
	if err != nil {
		return err
	}
	root.leaf = top.leaf
	root.keys = top.keys
	root.vals = top.vals
	root.kids = top.kids
	if err := b.t.write(root, true); err != nil {
		return err
	}
	return b.t.doc.Free(top.ref)
}

var errNotSorted = errors.New("keys must be in sorted order")

// Build creates a new tree holding the given entries.  The keys must be
// in increasing order, without duplicates.
func Build[K any](doc *pdf.Document, codec *Codec[K], data iter.Seq2[K, pdf.Object], maxEntries int) (*Tree[K], error) {
	t, err := New(doc, codec)
	if err != nil {
		return nil, err
	}
	t.MaxEntries = maxEntries

	root, err := t.readNode(t.ref)
	if err != nil {
		return nil, err
	}
	b := &builder[K]{t: t}
	for key, val := range data {
		if err := b.add(key, val); err != nil {
			return nil, err
		}
	}
	if err := b.finish(root); err != nil {
		return nil, err
	}
	return t, nil
}

// Rebuild replaces the tree by a balanced tree holding the same entries,
// with all nodes filled up to MaxEntries.  All old nodes except for the
// root are freed.
//
// Since removals never merge nodes, trees can become sparse after many
// removals.  Rebuild restores a compact layout.
func (t *Tree[K]) Rebuild() error {
	var keys []K
	var vals []pdf.Object
	var old []pdf.Reference
	var root *node[K]
	err := t.walk(func(n *node[K], depth int) error {
		if depth == 0 {
			root = n
		} else {
			old = append(old, n.ref)
		}
		if n.leaf {
			keys = append(keys, n.keys...)
			vals = append(vals, n.vals...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Damaged trees may have out-of-order leaves.  These entries are
	// dropped, in the same way that readNode drops out-of-order entries
	// within a leaf.
	b := &builder[K]{t: t}
	for i, key := range keys {
		err := b.add(key, vals[i])
		if errors.Is(err, errNotSorted) {
			continue
		} else if err != nil {
			return err
		}
	}
	if err := b.finish(root); err != nil {
		return err
	}

	for _, ref := range old {
		if err := t.doc.Free(ref); err != nil {
			return err
		}
	}
	return nil
}
