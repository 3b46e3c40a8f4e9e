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
	"slices"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// Insert adds a key/value pair to the tree.  If the key is already
// present, the value is replaced and the structure of the tree is not
// changed.
//
// A node which grows beyond MaxEntries is split into two halves.  The
// /Limits entries of all nodes on the path from the root are updated.
func (t *Tree[K]) Insert(key K, val pdf.Object) error {
	path, err := t.descend(key)
	if err != nil {
		return err
	}
	leaf := path[len(path)-1].node

	idx, found := slices.BinarySearchFunc(leaf.keys, key, t.codec.Compare)
	if found {
		leaf.vals[idx] = val
		return t.write(leaf, len(path) == 1)
	}
	leaf.keys = slices.Insert(leaf.keys, idx, key)
	leaf.vals = slices.Insert(leaf.vals, idx, val)

	maxEntries := t.maxEntries()
	for level := len(path) - 1; level >= 0; level-- {
		n := path[level].node
		if n.size() <= maxEntries {
			if err := t.write(n, level == 0); err != nil {
				return err
			}
			continue
		}

		if level == 0 {
			return t.splitRoot(n)
		}
		right, err := t.split(n)
		if err != nil {
			return err
		}
		parent := path[level-1]
		parent.node.kids = slices.Insert(parent.node.kids, parent.pos+1, right.ref)
	}
	return nil
}

// split moves the upper half of the entries of n into a new node,
// which is returned.  Both nodes are written.
func (t *Tree[K]) split(n *node[K]) (*node[K], error) {
	mid := n.size() / 2
	right := &node[K]{
		ref:  t.doc.Register(pdf.Dict{}),
		leaf: n.leaf,
	}
	if n.leaf {
		right.keys = slices.Clone(n.keys[mid:])
		right.vals = slices.Clone(n.vals[mid:])
		n.keys = slices.Clip(n.keys[:mid])
		n.vals = slices.Clip(n.vals[:mid])
	} else {
		right.kids = slices.Clone(n.kids[mid:])
		n.kids = slices.Clip(n.kids[:mid])
	}

	if err := t.write(n, false); err != nil {
		return nil, err
	}
	if err := t.write(right, false); err != nil {
		return nil, err
	}
	return right, nil
}

// splitRoot moves the contents of the root into two new kids.  The root
// keeps its identity and becomes an intermediate node.
func (t *Tree[K]) splitRoot(root *node[K]) error {
	left := &node[K]{
		ref:  t.doc.Register(pdf.Dict{}),
		leaf: root.leaf,
		keys: root.keys,
		vals: root.vals,
		kids: root.kids,
	}
	right, err := t.split(left)
	if err != nil {
		return err
	}

	root.leaf = false
	root.keys = nil
	root.vals = nil
	root.kids = []pdf.Reference{left.ref, right.ref}
	return t.write(root, true)
}

// Remove deletes key from the tree.  The return value reports whether the
// key was present.
//
// Nodes which become empty are removed from their parent and freed.  If
// this leaves the root with a single kid, the contents of the kid move into
// the root.
func (t *Tree[K]) Remove(key K) (bool, error) {
	path, err := t.descend(key)
	if err != nil {
		return false, err
	}
	leaf := path[len(path)-1].node

	idx, found := slices.BinarySearchFunc(leaf.keys, key, t.codec.Compare)
	if !found {
		return false, nil
	}
	leaf.keys = slices.Delete(leaf.keys, idx, idx+1)
	leaf.vals = slices.Delete(leaf.vals, idx, idx+1)

	for level := len(path) - 1; level > 0; level-- {
		n := path[level].node
		if n.size() > 0 {
			if err := t.write(n, false); err != nil {
				return true, err
			}
			continue
		}

		parent := path[level-1]
		parent.node.kids = slices.Delete(parent.node.kids, parent.pos, parent.pos+1)
		if err := t.doc.Free(n.ref); err != nil {
			return true, err
		}
	}

	return true, t.collapseRoot(path[0].node)
}

// collapseRoot writes the root node.  While the root has a single kid, the
// contents of the kid are moved into the root and the kid is freed.
func (t *Tree[K]) collapseRoot(root *node[K]) error {
	for !root.leaf && len(root.kids) <= 1 {
		if len(root.kids) == 0 {
			root.leaf = true
			break
		}

		kid, err := t.readNode(root.kids[0])
		if err != nil {
			return err
		}
		root.leaf = kid.leaf
		root.keys = kid.keys
		root.vals = kid.vals
		root.kids = kid.kids
		if err := t.doc.Free(kid.ref); err != nil {
			return err
		}
	}
	return t.write(root, true)
}
