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

// Package indextree implements the sorted key/value trees used by PDF
// number trees and name trees.
//
// A tree is a hierarchy of dictionaries.  Leaf nodes hold key/value pairs
// in an array (/Nums or /Names), intermediate nodes hold a /Kids array.
// Every node except the root has a /Limits array giving the smallest and
// largest key in its subtree.  Nodes are read from the document when they
// are needed, and changes are written back using [pdf.Document.Update].
//
// The identity of the root node never changes.  When the root overflows,
// its contents move into two new kids.
package indextree

import (
	"errors"
	"iter"
	"slices"
	"sort"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// DefaultMaxEntries is the default bound on the number of entries in a
// leaf node and on the number of kids of an intermediate node.
const DefaultMaxEntries = 64

// Codec describes the keys of one kind of tree.
type Codec[K any] struct {
	// Entries is the name of the array holding the key/value pairs of a
	// leaf, "Nums" or "Names".
	Entries pdf.Name

	Compare func(a, b K) int
	Decode  func(r pdf.Getter, obj pdf.Object) (K, error)
	Encode  func(K) pdf.Object
}

// Tree is a sorted key/value tree stored in a PDF document.
//
// Trees are facades, see [pdf.GetFacade]: for a given document and root
// object, at most one Tree exists.
type Tree[K any] struct {
	doc   *pdf.Document
	ref   pdf.Reference
	codec *Codec[K]

	// MaxEntries is the maximum number of entries in a leaf, and the
	// maximum number of kids of an intermediate node.  Nodes which exceed
	// this are split when the next entry is inserted.  Values smaller
	// than 2 are replaced by [DefaultMaxEntries].
	MaxEntries int
}

// Open returns the tree with the given root node.
func Open[K any](doc *pdf.Document, root pdf.Reference, codec *Codec[K]) (*Tree[K], error) {
	return pdf.GetFacade(doc, root, func(doc *pdf.Document, ref pdf.Reference) (*Tree[K], error) {
		t := &Tree[K]{doc: doc, ref: ref, codec: codec}
		if _, err := t.readNode(ref); err != nil {
			return nil, err
		}
		return t, nil
	})
}

// New creates a new, empty tree.
func New[K any](doc *pdf.Document, codec *Codec[K]) (*Tree[K], error) {
	root := doc.Register(pdf.Dict{codec.Entries: pdf.Array{}})
	return Open(doc, root, codec)
}

// Ref returns the identity of the root node.
// This implements the [pdf.Facade] interface.
func (t *Tree[K]) Ref() pdf.Reference {
	return t.ref
}

func (t *Tree[K]) maxEntries() int {
	if t.MaxEntries < 2 {
		return DefaultMaxEntries
	}
	return t.MaxEntries
}

// Lookup returns the value stored for key.
// If the key is not in the tree, [ErrKeyNotFound] is returned.
func (t *Tree[K]) Lookup(key K) (pdf.Object, error) {
	path, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	leaf := path[len(path)-1].node
	idx, found := slices.BinarySearchFunc(leaf.keys, key, t.codec.Compare)
	if !found {
		return nil, ErrKeyNotFound
	}
	return leaf.vals[idx], nil
}

// Floor returns the largest key in the tree which is less than or equal to
// key, together with its value.  If all keys are larger than key, or if the
// tree is empty, [ErrKeyNotFound] is returned.
func (t *Tree[K]) Floor(key K) (K, pdf.Object, error) {
	var zero K
	cc := pdf.NewCycleChecker()
	ref := t.ref
	for {
		if err := cc.Check(ref); err != nil {
			return zero, nil, err
		}
		n, err := t.readNode(ref)
		if err != nil {
			return zero, nil, err
		}
		if n.leaf {
			idx := sort.Search(len(n.keys), func(i int) bool {
				return t.codec.Compare(n.keys[i], key) > 0
			})
			if idx == 0 {
				return zero, nil, ErrKeyNotFound
			}
			return n.keys[idx-1], n.vals[idx-1], nil
		}

		// find the last kid whose smallest key is <= key
		var searchErr error
		idx := sort.Search(len(n.kids), func(i int) bool {
			lo, _, err := t.limits(n.kids[i], 0)
			if err != nil {
				searchErr = err
				return true
			}
			return t.codec.Compare(lo, key) > 0
		})
		if searchErr != nil {
			return zero, nil, searchErr
		}
		if idx == 0 {
			return zero, nil, ErrKeyNotFound
		}
		ref = n.kids[idx-1]
	}
}

// Len returns the number of entries in the tree.
func (t *Tree[K]) Len() (int, error) {
	total := 0
	err := t.walk(func(n *node[K], _ int) error {
		if n.leaf {
			total += len(n.keys)
		}
		return nil
	})
	return total, err
}

// All returns an iterator over the entries of the tree, in increasing key
// order.  Nodes are read from the document as the iteration proceeds.
// Subtrees which cannot be read are skipped; use [Tree.Check] to find
// such problems.
//
// Each call of the returned iterator starts a new traversal from the root.
func (t *Tree[K]) All() iter.Seq2[K, pdf.Object] {
	return func(yield func(K, pdf.Object) bool) {
		cc := pdf.NewCycleChecker()
		todo := []pdf.Reference{t.ref}
		for len(todo) > 0 {
			k := len(todo) - 1
			ref := todo[k]
			todo = todo[:k]

			if cc.Check(ref) != nil {
				continue
			}
			n, err := t.readNode(ref)
			if err != nil {
				continue
			}
			if !n.leaf {
				for i := len(n.kids) - 1; i >= 0; i-- {
					todo = append(todo, n.kids[i])
				}
				continue
			}
			for i, key := range n.keys {
				if !yield(key, n.vals[i]) {
					return
				}
			}
		}
	}
}

// pathElem is one step on the way from the root to a leaf.
type pathElem[K any] struct {
	node *node[K]

	// pos is the index of the next node on the path in node.kids.
	pos int
}

// descend returns the path from the root to the leaf which contains key,
// or which should contain key if key is inserted.
func (t *Tree[K]) descend(key K) ([]pathElem[K], error) {
	cc := pdf.NewCycleChecker()
	var path []pathElem[K]
	ref := t.ref
	for {
		if err := cc.Check(ref); err != nil {
			return nil, err
		}
		if len(path) > maxDepth {
			return nil, errTooDeep
		}
		n, err := t.readNode(ref)
		if err != nil {
			return nil, err
		}
		if n.leaf || len(n.kids) == 0 {
			if !n.leaf && len(path) > 0 {
				return nil, &pdf.MalformedFileError{
					Err: errEmptyNode,
					Loc: []string{"tree node " + ref.String()},
				}
			}
			// An intermediate root without kids is the same as an empty leaf.
			n.leaf = true
			path = append(path, pathElem[K]{node: n})
			return path, nil
		}

		// find the first kid whose largest key is >= key
		var searchErr error
		idx := sort.Search(len(n.kids), func(i int) bool {
			_, hi, err := t.limits(n.kids[i], 0)
			if err != nil {
				searchErr = err
				return true
			}
			return t.codec.Compare(hi, key) >= 0
		})
		if searchErr != nil {
			return nil, searchErr
		}
		if idx == len(n.kids) {
			idx--
		}
		path = append(path, pathElem[K]{node: n, pos: idx})
		ref = n.kids[idx]
	}
}

// walk calls fn for every node of the tree, in depth-first order.
// The second argument of fn is the depth of the node, where the root has
// depth 0.
func (t *Tree[K]) walk(fn func(n *node[K], depth int) error) error {
	type item struct {
		ref   pdf.Reference
		depth int
	}
	cc := pdf.NewCycleChecker()
	todo := []item{{t.ref, 0}}
	for len(todo) > 0 {
		k := len(todo) - 1
		it := todo[k]
		todo = todo[:k]

		if err := cc.Check(it.ref); err != nil {
			return err
		}
		if it.depth > maxDepth {
			return errTooDeep
		}
		n, err := t.readNode(it.ref)
		if err != nil {
			return err
		}
		if err := fn(n, it.depth); err != nil {
			return err
		}
		for i := len(n.kids) - 1; i >= 0; i-- {
			todo = append(todo, item{n.kids[i], it.depth + 1})
		}
	}
	return nil
}

// Normalize makes sure that the tree root stored under key in the
// dictionary owner is an indirect object.  A direct root dictionary is
// moved into a new indirect object, and owner is updated to refer to it.
//
// If the entry is missing, 0 is returned.
func Normalize(doc *pdf.Document, owner pdf.Reference, key pdf.Name) (pdf.Reference, error) {
	dict, err := pdf.GetDict(doc, owner)
	if err != nil {
		return 0, err
	}
	switch root := dict[key].(type) {
	case nil:
		return 0, nil
	case pdf.Reference:
		return root, nil
	case pdf.Dict:
		ref := doc.Register(root)
		err := doc.SetDictEntry(owner, key, ref)
		if err != nil {
			return 0, err
		}
		return ref, nil
	default:
		return 0, &pdf.MalformedFileError{
			Err: errors.New("tree root is not a dictionary"),
			Loc: []string{"object " + owner.String(), string(key)},
		}
	}
}

// ErrKeyNotFound is returned when a key is not present in a tree.
var ErrKeyNotFound = errors.New("key not found")
