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
	"fmt"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// node is the decoded form of one tree node.
//
// A node is either a leaf, holding key/value pairs, or an intermediate
// node, holding references to its kids.  A root dictionary with neither
// entry is read as an empty leaf.
type node[K any] struct {
	ref  pdf.Reference
	dict pdf.Dict
	leaf bool

	keys []K // leaf only
	vals []pdf.Object

	kids []pdf.Reference // intermediate only
}

func (n *node[K]) size() int {
	if n.leaf {
		return len(n.keys)
	}
	return len(n.kids)
}

// readNode reads and decodes the node ref.
//
// Leaf entries are expected in increasing key order.  Entries which break
// the order are skipped, so that lookups on damaged trees still work.
// [Tree.Check] reports such entries.
func (t *Tree[K]) readNode(ref pdf.Reference) (*node[K], error) {
	dict, err := pdf.GetDict(t.doc, ref)
	if err != nil {
		return nil, pdf.Wrap(err, "tree node "+ref.String())
	}
	if dict == nil {
		return nil, &pdf.MalformedFileError{
			Err: errNotNode,
			Loc: []string{"tree node " + ref.String()},
		}
	}
	n := &node[K]{ref: ref, dict: dict}

	if kidsObj, isIntermediate := dict["Kids"]; isIntermediate {
		kids, err := pdf.GetArray(t.doc, kidsObj)
		if err != nil {
			return nil, pdf.Wrap(err, "tree node "+ref.String())
		}
		n.kids = make([]pdf.Reference, 0, len(kids))
		for _, kid := range kids {
			kidRef, ok := kid.(pdf.Reference)
			if !ok {
				return nil, &pdf.MalformedFileError{
					Err: fmt.Errorf("expected reference but got %T", kid),
					Loc: []string{"tree node " + ref.String(), "Kids"},
				}
			}
			n.kids = append(n.kids, kidRef)
		}
		return n, nil
	}

	n.leaf = true
	entries, err := pdf.GetArray(t.doc, dict[t.codec.Entries])
	if err != nil {
		return nil, pdf.Wrap(err, "tree node "+ref.String())
	}
	for i := 0; i+1 < len(entries); i += 2 {
		key, err := t.codec.Decode(t.doc, entries[i])
		if pdf.IsMalformed(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		if k := len(n.keys); k > 0 && t.codec.Compare(key, n.keys[k-1]) <= 0 {
			continue
		}
		n.keys = append(n.keys, key)
		n.vals = append(n.vals, entries[i+1])
	}
	return n, nil
}

var errNotNode = errors.New("tree node is not a dictionary")

// encode returns the dictionary for n.  Entries of the original dictionary
// which are not part of the tree structure are kept.
func (t *Tree[K]) encode(n *node[K], limits *[2]K) pdf.Dict {
	dict := n.dict.Clone()
	if dict == nil {
		dict = pdf.Dict{}
	}
	if n.leaf {
		entries := make(pdf.Array, 0, 2*len(n.keys))
		for i, key := range n.keys {
			entries = append(entries, t.codec.Encode(key), n.vals[i])
		}
		dict[t.codec.Entries] = entries
		delete(dict, "Kids")
	} else {
		kids := make(pdf.Array, len(n.kids))
		for i, kid := range n.kids {
			kids[i] = kid
		}
		dict["Kids"] = kids
		delete(dict, t.codec.Entries)
	}
	if limits != nil {
		dict["Limits"] = pdf.Array{t.codec.Encode(limits[0]), t.codec.Encode(limits[1])}
	} else {
		delete(dict, "Limits")
	}
	return dict
}

// write stores n in the document.  Non-root nodes get a /Limits entry,
// which requires the limits of all kids to be up to date.  Nodes which
// have not changed are not marked as dirty.
func (t *Tree[K]) write(n *node[K], isRoot bool) error {
	var limits *[2]K
	if !isRoot {
		lo, hi, ok, err := t.nodeLimits(n)
		if err != nil {
			return err
		}
		if ok {
			limits = &[2]K{lo, hi}
		}
	}
	dict := t.encode(n, limits)
	if n.dict != nil && pdf.Equal(dict, n.dict) {
		return nil
	}
	n.dict = dict
	return t.doc.Update(n.ref, dict)
}

// nodeLimits returns the smallest and largest key below n.
// The last return value is false if n has no entries.
func (t *Tree[K]) nodeLimits(n *node[K]) (lo, hi K, ok bool, err error) {
	if n.leaf {
		if len(n.keys) == 0 {
			return lo, hi, false, nil
		}
		return n.keys[0], n.keys[len(n.keys)-1], true, nil
	}
	if len(n.kids) == 0 {
		return lo, hi, false, nil
	}
	lo, _, err = t.limits(n.kids[0], 0)
	if err != nil {
		return lo, hi, false, err
	}
	_, hi, err = t.limits(n.kids[len(n.kids)-1], 0)
	if err != nil {
		return lo, hi, false, err
	}
	return lo, hi, true, nil
}

// limits returns the key range of the subtree ref.  The /Limits entry is
// used if present; otherwise the range is computed from the subtree.
func (t *Tree[K]) limits(ref pdf.Reference, depth int) (lo, hi K, err error) {
	if depth > maxDepth {
		return lo, hi, errTooDeep
	}

	dict, err := pdf.GetDict(t.doc, ref)
	if err != nil {
		return lo, hi, pdf.Wrap(err, "tree node "+ref.String())
	}
	if a, _ := pdf.Optional(pdf.GetArray(t.doc, dict["Limits"])); len(a) == 2 {
		lo, err1 := t.codec.Decode(t.doc, a[0])
		hi, err2 := t.codec.Decode(t.doc, a[1])
		if err1 == nil && err2 == nil && t.codec.Compare(lo, hi) <= 0 {
			return lo, hi, nil
		}
	}

	n, err := t.readNode(ref)
	if err != nil {
		return lo, hi, err
	}
	if n.leaf {
		if len(n.keys) == 0 {
			return lo, hi, &pdf.MalformedFileError{
				Err: errEmptyNode,
				Loc: []string{"tree node " + ref.String()},
			}
		}
		return n.keys[0], n.keys[len(n.keys)-1], nil
	}
	if len(n.kids) == 0 {
		return lo, hi, &pdf.MalformedFileError{
			Err: errEmptyNode,
			Loc: []string{"tree node " + ref.String()},
		}
	}
	lo, _, err = t.limits(n.kids[0], depth+1)
	if err != nil {
		return lo, hi, err
	}
	_, hi, err = t.limits(n.kids[len(n.kids)-1], depth+1)
	return lo, hi, err
}

// maxDepth bounds the depth of trees.  With the smallest useful fan-out
// of 2, this allows for more than 10^9 entries.
const maxDepth = 32

var (
	errTooDeep   = &pdf.MalformedFileError{Err: errors.New("tree too deep")}
	errEmptyNode = errors.New("empty tree node")
)
