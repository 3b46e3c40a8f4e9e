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

package nametree

import (
	"fmt"
	"iter"
	"strings"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/internal/indextree"
)

// Tree is a name tree stored in a PDF document.
//
// Keys are byte strings.  They are stored as PDF strings and ordered by
// comparing their bytes.
type Tree = indextree.Tree[pdf.Name]

var codec = &indextree.Codec[pdf.Name]{
	Entries: "Names",
	Compare: func(a, b pdf.Name) int { return strings.Compare(string(a), string(b)) },
	Decode:  decodeKey,
	Encode:  func(key pdf.Name) pdf.Object { return pdf.String(key) },
}

// decodeKey reads a name tree key.  Some writers use names instead of
// strings for the keys; these are accepted, too.
func decodeKey(r pdf.Getter, obj pdf.Object) (pdf.Name, error) {
	obj, err := pdf.Resolve(r, obj)
	if err != nil {
		return "", err
	}
	switch key := obj.(type) {
	case pdf.String:
		return pdf.Name(key), nil
	case pdf.Name:
		return key, nil
	default:
		return "", &pdf.MalformedFileError{
			Err: fmt.Errorf("invalid name tree key of type %T", obj),
		}
	}
}

// ErrKeyNotFound is returned by [Tree.Lookup] and [Tree.Floor] if no
// matching key is present.
var ErrKeyNotFound = indextree.ErrKeyNotFound

// Open returns the name tree with root node ref.
func Open(doc *pdf.Document, ref pdf.Reference) (*Tree, error) {
	return indextree.Open(doc, ref, codec)
}

// New creates a new, empty name tree.
func New(doc *pdf.Document) (*Tree, error) {
	return indextree.New(doc, codec)
}

// Build creates a new name tree from a sequence of key/value pairs in
// increasing key order.
func Build(doc *pdf.Document, data iter.Seq2[pdf.Name, pdf.Object], maxEntries int) (*Tree, error) {
	return indextree.Build(doc, codec, data, maxEntries)
}

// FromNames returns the tree stored under key in the name dictionary of
// the document catalog.  Typical keys are "Dests", "AP", "JavaScript",
// "EmbeddedFiles" and "Renditions".
//
// If the tree does not exist and create is true, the tree, and the name
// dictionary if needed, are created.  If create is false, nil is
// returned for a missing tree.
//
// Direct name dictionaries and direct tree roots are moved into indirect
// objects, so that the tree has a stable identity.
func FromNames(doc *pdf.Document, key pdf.Name, create bool) (*Tree, error) {
	root, err := doc.Root()
	if err != nil {
		return nil, err
	}

	names, err := indextree.Normalize(doc, root, "Names")
	if err != nil {
		return nil, err
	}
	if names == 0 {
		if !create {
			return nil, nil
		}
		names = doc.Register(pdf.Dict{})
		if err := doc.SetDictEntry(root, "Names", names); err != nil {
			return nil, err
		}
	}

	ref, err := indextree.Normalize(doc, names, key)
	if err != nil {
		return nil, pdf.Wrap(err, "Names")
	}
	if ref != 0 {
		return Open(doc, ref)
	}
	if !create {
		return nil, nil
	}

	tree, err := New(doc)
	if err != nil {
		return nil, err
	}
	if err := doc.SetDictEntry(names, key, tree.Ref()); err != nil {
		return nil, err
	}
	return tree, nil
}

// Extract reads all entries of a name tree into a map.
// Damaged subtrees are skipped.
func Extract(tree *Tree) map[pdf.Name]pdf.Object {
	data := make(map[pdf.Name]pdf.Object)
	for key, val := range tree.All() {
		data[key] = val
	}
	return data
}
