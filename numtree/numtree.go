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

package numtree

import (
	"cmp"
	"iter"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/internal/indextree"
)

// Tree is a number tree stored in a PDF document.
type Tree = indextree.Tree[pdf.Integer]

var codec = &indextree.Codec[pdf.Integer]{
	Entries: "Nums",
	Compare: cmp.Compare[pdf.Integer],
	Decode:  pdf.GetInt,
	Encode:  func(key pdf.Integer) pdf.Object { return key },
}

// ErrKeyNotFound is returned by [Tree.Lookup] and [Tree.Floor] if no
// matching key is present.
var ErrKeyNotFound = indextree.ErrKeyNotFound

// Open returns the number tree with root node ref.
func Open(doc *pdf.Document, ref pdf.Reference) (*Tree, error) {
	return indextree.Open(doc, ref, codec)
}

// New creates a new, empty number tree.
func New(doc *pdf.Document) (*Tree, error) {
	return indextree.New(doc, codec)
}

// Build creates a new number tree from a sequence of key/value pairs
// in increasing key order.  If maxEntries is smaller than 2,
// [indextree.DefaultMaxEntries] is used.
func Build(doc *pdf.Document, data iter.Seq2[pdf.Integer, pdf.Object], maxEntries int) (*Tree, error) {
	return indextree.Build(doc, codec, data, maxEntries)
}

// FromCatalog returns the number tree stored under key in the document
// catalog, for example "PageLabels".  A direct root dictionary is moved
// into an indirect object first.
//
// If the catalog has no such entry and create is true, a new tree is
// created and stored in the catalog.  Otherwise nil is returned.
func FromCatalog(doc *pdf.Document, key pdf.Name, create bool) (*Tree, error) {
	root, err := doc.Root()
	if err != nil {
		return nil, err
	}
	ref, err := indextree.Normalize(doc, root, key)
	if err != nil {
		return nil, err
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
	err = doc.SetDictEntry(root, key, tree.Ref())
	if err != nil {
		return nil, err
	}
	return tree, nil
}
