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

// Package pagetree gives access to the pages of a PDF document.
//
// The pages are the leaves of the page tree, a tree of /Pages dictionaries
// rooted at the /Pages entry of the document catalog.  Attributes like the
// media box can be inherited from ancestor nodes.
package pagetree

import (
	"errors"
	"math"

	"seehuhn.de/go/geom/rect"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// Paper sizes in PDF units.
var (
	A4     = rect.Rect{URx: 595.276, URy: 841.890}
	Letter = rect.Rect{URx: 612, URy: 792}
)

// Pages returns the references of all pages, in document order.
//
// Nodes which are reached a second time are ignored.  Kids which are not
// references are reported as 0.
func Pages(doc *pdf.Document) ([]pdf.Reference, error) {
	root, err := rootNode(doc)
	if err != nil {
		return nil, err
	}

	var res []pdf.Reference
	todo := []pdf.Reference{root}
	seen := map[pdf.Reference]bool{
		root: true,
	}
	for len(todo) > 0 {
		k := len(todo) - 1
		ref := todo[k]
		todo = todo[:k]

		node, err := pdf.GetDict(doc, ref)
		if err != nil {
			return nil, err
		}
		tp, err := pdf.GetName(doc, node["Type"])
		if err != nil {
			return nil, err
		}
		switch tp {
		case "Page":
			res = append(res, ref)
		case "Pages":
			kids, err := pdf.GetArray(doc, node["Kids"])
			if err != nil {
				return nil, err
			}
			for i := len(kids) - 1; i >= 0; i-- {
				kid := kids[i]
				if kidRef, ok := kid.(pdf.Reference); !ok {
					res = append(res, 0)
				} else if !seen[kidRef] {
					todo = append(todo, kidRef)
					seen[kidRef] = true
				}
			}
		}
	}

	return res, nil
}

// NumPages returns the number of pages, as given by the /Count entry
// of the root node.
func NumPages(doc *pdf.Document) (int, error) {
	root, err := rootNode(doc)
	if err != nil {
		return 0, err
	}
	pageTreeNode, err := pdf.GetDict(doc, root)
	if err != nil {
		return 0, err
	}

	count, err := pdf.GetInt(doc, pageTreeNode["Count"])
	if err != nil {
		return 0, err
	}

	if count < 0 || count > math.MaxInt32 {
		return 0, errInvalidPageTree
	}

	return int(count), nil
}

// GetPage returns the reference of the page with the given index,
// starting at 0.  The /Count entries of the intermediate nodes are used to
// skip subtrees.
func GetPage(doc *pdf.Document, pageNo int) (pdf.Reference, error) {
	if pageNo < 0 {
		return 0, errors.New("invalid page number")
	}
	root, err := rootNode(doc)
	if err != nil {
		return 0, err
	}

	skip := pdf.Integer(pageNo)
	kids := pdf.Array{root}
	cc := pdf.NewCycleChecker()
	for len(kids) > 0 {
		ref, ok := kids[0].(pdf.Reference)
		kids = kids[1:]
		if !ok {
			return 0, errInvalidPageTree
		}
		if err := cc.Check(ref); err != nil {
			return 0, err
		}

		pageTreeNode, err := pdf.GetDict(doc, ref)
		if err != nil {
			return 0, err
		}
		tp, err := pdf.GetName(doc, pageTreeNode["Type"])
		if err != nil {
			return 0, err
		}
		switch tp {
		case "Page":
			if skip == 0 {
				return ref, nil
			}
			skip--

		case "Pages":
			count, err := pdf.GetInt(doc, pageTreeNode["Count"])
			if err != nil {
				return 0, err
			}
			if count < 0 {
				return 0, errInvalidPageTree
			} else if skip < count {
				kids, err = pdf.GetArray(doc, pageTreeNode["Kids"])
				if err != nil {
					return 0, err
				}
			} else {
				// skip to next kid
				skip -= count
			}

		default:
			return 0, errInvalidPageTree
		}
	}

	return 0, errors.New("page not found")
}

// Append adds a new, empty page at the end of the document and returns
// its facade.  The page is added to the root node of the page tree.
func Append(doc *pdf.Document, mediaBox rect.Rect) (*Page, error) {
	root, err := rootNode(doc)
	if err != nil {
		return nil, err
	}
	node, err := pdf.GetDictTyped(doc, root, "Pages")
	if err != nil {
		return nil, err
	} else if node == nil {
		return nil, errInvalidPageTree
	}
	kids, err := pdf.GetArray(doc, node["Kids"])
	if err != nil {
		return nil, pdf.Wrap(err, "Kids")
	}
	count, err := pdf.Optional(pdf.GetInt(doc, node["Count"]))
	if err != nil {
		return nil, err
	}

	ref := doc.Register(pdf.Dict{
		"Type":      pdf.Name("Page"),
		"Parent":    root,
		"MediaBox":  pdf.Rectangle(mediaBox),
		"Resources": pdf.Dict{},
	})

	node = node.Clone()
	node["Kids"] = append(kids[:len(kids):len(kids)], ref)
	node["Count"] = count + 1
	if err := doc.Update(root, node); err != nil {
		return nil, err
	}
	return Get(doc, ref)
}

func rootNode(doc *pdf.Document) (pdf.Reference, error) {
	catalog, err := doc.Catalog()
	if err != nil {
		return 0, err
	}
	return catalog.Pages()
}

var errInvalidPageTree = errors.New("invalid page tree")
