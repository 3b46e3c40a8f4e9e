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

package pagetree

import (
	"errors"

	"seehuhn.de/go/geom/rect"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// Page is a facade for a page dictionary.
//
// The media box is computed when the facade is created, taking inheritance
// from the ancestors of the page into account.  If an ancestor changes,
// call [pdf.Document.Invalidate] on the page to recompute it.
type Page struct {
	doc *pdf.Document
	ref pdf.Reference

	mediaBox *rect.Rect
}

// Get returns the facade for the page ref.
func Get(doc *pdf.Document, ref pdf.Reference) (*Page, error) {
	return pdf.GetFacade(doc, ref, decodePage)
}

func decodePage(doc *pdf.Document, ref pdf.Reference) (*Page, error) {
	dict, err := pdf.GetDictTyped(doc, ref, "Page")
	if err != nil {
		return nil, pdf.Wrap(err, "page "+ref.String())
	} else if dict == nil {
		return nil, &pdf.MalformedFileError{
			Err: errNoPage,
			Loc: []string{"page " + ref.String()},
		}
	}

	mediaBox, err := inherited(doc, ref, "MediaBox")
	if err != nil {
		return nil, pdf.Wrap(err, "page "+ref.String())
	}
	box, err := pdf.Optional(pdf.GetRectangle(doc, mediaBox))
	if err != nil {
		return nil, pdf.Wrap(err, "page "+ref.String())
	}

	return &Page{doc: doc, ref: ref, mediaBox: box}, nil
}

var errNoPage = errors.New("missing page dictionary")

// inherited looks up key in the page dictionary ref and, if it is not
// found there, in the ancestors of the page.
func inherited(doc *pdf.Document, ref pdf.Reference, key pdf.Name) (pdf.Object, error) {
	cc := pdf.NewCycleChecker()
	var obj pdf.Object = ref
	for obj != nil {
		if err := cc.Check(obj); err != nil {
			return nil, err
		}
		dict, err := pdf.GetDict(doc, obj)
		if err != nil {
			return nil, err
		}
		if val, ok := dict[key]; ok {
			return val, nil
		}
		obj = dict["Parent"]
	}
	return nil, nil
}

// Ref returns the identity of the page dictionary.
// This implements the [pdf.Facade] interface.
func (p *Page) Ref() pdf.Reference {
	return p.ref
}

// MediaBox returns the media box of the page.
// If neither the page nor any of its ancestors has a valid /MediaBox entry,
// nil is returned.
func (p *Page) MediaBox() *rect.Rect {
	if p.mediaBox == nil {
		return nil
	}
	box := *p.mediaBox
	return &box
}

// SetMediaBox sets the media box of the page.
func (p *Page) SetMediaBox(box rect.Rect) error {
	err := p.doc.SetDictEntry(p.ref, "MediaBox", pdf.Rectangle(box))
	if err != nil {
		return err
	}
	p.mediaBox = &box
	return nil
}

// Beads returns the article beads on this page, as listed in the /B
// entry.  Entries which are not references are ignored.
func (p *Page) Beads() ([]pdf.Reference, error) {
	dict, err := pdf.GetDict(p.doc, p.ref)
	if err != nil {
		return nil, err
	}
	a, err := pdf.Optional(pdf.GetArray(p.doc, dict["B"]))
	if err != nil {
		return nil, err
	}
	var res []pdf.Reference
	for _, obj := range a {
		if ref, ok := obj.(pdf.Reference); ok {
			res = append(res, ref)
		}
	}
	return res, nil
}

// AddBead adds bead to the /B array of the page.
func (p *Page) AddBead(bead pdf.Reference) error {
	beads, err := p.Beads()
	if err != nil {
		return err
	}
	return p.setBeads(append(beads, bead))
}

// RemoveBead removes bead from the /B array of the page.
// The return value reports whether the bead was found.
func (p *Page) RemoveBead(bead pdf.Reference) (bool, error) {
	beads, err := p.Beads()
	if err != nil {
		return false, err
	}
	var kept []pdf.Reference
	for _, ref := range beads {
		if ref != bead {
			kept = append(kept, ref)
		}
	}
	if len(kept) == len(beads) {
		return false, nil
	}
	return true, p.setBeads(kept)
}

func (p *Page) setBeads(beads []pdf.Reference) error {
	if len(beads) == 0 {
		return p.doc.SetDictEntry(p.ref, "B", nil)
	}
	a := make(pdf.Array, len(beads))
	for i, ref := range beads {
		a[i] = ref
	}
	return p.doc.SetDictEntry(p.ref, "B", a)
}
