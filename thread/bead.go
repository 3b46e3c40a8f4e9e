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

package thread

import (
	"errors"

	"seehuhn.de/go/geom/rect"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/pagetree"
)

// Bead is a facade for a bead dictionary.
//
// The links to the neighbouring beads, to the page and to the thread are
// stored as references and are resolved when needed.
type Bead struct {
	doc *pdf.Document
	ref pdf.Reference
}

// GetBead returns the facade for the bead ref.
func GetBead(doc *pdf.Document, ref pdf.Reference) (*Bead, error) {
	return pdf.GetFacade(doc, ref, decodeBead)
}

func decodeBead(doc *pdf.Document, ref pdf.Reference) (*Bead, error) {
	dict, err := pdf.GetDictTyped(doc, ref, "Bead")
	if err != nil {
		return nil, pdf.Wrap(err, "bead "+ref.String())
	} else if dict == nil {
		return nil, &pdf.MalformedFileError{
			Err: errNotDict,
			Loc: []string{"bead " + ref.String()},
		}
	}
	return &Bead{doc: doc, ref: ref}, nil
}

// Ref returns the identity of the bead dictionary.
// This implements the [pdf.Facade] interface.
func (b *Bead) Ref() pdf.Reference {
	return b.ref
}

func (b *Bead) dict() (pdf.Dict, error) {
	dict, err := pdf.GetDict(b.doc, b.ref)
	if err != nil {
		return nil, pdf.Wrap(err, "bead "+b.ref.String())
	}
	return dict, nil
}

// link returns the reference stored under key.  A missing link is an
// error, since the beads of a thread form a closed loop.
func (b *Bead) link(key pdf.Name) (pdf.Reference, error) {
	dict, err := b.dict()
	if err != nil {
		return 0, err
	}
	ref, err := pdf.GetReference(dict[key])
	if err == nil && ref == 0 {
		err = &pdf.MalformedFileError{Err: errors.New("missing link")}
	}
	if err != nil {
		return 0, pdf.Wrap(pdf.Wrap(err, string(key)), "bead "+b.ref.String())
	}
	return ref, nil
}

func (b *Bead) nextRef() (pdf.Reference, error) {
	return b.link("N")
}

func (b *Bead) prevRef() (pdf.Reference, error) {
	return b.link("V")
}

// Next returns the next bead of the thread.  For the last bead, this is
// the first bead.
func (b *Bead) Next() (*Bead, error) {
	ref, err := b.nextRef()
	if err != nil {
		return nil, err
	}
	return GetBead(b.doc, ref)
}

// Prev returns the previous bead of the thread.  For the first bead, this
// is the last bead.
func (b *Bead) Prev() (*Bead, error) {
	ref, err := b.prevRef()
	if err != nil {
		return nil, err
	}
	return GetBead(b.doc, ref)
}

// Page returns the page on which the bead appears.
func (b *Bead) Page() (*pagetree.Page, error) {
	ref, err := b.link("P")
	if err != nil {
		return nil, err
	}
	return pagetree.Get(b.doc, ref)
}

// Thread returns the thread the bead belongs to.
//
// Only the first bead of a thread is required to have a /T entry.  For
// other beads, the /V links are followed back until a bead with a /T
// entry is found.
func (b *Bead) Thread() (*Thread, error) {
	cc := pdf.NewCycleChecker()
	cur := b
	for {
		if err := cc.Check(cur.ref); err != nil {
			return nil, pdf.Wrap(errNoThread, "bead "+b.ref.String())
		}
		dict, err := cur.dict()
		if err != nil {
			return nil, err
		}
		if ref, ok := dict["T"].(pdf.Reference); ok {
			return Get(b.doc, ref)
		}
		cur, err = cur.Prev()
		if err != nil {
			return nil, err
		}
	}
}

var errNoThread = &pdf.MalformedFileError{Err: errors.New("no thread found")}

// Rect returns the rectangle of the bead, in default user space
// coordinates of the page.
func (b *Bead) Rect() (*rect.Rect, error) {
	dict, err := b.dict()
	if err != nil {
		return nil, err
	}
	r, err := pdf.GetRectangle(b.doc, dict["R"])
	if err != nil {
		return nil, pdf.Wrap(err, "bead "+b.ref.String())
	}
	return r, nil
}

// SetRect sets the rectangle of the bead.
func (b *Bead) SetRect(r rect.Rect) error {
	return b.doc.SetDictEntry(b.ref, "R", pdf.Rectangle(r))
}

func (b *Bead) removeFromPage() error {
	ref, err := b.link("P")
	if err != nil {
		// beads without a page are not listed anywhere
		return nil
	}
	p, err := pagetree.Get(b.doc, ref)
	if pdf.IsMalformed(err) || errors.Is(err, pdf.ErrBrokenReference) {
		return nil
	} else if err != nil {
		return err
	}
	_, err = p.RemoveBead(b.ref)
	return err
}

// Delete removes the bead from its thread and from its page, and frees the
// bead dictionary.
//
// If the bead was the first bead of the thread, the next bead becomes the
// first bead.  If it was the only bead, the thread is left without beads.
func (b *Bead) Delete() error {
	t, err := b.Thread()
	if err != nil {
		return err
	}
	next, err := b.nextRef()
	if err != nil {
		return err
	}
	prev, err := b.prevRef()
	if err != nil {
		return err
	}

	if err := b.removeFromPage(); err != nil {
		return err
	}

	tDict, err := t.dict()
	if err != nil {
		return err
	}
	isFirst := tDict["F"] == b.ref

	if next == b.ref {
		// the only bead of the thread
		if err := b.doc.SetDictEntry(t.ref, "F", nil); err != nil {
			return err
		}
	} else {
		if err := b.doc.SetDictEntry(prev, "N", next); err != nil {
			return pdf.Wrap(err, "bead "+prev.String())
		}
		if err := b.doc.SetDictEntry(next, "V", prev); err != nil {
			return pdf.Wrap(err, "bead "+next.String())
		}
		if isFirst {
			if err := b.doc.SetDictEntry(t.ref, "F", next); err != nil {
				return err
			}
			if err := b.doc.SetDictEntry(next, "T", t.ref); err != nil {
				return err
			}
		}
	}

	return b.doc.Free(b.ref)
}
