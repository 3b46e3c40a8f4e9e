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

// Package thread implements article threads.
//
// An article thread is a sequence of rectangular regions, called beads,
// which a reader follows through the pages of a document.  The beads of a
// thread form a circular doubly linked list (/N and /V), the thread
// dictionary points to the first bead (/F), and every bead points back to
// its page (/P).  Each page lists its beads in the /B array.  The threads
// of a document are listed in the /Threads array of the catalog.
package thread

import (
	"errors"

	"seehuhn.de/go/geom/rect"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/pagetree"
)

// Thread is a facade for a thread dictionary.
type Thread struct {
	doc *pdf.Document
	ref pdf.Reference
}

// Get returns the facade for the thread ref.
func Get(doc *pdf.Document, ref pdf.Reference) (*Thread, error) {
	return pdf.GetFacade(doc, ref, decodeThread)
}

func decodeThread(doc *pdf.Document, ref pdf.Reference) (*Thread, error) {
	dict, err := pdf.GetDictTyped(doc, ref, "Thread")
	if err != nil {
		return nil, pdf.Wrap(err, "thread "+ref.String())
	} else if dict == nil {
		return nil, &pdf.MalformedFileError{
			Err: errNotDict,
			Loc: []string{"thread " + ref.String()},
		}
	}
	return &Thread{doc: doc, ref: ref}, nil
}

// New creates a new, empty thread and adds it to the /Threads array of
// the document catalog.
func New(doc *pdf.Document, title string) (*Thread, error) {
	dict := pdf.Dict{"Type": pdf.Name("Thread")}
	if title != "" {
		dict["I"] = pdf.Dict{"Title": pdf.TextString(title)}
	}
	ref := doc.Register(dict)

	threads, err := catalogThreads(doc)
	if err != nil {
		return nil, err
	}
	if err := setCatalogThreads(doc, append(threads, ref)); err != nil {
		return nil, err
	}
	return Get(doc, ref)
}

// All returns the threads listed in the document catalog.
// Entries which are not valid threads are skipped.
func All(doc *pdf.Document) ([]*Thread, error) {
	refs, err := catalogThreads(doc)
	if err != nil {
		return nil, err
	}
	var res []*Thread
	for _, ref := range refs {
		t, err := Get(doc, ref)
		if pdf.IsMalformed(err) || errors.Is(err, pdf.ErrBrokenReference) {
			continue
		} else if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

func catalogThreads(doc *pdf.Document) ([]pdf.Reference, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	obj, err := cat.Get("Threads")
	if err != nil {
		return nil, err
	}
	a, err := pdf.Optional(pdf.GetArray(doc, obj))
	if err != nil {
		return nil, pdf.Wrap(err, "Threads")
	}
	var refs []pdf.Reference
	for _, obj := range a {
		if ref, ok := obj.(pdf.Reference); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func setCatalogThreads(doc *pdf.Document, refs []pdf.Reference) error {
	cat, err := doc.Catalog()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return cat.Set("Threads", nil)
	}
	a := make(pdf.Array, len(refs))
	for i, ref := range refs {
		a[i] = ref
	}
	return cat.Set("Threads", a)
}

// Ref returns the identity of the thread dictionary.
// This implements the [pdf.Facade] interface.
func (t *Thread) Ref() pdf.Reference {
	return t.ref
}

func (t *Thread) dict() (pdf.Dict, error) {
	dict, err := pdf.GetDict(t.doc, t.ref)
	if err != nil {
		return nil, pdf.Wrap(err, "thread "+t.ref.String())
	}
	return dict, nil
}

// Title returns the title from the thread information dictionary.
func (t *Thread) Title() (string, error) {
	dict, err := t.dict()
	if err != nil {
		return "", err
	}
	info, err := pdf.Optional(pdf.GetDict(t.doc, dict["I"]))
	if err != nil {
		return "", err
	}
	return pdf.Optional(pdf.GetTextString(t.doc, info["Title"]))
}

// SetTitle sets the title in the thread information dictionary.
// An empty title removes the entry.
func (t *Thread) SetTitle(title string) error {
	dict, err := t.dict()
	if err != nil {
		return err
	}

	var infoRef pdf.Reference
	var info pdf.Dict
	switch obj := dict["I"].(type) {
	case pdf.Reference:
		infoRef = obj
		info, err = pdf.Optional(pdf.GetDict(t.doc, obj))
		if err != nil {
			return err
		}
	case pdf.Dict:
		info = obj
	}
	info = info.Clone()
	if info == nil {
		info = pdf.Dict{}
	}
	if title == "" {
		delete(info, "Title")
	} else {
		info["Title"] = pdf.TextString(title)
	}

	if infoRef != 0 {
		return t.doc.Update(infoRef, info)
	}
	if len(info) == 0 {
		return t.doc.SetDictEntry(t.ref, "I", nil)
	}
	return t.doc.SetDictEntry(t.ref, "I", info)
}

// First returns the first bead of the thread, or nil if the thread has
// no beads.
func (t *Thread) First() (*Bead, error) {
	dict, err := t.dict()
	if err != nil {
		return nil, err
	}
	ref, err := pdf.GetReference(dict["F"])
	if err != nil {
		return nil, pdf.Wrap(err, "thread "+t.ref.String())
	} else if ref == 0 {
		return nil, nil
	}
	return GetBead(t.doc, ref)
}

// Beads returns the beads of the thread, starting with the first bead and
// following the /N links.
//
// If the /N chain runs into a loop which does not return to the first
// bead, a [pdf.MalformedFileError] wrapping [pdf.ErrCycle] is returned.
func (t *Thread) Beads() ([]*Bead, error) {
	first, err := t.First()
	if err != nil || first == nil {
		return nil, err
	}

	cc := pdf.NewCycleChecker()
	var res []*Bead
	b := first
	for {
		if err := cc.Check(b.ref); err != nil {
			return nil, pdf.Wrap(err, "thread "+t.ref.String())
		}
		res = append(res, b)

		next, err := b.nextRef()
		if err != nil {
			return nil, err
		}
		if next == first.ref {
			return res, nil
		}
		b, err = GetBead(t.doc, next)
		if err != nil {
			return nil, err
		}
	}
}

// AppendBead adds a new bead on page p at the end of the thread.
// The bead is added to the /B array of the page.
func (t *Thread) AppendBead(p *pagetree.Page, r rect.Rect) (*Bead, error) {
	first, err := t.First()
	if err != nil {
		return nil, err
	}

	dict := pdf.Dict{
		"Type": pdf.Name("Bead"),
		"T":    t.ref,
		"P":    p.Ref(),
		"R":    pdf.Rectangle(r),
	}
	ref := t.doc.Register(dict)
	dict = dict.Clone()

	if first == nil {
		dict["N"] = ref
		dict["V"] = ref
		if err := t.doc.Update(ref, dict); err != nil {
			return nil, err
		}
		if err := t.doc.SetDictEntry(t.ref, "F", ref); err != nil {
			return nil, err
		}
	} else {
		last, err := first.prevRef()
		if err != nil {
			return nil, err
		}
		dict["N"] = first.ref
		dict["V"] = last
		if err := t.doc.Update(ref, dict); err != nil {
			return nil, err
		}
		if err := t.doc.SetDictEntry(last, "N", ref); err != nil {
			return nil, pdf.Wrap(err, "bead "+last.String())
		}
		if err := t.doc.SetDictEntry(first.ref, "V", ref); err != nil {
			return nil, pdf.Wrap(err, "bead "+first.ref.String())
		}
	}

	if err := p.AddBead(ref); err != nil {
		return nil, err
	}
	return GetBead(t.doc, ref)
}

// Delete deletes the thread together with all its beads.  The beads are
// removed from their pages, the thread is removed from the /Threads array
// of the catalog, and all objects are freed.
func (t *Thread) Delete() error {
	beads, err := t.Beads()
	if err != nil {
		return err
	}
	for _, b := range beads {
		if err := b.removeFromPage(); err != nil {
			return err
		}
	}
	for _, b := range beads {
		if err := t.doc.Free(b.ref); err != nil {
			return err
		}
	}

	refs, err := catalogThreads(t.doc)
	if err != nil {
		return err
	}
	var kept []pdf.Reference
	for _, ref := range refs {
		if ref != t.ref {
			kept = append(kept, ref)
		}
	}
	if len(kept) != len(refs) {
		if err := setCatalogThreads(t.doc, kept); err != nil {
			return err
		}
	}

	dict, err := t.dict()
	if err != nil {
		return err
	}
	if info, ok := dict["I"].(pdf.Reference); ok && t.doc.IsLive(info) {
		if err := t.doc.Free(info); err != nil {
			return err
		}
	}
	return t.doc.Free(t.ref)
}

var errNotDict = errors.New("not a dictionary")
