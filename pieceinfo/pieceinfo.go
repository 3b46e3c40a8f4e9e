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

// Package pieceinfo gives access to page-piece dictionaries.
//
// A page-piece dictionary (/PieceInfo) holds private data of the PDF
// processors which have worked on a page, a form XObject or the whole
// document.  The data is stored per application name, together with the
// time of the last modification.
package pieceinfo

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// Info is a facade for the page-piece dictionary of one object.
// The owner is the page, form XObject or catalog which holds the
// /PieceInfo entry.
type Info struct {
	doc   *pdf.Document
	owner pdf.Reference
}

// Open returns the facade for the page-piece dictionary of owner.
// It is not an error if owner has no /PieceInfo entry yet.
func Open(doc *pdf.Document, owner pdf.Reference) (*Info, error) {
	return pdf.GetFacade(doc, owner, decodeInfo)
}

func decodeInfo(doc *pdf.Document, owner pdf.Reference) (*Info, error) {
	dict, err := pdf.GetDict(doc, owner)
	if err != nil {
		return nil, err
	} else if dict == nil {
		return nil, &pdf.MalformedFileError{
			Err: errNoOwner,
			Loc: []string{"object " + owner.String()},
		}
	}
	if _, err := pdf.GetDict(doc, dict["PieceInfo"]); err != nil {
		return nil, pdf.Wrap(err, "PieceInfo")
	}
	return &Info{doc: doc, owner: owner}, nil
}

// Ref returns the identity of the owner.
// This implements the [pdf.Facade] interface.
func (i *Info) Ref() pdf.Reference {
	return i.owner
}

// Entry is the data dictionary of one application.
type Entry struct {
	LastModified time.Time

	// Private holds the /Private entry of the data dictionary.
	Private pdf.Object
}

// pieces returns a copy of the page-piece dictionary, together with its
// identity if it is an indirect object.
func (i *Info) pieces() (pdf.Dict, pdf.Reference, error) {
	owner, err := pdf.GetDict(i.doc, i.owner)
	if err != nil {
		return nil, 0, err
	}
	ref, _ := owner["PieceInfo"].(pdf.Reference)
	dict, err := pdf.GetDict(i.doc, owner["PieceInfo"])
	if err != nil {
		return nil, 0, pdf.Wrap(err, "PieceInfo")
	}
	return dict.Clone(), ref, nil
}

func (i *Info) store(dict pdf.Dict, ref pdf.Reference) error {
	if len(dict) == 0 {
		if ref != 0 {
			if err := i.doc.Free(ref); err != nil {
				return err
			}
		}
		return i.doc.SetDictEntry(i.owner, "PieceInfo", nil)
	}
	if ref != 0 {
		return i.doc.Update(ref, dict)
	}
	return i.doc.SetDictEntry(i.owner, "PieceInfo", dict)
}

// Names returns the application names in the page-piece dictionary,
// in sorted order.
func (i *Info) Names() ([]pdf.Name, error) {
	dict, _, err := i.pieces()
	if err != nil {
		return nil, err
	}
	var names []pdf.Name
	for name := range dict {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Get returns the data dictionary for the application name.
// If there is no such entry, [ErrNotFound] is returned.
func (i *Info) Get(name pdf.Name) (*Entry, error) {
	dict, _, err := i.pieces()
	if err != nil {
		return nil, err
	}
	data, err := pdf.GetDict(i.doc, dict[name])
	if err != nil {
		return nil, pdf.Wrap(err, string(name))
	} else if data == nil {
		return nil, ErrNotFound
	}

	lastModified, err := pdf.Optional(pdf.GetDate(i.doc, data["LastModified"]))
	if err != nil {
		return nil, pdf.Wrap(err, string(name))
	}
	return &Entry{
		LastModified: lastModified,
		Private:      data["Private"],
	}, nil
}

// Set stores private data for the application name, replacing any
// existing entry.  Dictionaries, arrays and streams are stored as
// indirect objects.  The modification times of the entry and of the
// owner are set to the current time.
//
// If the old entry had an indirect /Private object which is not reused,
// the old object is freed.
func (i *Info) Set(name pdf.Name, private pdf.Object) error {
	dict, ref, err := i.pieces()
	if err != nil {
		return err
	}
	if dict == nil {
		dict = pdf.Dict{}
	}

	old, err := i.Get(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if old != nil {
		if oldRef, ok := old.Private.(pdf.Reference); ok && oldRef != private && i.doc.IsLive(oldRef) {
			if err := i.doc.Free(oldRef); err != nil {
				return err
			}
		}
	}

	if dataRef, ok := dict[name].(pdf.Reference); ok && i.doc.IsLive(dataRef) {
		if err := i.doc.Free(dataRef); err != nil {
			return err
		}
	}

	var newRef pdf.Reference
	switch private.(type) {
	case pdf.Dict, pdf.Array, *pdf.Stream:
		newRef = i.doc.Register(private)
		private = newRef
	}

	t := now()
	data := pdf.Dict{"LastModified": pdf.Date(t)}
	if private != nil {
		data["Private"] = private
	}
	dict[name] = data
	if err := i.store(dict, ref); err != nil {
		if newRef != 0 {
			i.doc.Free(newRef)
		}
		return err
	}
	return i.doc.SetDictEntry(i.owner, "LastModified", pdf.Date(t))
}

// Delete removes the entry for the application name.  An indirect
// /Private object is freed.  If the page-piece dictionary becomes empty,
// it is removed from the owner.
//
// The return value reports whether an entry was removed.
func (i *Info) Delete(name pdf.Name) (bool, error) {
	entry, err := i.Get(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if ref, ok := entry.Private.(pdf.Reference); ok && i.doc.IsLive(ref) {
		if err := i.doc.Free(ref); err != nil {
			return false, err
		}
	}

	dict, ref, err := i.pieces()
	if err != nil {
		return false, err
	}
	if dataRef, ok := dict[name].(pdf.Reference); ok && i.doc.IsLive(dataRef) {
		if err := i.doc.Free(dataRef); err != nil {
			return false, err
		}
	}
	delete(dict, name)
	return true, i.store(dict, ref)
}

// LastModified returns the modification time of the owner, as given by
// its /LastModified entry.  The zero time is returned if the entry is
// missing or malformed.
func (i *Info) LastModified() (time.Time, error) {
	owner, err := pdf.GetDict(i.doc, i.owner)
	if err != nil {
		return time.Time{}, err
	}
	return pdf.Optional(pdf.GetDate(i.doc, owner["LastModified"]))
}

// Data returns the decoded private data for the application name, using
// the handler installed by [Register].  If no handler is registered for
// name, the /Private object is returned as an [Opaque] value.
func (i *Info) Data(name pdf.Name) (Data, error) {
	entry, err := i.Get(name)
	if err != nil {
		return nil, err
	}

	registryMu.RLock()
	handler, exists := registry[name]
	registryMu.RUnlock()
	if !exists {
		return &Opaque{Entry: *entry}, nil
	}
	return handler(i.doc, entry)
}

// Data is the decoded form of the private data of one application.
type Data interface {
	LastModified() time.Time
}

// Opaque is used for applications without a registered handler.
// The data is not interpreted in any way.
type Opaque struct {
	Entry
}

// LastModified implements the [Data] interface.
func (o *Opaque) LastModified() time.Time {
	return o.Entry.LastModified
}

// Register installs a handler for page-piece dictionary entries with the
// given application name.  The handler is called by [Info.Data] with the
// data dictionary of the entry.
//
// If the handler returns ErrDiscard, [Info.Data] returns [ErrNotFound].
func Register(name pdf.Name, handler func(r pdf.Getter, entry *Entry) (Data, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = func(r pdf.Getter, entry *Entry) (Data, error) {
		data, err := handler(r, entry)
		if errors.Is(err, ErrDiscard) {
			return nil, ErrNotFound
		}
		return data, err
	}
}

var (
	registryMu sync.RWMutex
	registry   = make(map[pdf.Name]func(r pdf.Getter, entry *Entry) (Data, error))
)

var (
	// ErrDiscard is a special error value which can be returned by a
	// handler to indicate that the entry should be ignored.
	ErrDiscard = errors.New("discard")

	// ErrNotFound is returned if an application has no entry in the
	// page-piece dictionary.
	ErrNotFound = errors.New("no such application data")

	errNoOwner = errors.New("page-piece owner is not a dictionary")
)

// now is replaced in tests.
var now = time.Now
