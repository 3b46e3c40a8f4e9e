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

package pdf

import (
	"errors"
	"io"
	"os"
	"reflect"
)

// Document is an editable PDF document.
//
// A Document combines a [Store] with a cache of typed facades, see [GetFacade].
// Like the store, a Document must only be used by one goroutine at a time.
type Document struct {
	store *Store

	facades map[facadeKey]Facade
	byRef   map[Reference][]reflect.Type
}

// NewDocument creates a new, empty document.  The document has a catalog
// and an empty page tree.
func NewDocument(v Version) (*Document, error) {
	s, err := NewStore(v)
	if err != nil {
		return nil, err
	}
	pages := s.Register(Dict{
		"Type":  Name("Pages"),
		"Kids":  Array{},
		"Count": Integer(0),
	})
	catalog := s.Register(Dict{
		"Type":  Name("Catalog"),
		"Pages": pages,
	})
	s.SetTrailer("Root", catalog)
	return NewDocumentFromStore(s), nil
}

// NewDocumentFromStore creates a document which uses the given store.
func NewDocumentFromStore(s *Store) *Document {
	return &Document{
		store:   s,
		facades: make(map[facadeKey]Facade),
		byRef:   make(map[Reference][]reflect.Type),
	}
}

// Load creates a document from a PDF file image.
// The document takes ownership of data.
func Load(data []byte, opt *ReaderOptions) (*Document, error) {
	s, err := LoadStore(data, opt)
	if err != nil {
		return nil, err
	}
	return NewDocumentFromStore(s), nil
}

// Open reads a PDF file into memory and creates a document from it.
func Open(fname string, opt *ReaderOptions) (*Document, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return Load(data, opt)
}

// Store returns the object store underlying the document.
// Changes made directly to the store bypass the facade cache.
func (d *Document) Store() *Store {
	return d.store
}

// Get implements the [Getter] interface.
func (d *Document) Get(ref Reference) (Object, error) {
	return d.store.Resolve(ref)
}

// Resolve returns the object with the given identity, see [Store.Resolve].
func (d *Document) Resolve(ref Reference) (Object, error) {
	return d.store.Resolve(ref)
}

// Register adds a new object to the document, see [Store.Register].
func (d *Document) Register(obj Object) Reference {
	return d.store.Register(obj)
}

// Update replaces an object and marks it as changed.
func (d *Document) Update(ref Reference, obj Object) error {
	return d.store.Update(ref, obj)
}

// Free removes an object from the document and drops all facades for it.
//
// Objects which refer to ref are not changed.  Facade types which own
// linked objects provide their own Delete methods, which also remove the
// references to the deleted object.
func (d *Document) Free(ref Reference) error {
	err := d.store.Free(ref)
	if err != nil {
		return err
	}
	d.Invalidate(ref)
	return nil
}

// IsLive reports whether ref refers to an object in the document.
func (d *Document) IsLive(ref Reference) bool {
	return d.store.IsLive(ref)
}

// SetDictEntry sets one entry of the dictionary ref and marks the
// dictionary as changed.  A nil value removes the entry.
func (d *Document) SetDictEntry(ref Reference, key Name, val Object) error {
	dict, err := GetDict(d, ref)
	if err != nil {
		return err
	}
	if dict == nil {
		return &MalformedFileError{
			Err: errNotDict,
			Loc: []string{"object " + ref.String()},
		}
	}
	if val == nil {
		if _, ok := dict[key]; !ok {
			return nil
		}
		delete(dict, key)
	} else {
		dict[key] = val
	}
	return d.store.Update(ref, dict)
}

var errNotDict = errors.New("not a dictionary")

// Root returns the identity of the document catalog.
func (d *Document) Root() (Reference, error) {
	return d.store.Root()
}

// SaveIncremental appends all changes to the file image,
// see [Store.SaveIncremental].
func (d *Document) SaveIncremental() error {
	return d.store.SaveIncremental()
}

// SaveInPlace rewrites the file image as a single revision,
// see [Store.SaveInPlace].
func (d *Document) SaveInPlace() error {
	return d.store.SaveInPlace()
}

// WriteTo writes the file image to w.  Call one of the Save methods
// first, to include unsaved changes.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.store.WriteTo(w)
}
