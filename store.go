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
	"fmt"
	"io"
	"slices"

	"github.com/alexandrvslv/pdf-clown-sub003/buffer"
)

// Store maps object identities to objects.
//
// Objects read from a file are parsed lazily: until an object is first
// accessed, the store only records the byte range of the object in the
// file image.  Objects added or changed by the caller are kept in memory
// and are marked dirty, until the next save writes them into the file
// image.
//
// A Store is not safe for concurrent use.
type Store struct {
	buf *buffer.Buffer

	// entries is indexed by object number.  Entry 0 is the head of the
	// free list and never holds an object.
	entries []entry

	// freeNums lists the free object numbers which can be reused,
	// in increasing order.
	freeNums []uint32

	// freed records the numbers freed since the last save.
	freed map[uint32]struct{}

	// garbage lists byte ranges of objects which are no longer used.
	// These are removed by SaveInPlace.
	garbage []span

	// xrefSpans lists the byte ranges of all xref sections and trailers
	// in the file image.
	xrefSpans []span

	// startXRef is the position of the most recent xref section,
	// or 0 if the file image does not yet have one.
	startXRef int64

	trailer Dict
	version Version

	resolving map[Reference]bool

	// parses counts how often object bytes have been parsed.
	parses int
}

type span struct {
	start, end int64
}

type entryState uint8

const (
	stateFree entryState = iota
	stateUnresolved
	stateResolved
)

type entry struct {
	state entryState

	// gen is the generation of a live object.  For free entries, this is
	// the generation to use when the number is reused.
	gen uint16

	// pos and length give the byte range of the object in the file image,
	// if any.  Unresolved entries always have a byte range.
	pos, length int64

	// version is the buffer version at the time pos was recorded.
	version uint64

	obj   Object
	dirty bool
}

func (e *entry) hasRange() bool {
	return e.length > 0
}

// NewStore creates an empty store for a new PDF file of the given version.
// The file image initially holds only the file header.
func NewStore(v Version) (*Store, error) {
	verString, err := v.ToString()
	if err != nil {
		return nil, err
	}
	buf := buffer.New(4096)
	buf.AppendString("%PDF-" + verString + "\n%\x80\x80\x80\x80\n")

	s := newStore(buf, v)
	return s, nil
}

func newStore(buf *buffer.Buffer, v Version) *Store {
	return &Store{
		buf:       buf,
		entries:   []entry{{state: stateFree, gen: 65535}},
		freed:     make(map[uint32]struct{}),
		trailer:   Dict{},
		version:   v,
		resolving: make(map[Reference]bool),
	}
}

// Version returns the PDF version given in the file header.
func (s *Store) Version() Version {
	return s.version
}

// Size returns one more than the highest object number in use.
// This is the value of the /Size entry in the trailer.
func (s *Store) Size() int {
	return len(s.entries)
}

// Bytes returns the current file image.  The returned slice is only valid
// until the next modification of the store.
func (s *Store) Bytes() []byte {
	return s.buf.Bytes()
}

// WriteTo writes the current file image to w.  Changes which have not
// been saved are not included.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	return s.buf.WriteTo(w)
}

// live returns the entry for ref, or a [BrokenReferenceError] if ref does
// not refer to a live object.
func (s *Store) live(ref Reference) (*entry, error) {
	num := ref.Number()
	if num == 0 || int(num) >= len(s.entries) {
		return nil, &BrokenReferenceError{Ref: ref}
	}
	e := &s.entries[num]
	if e.state == stateFree || e.gen != ref.Generation() {
		return nil, &BrokenReferenceError{Ref: ref}
	}
	return e, nil
}

// Resolve returns the object with the given identity.
//
// On first access, the object is parsed from the file image and the result
// is kept.  Later calls return the same value without parsing again.
// If ref does not refer to a live object, a [*BrokenReferenceError] is
// returned.  If the bytes of the object cannot be parsed, a
// [*MalformedFileError] is returned.
func (s *Store) Resolve(ref Reference) (Object, error) {
	e, err := s.live(ref)
	if err != nil {
		return nil, err
	}
	if e.state == stateResolved {
		return e.obj, nil
	}

	obj, err := s.parse(ref)
	if err != nil {
		return nil, err
	}

	// s.entries may have been reallocated while resolving /Length entries.
	e = &s.entries[ref.Number()]
	e.obj = obj
	e.state = stateResolved
	return obj, nil
}

// Get implements the [Getter] interface.
func (s *Store) Get(ref Reference) (Object, error) {
	return s.Resolve(ref)
}

func (s *Store) parse(ref Reference) (Object, error) {
	e := &s.entries[ref.Number()]
	loc := "object " + ref.String()

	if e.version != s.buf.Version() {
		return nil, &MalformedFileError{
			Pos: e.pos,
			Err: errStaleRange,
			Loc: []string{loc},
		}
	}
	end := e.pos + e.length
	if e.pos < 0 || end > int64(s.buf.Len()) {
		return nil, &MalformedFileError{
			Pos: e.pos,
			Err: fmt.Errorf("byte range %d-%d outside the file", e.pos, end),
			Loc: []string{loc},
		}
	}
	if s.resolving[ref] {
		return nil, &MalformedFileError{
			Pos: e.pos,
			Err: errors.New("object refers to itself"),
			Loc: []string{loc},
		}
	}
	s.resolving[ref] = true
	defer delete(s.resolving, ref)

	sc := newScanner(s.buf.Bytes()[:end], int(e.pos), func(obj Object) (Integer, error) {
		return GetInt(s, obj)
	})
	obj, have, err := sc.ReadIndirectObject()
	s.parses++
	if err != nil {
		return nil, Wrap(err, loc)
	}
	if have != ref {
		return nil, &MalformedFileError{
			Pos: e.pos,
			Err: fmt.Errorf("found %s instead", have),
			Loc: []string{loc},
		}
	}
	return obj, nil
}

var errStaleRange = errors.New("file image changed since the object was located")

// Register adds a new object to the store and returns its identity.
//
// The lowest free object number is reused, with the generation number
// incremented.  If no free number is available, a new number is allocated.
func (s *Store) Register(obj Object) Reference {
	var num uint32
	if len(s.freeNums) > 0 {
		num = s.freeNums[0]
		s.freeNums = s.freeNums[1:]
	} else {
		num = uint32(len(s.entries))
		s.entries = append(s.entries, entry{})
	}
	delete(s.freed, num)

	e := &s.entries[num]
	*e = entry{
		state: stateResolved,
		gen:   e.gen,
		obj:   obj,
		dirty: true,
	}
	return NewReference(num, e.gen)
}

// RegisterAt adds a new object to the store, using the given identity.
// If the object number is in use, [ErrDuplicateRegistration] is returned.
func (s *Store) RegisterAt(ref Reference, obj Object) error {
	num := ref.Number()
	if num == 0 {
		return fmt.Errorf("%s: %w", ref, ErrDuplicateRegistration)
	}
	for uint32(len(s.entries)) <= num {
		n := uint32(len(s.entries))
		s.entries = append(s.entries, entry{})
		if n < num {
			s.freeNums = append(s.freeNums, n)
			s.freed[n] = struct{}{}
		}
	}

	e := &s.entries[num]
	if e.state != stateFree {
		return fmt.Errorf("%s: %w", ref, ErrDuplicateRegistration)
	}
	if idx, found := slices.BinarySearch(s.freeNums, num); found {
		s.freeNums = slices.Delete(s.freeNums, idx, idx+1)
	}
	delete(s.freed, num)

	*e = entry{
		state: stateResolved,
		gen:   ref.Generation(),
		obj:   obj,
		dirty: true,
	}
	return nil
}

// Update replaces the object with the given identity and marks it as
// changed.  If ref does not refer to a live object, a
// [*BrokenReferenceError] is returned.
func (s *Store) Update(ref Reference, obj Object) error {
	e, err := s.live(ref)
	if err != nil {
		return err
	}
	e.obj = obj
	e.state = stateResolved
	e.dirty = true
	return nil
}

// Free removes the object with the given identity from the store.
// Afterwards, the object number can be reused with the next generation
// number.  Other objects referring to ref are not changed.
func (s *Store) Free(ref Reference) error {
	e, err := s.live(ref)
	if err != nil {
		return err
	}
	if e.hasRange() {
		s.garbage = append(s.garbage, span{e.pos, e.pos + e.length})
	}

	gen := e.gen
	*e = entry{state: stateFree, gen: gen}
	num := ref.Number()
	s.freed[num] = struct{}{}
	if gen < 65535 {
		e.gen = gen + 1
		idx, _ := slices.BinarySearch(s.freeNums, num)
		s.freeNums = slices.Insert(s.freeNums, idx, num)
	}
	return nil
}

// IsResolved reports whether the object with the given identity is held
// in memory.  Objects which are not resolved are copied verbatim when the
// file is saved.
func (s *Store) IsResolved(ref Reference) bool {
	e, err := s.live(ref)
	return err == nil && e.state == stateResolved
}

// IsDirty reports whether the object with the given identity has been
// added or changed since the file image was last saved.
func (s *Store) IsDirty(ref Reference) bool {
	e, err := s.live(ref)
	return err == nil && e.dirty
}

// IsLive reports whether ref refers to an object in the store.
func (s *Store) IsLive(ref Reference) bool {
	_, err := s.live(ref)
	return err == nil
}

// Refs returns the identities of all objects in the store, in order of
// increasing object number.
func (s *Store) Refs() []Reference {
	var res []Reference
	for num := 1; num < len(s.entries); num++ {
		e := &s.entries[num]
		if e.state != stateFree {
			res = append(res, NewReference(uint32(num), e.gen))
		}
	}
	return res
}

// Trailer returns a copy of the trailer dictionary.  Entries which
// describe the cross-reference table (/Size, /Prev) are not included.
func (s *Store) Trailer() Dict {
	return s.trailer.Clone()
}

// SetTrailer sets an entry of the trailer dictionary.  A nil value
// removes the entry.
func (s *Store) SetTrailer(key Name, val Object) {
	switch key {
	case "Size", "Prev":
		return
	}
	if val == nil {
		delete(s.trailer, key)
	} else {
		s.trailer[key] = val
	}
}

// Root returns the identity of the document catalog.
func (s *Store) Root() (Reference, error) {
	ref, ok := s.trailer["Root"].(Reference)
	if !ok {
		return 0, &MalformedFileError{Err: errors.New("missing /Root in trailer")}
	}
	return ref, nil
}
