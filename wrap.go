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
	"reflect"
)

// A Facade is a typed view of one indirect object.
//
// Facades are obtained using [GetFacade].  For a given object and facade type,
// at most one facade exists at a time.  Facades do not copy the object's
// data; accessors read the object from the [Document] and setters write
// it back using [Document.Update].
type Facade interface {
	// Ref returns the identity of the underlying object.
	Ref() Reference
}

type facadeKey struct {
	ref Reference
	tp  reflect.Type
}

// GetFacade returns the facade of type T for the object ref.
//
// If a facade of this type already exists for ref, the cached facade is
// returned.  Otherwise the object is resolved and decode is called to
// construct a new facade, which is then cached.  If ref is not a live
// object, or if decode fails, the error is returned and nothing is cached.
//
// Cached facades are kept until the object is freed using [Document.Free]
// or until [Document.Invalidate] is called.
func GetFacade[T Facade](d *Document, ref Reference, decode func(*Document, Reference) (T, error)) (T, error) {
	var zero T
	key := facadeKey{ref: ref, tp: reflect.TypeFor[T]()}
	if f, ok := d.facades[key]; ok {
		return f.(T), nil
	}

	if _, err := d.store.Resolve(ref); err != nil {
		return zero, err
	}

	f, err := decode(d, ref)
	if err != nil {
		return zero, err
	}
	if f.Ref() != ref {
		return zero, errors.New("facade bound to " + f.Ref().String() + " instead of " + ref.String())
	}

	// decode may have changed the document, but not the identity of ref
	if !d.store.IsLive(ref) {
		return zero, &BrokenReferenceError{Ref: ref}
	}
	d.facades[key] = f
	d.byRef[ref] = append(d.byRef[ref], key.tp)
	return f, nil
}

// Invalidate removes all cached facades for ref.  The next call to [GetFacade]
// constructs a new facade.
//
// This is used after structural changes which make derived state held by
// a facade stale.
func (d *Document) Invalidate(ref Reference) {
	for _, tp := range d.byRef[ref] {
		delete(d.facades, facadeKey{ref: ref, tp: tp})
	}
	delete(d.byRef, ref)
}

// CycleChecker detects circular references in PDF object structures to prevent
// infinite recursion during object traversal. It maintains a set of visited
// references and returns an error when a cycle is detected.
type CycleChecker struct {
	seen map[Reference]bool
}

// NewCycleChecker creates a new CycleChecker with an empty set of seen references.
func NewCycleChecker() *CycleChecker {
	return &CycleChecker{seen: make(map[Reference]bool)}
}

// Check examines the given PDF object for circular references. If the object
// is not a reference, Check returns nil immediately.  If the object is a
// reference that has already been seen by this CycleChecker, Check returns
// an error wrapping ErrCycle.  Otherwise, Check marks the reference as seen
// and returns nil.
func (s *CycleChecker) Check(obj Object) error {
	ref, ok := obj.(Reference)
	if !ok {
		return nil
	}
	if s.seen[ref] {
		return &MalformedFileError{Err: ErrCycle, Loc: []string{"object " + ref.String()}}
	}
	s.seen[ref] = true
	return nil
}

// ErrCycle indicates a loop in a structure which must be acyclic, like a
// page tree.
var ErrCycle = errors.New("cycle in recursive structure")
