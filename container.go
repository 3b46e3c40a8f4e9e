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
	"math"
	"time"

	"seehuhn.de/go/geom/rect"
)

// Getter gives access to the indirect objects of a PDF file.
// Both [*Store] and [*Document] implement this interface.
type Getter interface {
	Get(Reference) (Object, error)
}

// Resolve resolves references to indirect objects.
//
// If obj is a [Reference], the function reads the corresponding object from
// the file and returns the result.  If obj is not a [Reference], it is
// returned unchanged.  The function recursively follows chains of references
// until it resolves to a non-reference object.
//
// If a reference loop is encountered, the function returns an error of type
// [MalformedFileError].
func Resolve(r Getter, obj Object) (Object, error) {
	origObj := obj

	count := 0
	for {
		ref, isReference := obj.(Reference)
		if !isReference {
			break
		}
		count++
		if count > 16 {
			return nil, &MalformedFileError{
				Err: errors.New("too many levels of indirection"),
				Loc: []string{"object " + origObj.(Reference).String()},
			}
		}

		var err error
		obj, err = r.Get(ref)
		if err != nil {
			return nil, err
		}
	}

	return obj, nil
}

func resolveAndCast[T Object](r Getter, obj Object) (x T, err error) {
	obj, err = Resolve(r, obj)
	if err != nil {
		return x, err
	}

	if obj == nil {
		return x, nil
	}

	var isCorrectType bool
	x, isCorrectType = obj.(T)
	if isCorrectType {
		return x, nil
	}

	return x, &MalformedFileError{
		Err: fmt.Errorf("expected %T but got %T", x, obj),
	}
}

// Helper functions for getting objects of a specific type.  Each of these
// functions calls Resolve on the object before attempting to convert it to the
// desired type.  If the object is `null`, a zero object is returned without
// error.  If the object is of the wrong type, an error is returned.
//
// The signature of these functions is
//
//	func GetT(r Getter, obj Object) (x T, err error)
//
// where T is the type of the object to be returned.
var (
	GetArray  = resolveAndCast[Array]
	GetBool   = resolveAndCast[Bool]
	GetDict   = resolveAndCast[Dict]
	GetInt    = resolveAndCast[Integer]
	GetName   = resolveAndCast[Name]
	GetReal   = resolveAndCast[Real]
	GetStream = resolveAndCast[*Stream]
	GetString = resolveAndCast[String]
)

// GetDictTyped resolves obj to a dictionary and checks the /Type entry.
// A missing /Type entry is accepted, since many writers omit it.
// If the object is null, nil is returned.
func GetDictTyped(r Getter, obj Object, tp Name) (Dict, error) {
	dict, err := GetDict(r, obj)
	if dict == nil || err != nil {
		return nil, err
	}
	if val, ok := dict["Type"]; ok {
		have, err := GetName(r, val)
		if err != nil {
			return nil, err
		}
		if have != tp {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("expected dictionary type %q, got %q", tp, have),
			}
		}
	}
	return dict, nil
}

// A Number is either an Integer or a Real.
type Number float64

// GetNumber is a helper function for reading numeric values from a PDF file.
// This resolves indirect references and makes sure the resulting object is an
// Integer or a Real.
func GetNumber(r Getter, obj Object) (Number, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case Integer:
		return Number(x), nil
	case Real:
		return Number(x), nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected number but got %T", obj),
		}
	}
}

// GetRectangle resolves references to indirect objects and makes sure the
// resulting object is a PDF rectangle object.
// If the object is null, nil is returned.
func GetRectangle(r Getter, obj Object) (*rect.Rect, error) {
	a, err := GetArray(r, obj)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}

	if len(a) != 4 {
		return nil, errNoRectangle
	}
	var values [4]float64
	for i, obj := range a {
		xi, err := GetNumber(r, obj)
		if err != nil {
			return nil, err
		}
		values[i] = float64(xi)
	}
	return &rect.Rect{
		LLx: math.Min(values[0], values[2]),
		LLy: math.Min(values[1], values[3]),
		URx: math.Max(values[0], values[2]),
		URy: math.Max(values[1], values[3]),
	}, nil
}

var errNoRectangle = &MalformedFileError{Err: errors.New("not a valid PDF rectangle")}

// Rectangle converts a rectangle into a PDF array.
func Rectangle(r rect.Rect) Array {
	return Array{num(r.LLx), num(r.LLy), num(r.URx), num(r.URy)}
}

func num(x float64) Object {
	if i := Integer(x); float64(i) == x {
		return i
	}
	return Real(x)
}

// GetDate resolves references and converts a PDF date string into a
// time.Time.  If the object is null, the zero time is returned.
func GetDate(r Getter, obj Object) (time.Time, error) {
	s, err := GetString(r, obj)
	if err != nil || s == nil {
		return time.Time{}, err
	}
	t, err := s.AsDate()
	if err != nil {
		return time.Time{}, &MalformedFileError{Err: err}
	}
	return t, nil
}

// GetTextString resolves references and decodes a PDF text string.
func GetTextString(r Getter, obj Object) (string, error) {
	s, err := GetString(r, obj)
	if err != nil {
		return "", err
	}
	return s.AsTextString(), nil
}

// GetReference checks that obj is a reference to an indirect object,
// without resolving it.  If obj is null, 0 is returned.
func GetReference(obj Object) (Reference, error) {
	switch x := obj.(type) {
	case nil:
		return 0, nil
	case Reference:
		return x, nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected reference but got %T", obj),
		}
	}
}
