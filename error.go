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
	"strconv"
	"strings"
)

// MalformedFileError indicates that a PDF file or a part of it could not
// be parsed, or that an object does not have the expected structure.
type MalformedFileError struct {
	// Err is the underlying error, if any.
	Err error

	// Pos is the byte offset in the file where the problem was found,
	// or 0 if unknown.
	Pos int64

	// Loc describes where in the object graph the problem was found.
	// The outermost location comes first.
	Loc []string
}

func (err *MalformedFileError) Error() string {
	var b strings.Builder
	b.WriteString("not a valid PDF file")
	for _, loc := range err.Loc {
		b.WriteString(": ")
		b.WriteString(loc)
	}
	if err.Err != nil {
		b.WriteString(": ")
		b.WriteString(err.Err.Error())
	}
	if err.Pos > 0 {
		b.WriteString(" (at byte ")
		b.WriteString(strconv.FormatInt(err.Pos, 10))
		b.WriteString(")")
	}
	return b.String()
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// Error returns a [MalformedFileError] with the given message.
func Error(msg string) error {
	return &MalformedFileError{Err: errors.New(msg)}
}

// Errorf returns a [MalformedFileError] with a formatted message.
func Errorf(format string, args ...any) error {
	return &MalformedFileError{Err: fmt.Errorf(format, args...)}
}

// Wrap adds location information to an error.
//
// For a [MalformedFileError], loc is prepended to the location path.  Other
// errors are wrapped using fmt.Errorf.  If err is nil, Wrap returns nil.
func Wrap(err error, loc string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*MalformedFileError); ok {
		return &MalformedFileError{
			Err: e.Err,
			Pos: e.Pos,
			Loc: append([]string{loc}, e.Loc...),
		}
	}
	return fmt.Errorf("%s: %w", loc, err)
}

// IsMalformed reports whether err is or wraps a [MalformedFileError].
func IsMalformed(err error) bool {
	var e *MalformedFileError
	return errors.As(err, &e)
}

// Optional downgrades a [MalformedFileError] to "absent": if err indicates
// malformed data, the zero value and a nil error are returned.  Other
// errors, including broken references, are passed through.
//
// This is used for optional entries of PDF dictionaries, where broken data
// can be ignored.
func Optional[T any](x T, err error) (T, error) {
	if IsMalformed(err) && !errors.Is(err, ErrBrokenReference) {
		var zero T
		return zero, nil
	}
	return x, err
}

// ErrBrokenReference is matched by errors.Is for every
// [BrokenReferenceError].
var ErrBrokenReference = errors.New("broken reference")

// BrokenReferenceError is returned when an object identity is not present
// in the store, either because the object was never created or because it
// has been freed.
type BrokenReferenceError struct {
	Ref Reference
}

func (err *BrokenReferenceError) Error() string {
	return "broken reference to " + err.Ref.String()
}

// Is makes errors.Is(err, ErrBrokenReference) work.
func (err *BrokenReferenceError) Is(target error) bool {
	return target == ErrBrokenReference
}

// ErrDuplicateRegistration is returned when an object is registered under
// an identity which is already in use.
var ErrDuplicateRegistration = errors.New("object identity already in use")

var errVersion = errors.New("unsupported PDF version")
