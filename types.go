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
	"bytes"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Object represents an object in a PDF file.  There are nine basic types of
// PDF objects, which implement this interface: [Array], [Bool], [Dict],
// [Integer], [Name], [Real], [Reference], [*Stream], and [String].
// The PDF null object is represented by a nil Object.
type Object interface {
	// PDF writes the PDF file representation of the object to w.
	PDF(w io.Writer) error
}

// Bool represents a boolean value in a PDF file.
type Bool bool

// PDF implements the [Object] interface.
func (x Bool) PDF(w io.Writer) error {
	s := "false"
	if x {
		s = "true"
	}
	_, err := io.WriteString(w, s)
	return err
}

// Integer represents an integer constant in a PDF file.
type Integer int64

// PDF implements the [Object] interface.
func (x Integer) PDF(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(x), 10))
	return err
}

// Real represents an real number in a PDF file.
type Real float64

// PDF implements the [Object] interface.
func (x Real) PDF(w io.Writer) error {
	s := strconv.FormatFloat(float64(x), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s = s + "."
	}
	_, err := io.WriteString(w, s)
	return err
}

// String represents a raw string in a PDF file.  The character set encoding,
// if any, is determined by the context.
type String []byte

// PDF implements the [Object] interface.
//
// Strings are written in literal form, unless more than a third of the
// bytes would need escaping.  In this case, hex form is used.
func (x String) PDF(w io.Writer) error {
	l := []byte(x)

	level := 0
	for _, c := range l {
		if c == '(' {
			level++
		} else if c == ')' {
			level--
			if level < 0 {
				break
			}
		}
	}
	balanced := level == 0

	var funny []int
	for i, c := range l {
		if c < 32 || c == '\\' || !balanced && (c == '(' || c == ')') {
			funny = append(funny, i)
		}
	}
	n := len(l)

	buf := &bytes.Buffer{}
	if 3*len(funny) <= n {
		buf.WriteByte('(')
		pos := 0
		for _, i := range funny {
			buf.Write(l[pos:i])
			switch c := l[i]; c {
			case '\r':
				buf.WriteString(`\r`)
			case '\n':
				buf.WriteString(`\n`)
			case '\t':
				buf.WriteString(`\t`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			case '(', ')', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			default:
				fmt.Fprintf(buf, `\%03o`, c)
			}
			pos = i + 1
		}
		buf.Write(l[pos:n])
		buf.WriteByte(')')
	} else {
		fmt.Fprintf(buf, "<%x>", l)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// Name represents a name object in a PDF file.
type Name string

// PDF implements the [Object] interface.
func (x Name) PDF(w io.Writer) error {
	buf := &bytes.Buffer{}
	buf.WriteByte('/')
	for i := 0; i < len(x); i++ {
		c := x[i]
		if isSpace[c] || isDelimiter[c] || c < 0x21 || c > 0x7e || c == '#' {
			fmt.Fprintf(buf, "#%02x", c)
		} else {
			buf.WriteByte(c)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Array represent an array of objects in a PDF file.
type Array []Object

func (x Array) String() string {
	return "<Array, " + strconv.Itoa(len(x)) + " elements>"
}

// PDF implements the [Object] interface.
func (x Array) PDF(w io.Writer) error {
	_, err := io.WriteString(w, "[")
	if err != nil {
		return err
	}
	for i, val := range x {
		if i > 0 {
			_, err := io.WriteString(w, " ")
			if err != nil {
				return err
			}
		}
		err = writeObject(w, val)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "]")
	return err
}

// Dict represent a Dictionary object in a PDF file.
//
// Entries with a nil value are equivalent to absent entries and are
// omitted when the dictionary is written.
type Dict map[Name]Object

func (x Dict) String() string {
	var res []string
	if tp, ok := x["Type"].(Name); ok {
		res = append(res, string(tp)+" Dict")
	} else {
		res = append(res, "Dict")
	}
	if len(x) != 1 {
		res = append(res, strconv.Itoa(len(x))+" entries")
	} else {
		res = append(res, "1 entry")
	}
	return "<" + strings.Join(res, ", ") + ">"
}

// PDF implements the [Object] interface.
func (x Dict) PDF(w io.Writer) error {
	if x == nil {
		_, err := io.WriteString(w, "null")
		return err
	}

	keys := make([]Name, 0, len(x))
	for key, val := range x {
		if val == nil {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	_, err := io.WriteString(w, "<<")
	if err != nil {
		return err
	}
	for _, name := range keys {
		_, err = io.WriteString(w, "\n")
		if err != nil {
			return err
		}
		err = name.PDF(w)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, " ")
		if err != nil {
			return err
		}
		err = x[name].PDF(w)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "\n>>")
	return err
}

// Clone returns a shallow copy of the dictionary.
func (x Dict) Clone() Dict {
	if x == nil {
		return nil
	}
	res := make(Dict, len(x))
	for key, val := range x {
		res[key] = val
	}
	return res
}

// Stream represent a stream object in a PDF file.
//
// The stream data is kept in memory, in the encoded form found in the file.
// When the stream is written, the /Length entry is set from the data.
type Stream struct {
	Dict
	Data []byte
}

func (x *Stream) String() string {
	var res []string
	if tp, ok := x.Dict["Type"].(Name); ok {
		res = append(res, string(tp)+" Stream")
	} else {
		res = append(res, "Stream")
	}
	res = append(res, strconv.Itoa(len(x.Data))+" bytes")
	switch filter := x.Dict["Filter"].(type) {
	case Name:
		res = append(res, string(filter))
	case Array:
		for _, f := range filter {
			if name, ok := f.(Name); ok {
				res = append(res, string(name))
			}
		}
	}
	return "<" + strings.Join(res, ", ") + ">"
}

// PDF implements the [Object] interface.
func (x *Stream) PDF(w io.Writer) error {
	dict := x.Dict.Clone()
	if dict == nil {
		dict = Dict{}
	}
	dict["Length"] = Integer(len(x.Data))
	err := dict.PDF(w)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\nstream\n")
	if err != nil {
		return err
	}
	_, err = w.Write(x.Data)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\nendstream")
	return err
}

// Reference represents a reference to an indirect object in a PDF file.
// The lower 32 bits represent the object number, the next 16 bits the
// generation number.
type Reference uint64

// NewReference constructs the reference with the given object number and
// generation number.
func NewReference(number uint32, generation uint16) Reference {
	return Reference(uint64(number) | uint64(generation)<<32)
}

// Number returns the object number of the reference.
func (x Reference) Number() uint32 {
	return uint32(x)
}

// Generation returns the generation number of the reference.
func (x Reference) Generation() uint16 {
	return uint16(x >> 32)
}

func (x Reference) String() string {
	s := "obj_" + strconv.FormatUint(uint64(x.Number()), 10)
	if gen := x.Generation(); gen > 0 {
		s += "@" + strconv.FormatUint(uint64(gen), 10)
	}
	return s
}

// PDF implements the [Object] interface.
func (x Reference) PDF(w io.Writer) error {
	if x>>48 != 0 {
		return fmt.Errorf("invalid reference: 0x%016x", uint64(x))
	}
	_, err := fmt.Fprintf(w, "%d %d R", x.Number(), x.Generation())
	return err
}

func writeObject(w io.Writer, obj Object) error {
	if obj == nil {
		_, err := io.WriteString(w, "null")
		return err
	}
	return obj.PDF(w)
}

// Format formats a PDF object as a string, in the same way as the
// it would be written to a PDF file.
func Format(obj Object) string {
	buf := &bytes.Buffer{}
	err := writeObject(buf, obj)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return buf.String()
}

// Equal reports whether two objects have the same PDF representation.
func Equal(a, b Object) bool {
	return Format(a) == Format(b)
}
