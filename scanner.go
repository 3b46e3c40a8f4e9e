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
	"errors"
	"fmt"
	"io"
	"strconv"
)

// scanner parses PDF objects from an in-memory file image.
// Positions are byte offsets into data, so that error messages refer to
// offsets in the file.
type scanner struct {
	data []byte
	pos  int

	// getInt is used to resolve indirect /Length entries of streams.
	// If getInt is nil, only direct lengths can be used.
	getInt func(Object) (Integer, error)
}

func newScanner(data []byte, pos int, getInt func(Object) (Integer, error)) *scanner {
	return &scanner{
		data:   data,
		pos:    pos,
		getInt: getInt,
	}
}

func (s *scanner) errorf(format string, args ...any) error {
	return &MalformedFileError{
		Pos: int64(s.pos),
		Err: fmt.Errorf(format, args...),
	}
}

// ReadIndirectObject reads an object of the form "n g obj ... endobj".
func (s *scanner) ReadIndirectObject() (Object, Reference, error) {
	// Some files point the xref entries at the end of the previous line.
	// Skipping leading white space fixes this up.
	s.SkipWhiteSpace()

	number, err := s.ReadInteger()
	if err != nil {
		return nil, 0, err
	}
	s.SkipWhiteSpace()
	generation, err := s.ReadInteger()
	if err != nil {
		return nil, 0, err
	}
	if number < 0 || number > 0xFFFFFFFF || generation < 0 || generation > 0xFFFF {
		return nil, 0, s.errorf("invalid object identity %d %d", number, generation)
	}
	ref := NewReference(uint32(number), uint16(generation))

	s.SkipWhiteSpace()
	err = s.SkipString("obj")
	if err != nil {
		return nil, 0, err
	}
	s.SkipWhiteSpace()

	obj, err := s.ReadObject()
	if err != nil {
		return nil, 0, err
	}

	s.SkipWhiteSpace()
	err = s.SkipString("endobj")
	if err != nil {
		return nil, 0, err
	}
	return obj, ref, nil
}

// ReadObject reads one PDF object.  Integers followed by a second integer
// and the keyword "R" are read as references.
func (s *scanner) ReadObject() (Object, error) {
	buf := s.Peek(5) // len("false") == 5

	switch {
	case len(buf) == 0:
		return nil, &MalformedFileError{Pos: int64(s.pos), Err: io.ErrUnexpectedEOF}
	case bytes.HasPrefix(buf, []byte("null")):
		s.pos += 4
		return nil, nil
	case bytes.HasPrefix(buf, []byte("true")):
		s.pos += 4
		return Bool(true), nil
	case bytes.HasPrefix(buf, []byte("false")):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		obj, err := s.ReadNumber()
		if err != nil {
			return nil, err
		}
		if a, ok := obj.(Integer); ok && a >= 0 && buf[0] != '+' {
			if ref, ok := s.tryReference(a); ok {
				return ref, nil
			}
		}
		return obj, nil
	case bytes.HasPrefix(buf, []byte("<<")):
		dict, err := s.ReadDict()
		if err != nil {
			return nil, err
		}

		// check whether this is the start of a stream
		save := s.pos
		s.SkipWhiteSpace()
		if !bytes.HasPrefix(s.Peek(6), []byte("stream")) {
			s.pos = save
			return dict, nil
		}
		return s.ReadStreamData(dict)
	case buf[0] == '(':
		s.pos++
		return s.ReadQuotedString()
	case buf[0] == '<':
		s.pos++
		return s.ReadHexString()
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, s.errorf("unexpected %q", buf[:1])
}

// tryReference checks whether the integer a just read is the start of a
// reference "a b R".  If not, the scanner position is left unchanged.
func (s *scanner) tryReference(a Integer) (Reference, bool) {
	save := s.pos
	s.SkipWhiteSpace()
	c := s.Peek(1)
	if len(c) == 0 || c[0] < '0' || c[0] > '9' {
		s.pos = save
		return 0, false
	}
	b, err := s.ReadInteger()
	if err != nil || b > 0xFFFF || a > 0xFFFFFFFF {
		s.pos = save
		return 0, false
	}
	s.SkipWhiteSpace()
	r := s.Peek(2)
	if len(r) == 0 || r[0] != 'R' || len(r) > 1 && !isSpace[r[1]] && !isDelimiter[r[1]] {
		s.pos = save
		return 0, false
	}
	s.pos++
	return NewReference(uint32(a), uint16(b)), true
}

// ReadInteger reads an integer.
func (s *scanner) ReadInteger() (Integer, error) {
	start := s.pos
	if s.pos < len(s.data) && (s.data[s.pos] == '+' || s.data[s.pos] == '-') {
		s.pos++
	}
	for s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '9' {
		s.pos++
	}
	x, err := strconv.ParseInt(string(s.data[start:s.pos]), 10, 64)
	if err != nil {
		s.pos = start
		return 0, &MalformedFileError{Pos: int64(start), Err: err}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.
func (s *scanner) ReadNumber() (Object, error) {
	start := s.pos
	hasDot := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if !hasDot && c == '.' {
			hasDot = true
		} else if s.pos == start && (c == '+' || c == '-') {
			// sign
		} else if c < '0' || c > '9' {
			break
		}
		s.pos++
	}
	res := string(s.data[start:s.pos])

	if hasDot {
		x, err := strconv.ParseFloat(res, 64)
		if err != nil {
			if res == "." || res == "-." || res == "+." {
				return Real(0), nil
			}
			return nil, &MalformedFileError{Pos: int64(start), Err: err}
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(res, 10, 64)
	if err != nil {
		return nil, &MalformedFileError{Pos: int64(start), Err: err}
	}
	return Integer(x), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (s *scanner) ReadQuotedString() (String, error) {
	var res []byte
	parenCount := 0
	for {
		if s.pos >= len(s.data) {
			return nil, s.errorf("unterminated string")
		}
		c := s.data[s.pos]
		s.pos++

		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return nil, s.errorf("unterminated string")
			}
			c = s.data[s.pos]
			s.pos++
			switch c {
			case '\n':
				continue
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
				continue
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := c - '0'
				for k := 0; k < 2 && s.pos < len(s.data); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val*8 + (d - '0')
					s.pos++
				}
				c = val
			}
		case '(':
			parenCount++
		case ')':
			if parenCount == 0 {
				return String(res), nil
			}
			parenCount--
		case '\r':
			c = '\n'
			if s.pos < len(s.data) && s.data[s.pos] == '\n' {
				s.pos++
			}
		}
		res = append(res, c)
	}
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angled bracket.
func (s *scanner) ReadHexString() (String, error) {
	var res []byte
	var hexVal byte
	first := true
	for {
		if s.pos >= len(s.data) {
			return nil, s.errorf("unterminated hex string")
		}
		c := s.data[s.pos]
		s.pos++

		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c == '>':
			if !first {
				res = append(res, 16*hexVal)
			}
			return String(res), nil
		case isSpace[c]:
			continue
		default:
			return nil, s.errorf("invalid character %q in hex string", c)
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
	}
}

// ReadName reads a PDF name object.
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	var res []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		s.pos++
		if c == '#' && s.pos+2 <= len(s.data) {
			hi, ok1 := hexDigit(s.data[s.pos])
			lo, ok2 := hexDigit(s.data[s.pos+1])
			if ok1 && ok2 {
				c = hi<<4 | lo
				s.pos += 2
			}
		}
		res = append(res, c)
	}
	return Name(res), nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// ReadArray reads an array, starting after the opening "[".
func (s *scanner) ReadArray() (Array, error) {
	array := Array{}
	for {
		s.SkipWhiteSpace()
		buf := s.Peek(1)
		if len(buf) == 0 {
			return nil, s.errorf("unterminated array")
		}
		if buf[0] == ']' {
			s.pos++
			return array, nil
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		array = append(array, obj)
	}
}

// ReadDict reads a PDF dictionary.
func (s *scanner) ReadDict() (Dict, error) {
	err := s.SkipString("<<")
	if err != nil {
		return nil, err
	}

	dict := Dict{}
	for {
		s.SkipWhiteSpace()
		buf := s.Peek(2)
		if bytes.Equal(buf, []byte(">>")) {
			s.pos += 2
			return dict, nil
		}
		if len(buf) == 0 || buf[0] != '/' {
			return nil, s.errorf("expected a name or \">>\"")
		}

		key, err := s.ReadName()
		if err != nil {
			return nil, err
		}
		s.SkipWhiteSpace()
		val, err := s.ReadObject()
		if err != nil {
			return nil, err
		}
		if val != nil {
			dict[key] = val
		}
	}
}

// ReadStreamData reads the data of a PDF Stream, starting after the Dict.
//
// If the /Length entry is missing or wrong, the data is delimited by
// the next "endstream" keyword instead.
func (s *scanner) ReadStreamData(dict Dict) (*Stream, error) {
	s.SkipWhiteSpace()
	err := s.SkipString("stream")
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(s.Peek(2), []byte("\r\n")) {
		s.pos += 2
	} else if buf := s.Peek(1); len(buf) > 0 && (buf[0] == '\n' || buf[0] == '\r') {
		s.pos++
	}
	start := s.pos

	length := -1
	if s.getInt != nil {
		if l, err := s.getInt(dict["Length"]); err == nil {
			length = int(l)
		}
	} else if l, ok := dict["Length"].(Integer); ok {
		length = int(l)
	}

	if length >= 0 && start+length <= len(s.data) {
		s.pos = start + length
		save := s.pos
		s.SkipWhiteSpace()
		if bytes.HasPrefix(s.Peek(9), []byte("endstream")) {
			s.pos += 9
			return &Stream{
				Dict: dict,
				Data: bytes.Clone(s.data[start : start+length]),
			}, nil
		}
		s.pos = save
	}

	// The length is missing or wrong.  Try to find the end of the stream.
	idx := bytes.Index(s.data[start:], []byte("endstream"))
	if idx < 0 {
		s.pos = start
		return nil, s.errorf("stream without \"endstream\"")
	}
	end := start + idx
	if end > start && s.data[end-1] == '\n' {
		end--
	}
	if end > start && s.data[end-1] == '\r' {
		end--
	}
	s.pos = start + idx + 9
	return &Stream{
		Dict: dict,
		Data: bytes.Clone(s.data[start:end]),
	}, nil
}

// readHeaderVersion reads the "%PDF-x.y" file header.
func (s *scanner) readHeaderVersion() (Version, error) {
	buf := s.Peek(8)
	if !bytes.HasPrefix(buf, []byte("%PDF-")) || len(buf) < 8 {
		return 0, &MalformedFileError{Err: errors.New("PDF header not found")}
	}
	v, err := ParseVersion(string(buf[5:8]))
	if err != nil {
		return 0, &MalformedFileError{Pos: 5, Err: err}
	}
	s.pos += 8
	s.SkipWhiteSpace()
	return v, nil
}

// Peek returns a view of the next n bytes of input.  At the end of the
// data, shorter slices are returned.
func (s *scanner) Peek(n int) []byte {
	end := min(s.pos+n, len(s.data))
	return s.data[s.pos:end]
}

// SkipWhiteSpace skips white space and comments.
func (s *scanner) SkipWhiteSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\r' && s.data[s.pos] != '\n' {
				s.pos++
			}
		} else if !isSpace[c] {
			return
		}
		s.pos++
	}
}

// SkipString skips pat, or returns an error if pat is not found at the
// current position.
func (s *scanner) SkipString(pat string) error {
	buf := s.Peek(len(pat))
	if string(buf) != pat {
		return s.errorf("expected %q but found %q", pat, buf)
	}
	s.pos += len(pat)
	return nil
}

var (
	isSpace = [256]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = [256]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
