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
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// TextString creates a String object using the "text string" encoding,
// i.e. using either PDFDocEncoding or UTF-16BE encoding with a BOM.
func TextString(s string) String {
	if buf, ok := pdfDocEncode(s); ok {
		return buf
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	buf, err := enc.Bytes([]byte(s))
	if err != nil {
		// only happens for invalid UTF-8 input
		buf, _ = enc.Bytes([]byte(strings.ToValidUTF8(s, "�")))
	}
	return String(buf)
}

// AsTextString interprets x as a PDF "text string" and returns
// the corresponding utf-8 encoded string.
func (x String) AsTextString() string {
	if isUTF16(x) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		buf, err := dec.Bytes(x)
		if err == nil {
			return string(buf)
		}
	}
	return pdfDocDecode(x)
}

func isUTF16(x String) bool {
	return len(x) >= 2 && x[0] == 0xFE && x[1] == 0xFF
}

func pdfDocDecode(x String) string {
	var b strings.Builder
	b.Grow(len(x))
	for _, c := range x {
		b.WriteRune(pdfDocRune(c))
	}
	return b.String()
}

func pdfDocRune(c byte) rune {
	switch {
	case c >= 0x18 && c < 0x20:
		return pdfDocLow[c-0x18]
	case c >= 0x80 && c <= 0xA0:
		return pdfDocHigh[c-0x80]
	case c == 0x7F || c == 0xAD:
		return utf8.RuneError
	default:
		return rune(c)
	}
}

// pdfDocEncode encodes s using PDFDocEncoding.  The second return value
// is false if s contains characters which cannot be represented.
func pdfDocEncode(s string) (String, bool) {
	buf := make(String, 0, len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			buf = append(buf, byte(r))
		case r >= 0x20 && r < 0x7F:
			buf = append(buf, byte(r))
		case r >= 0xA1 && r <= 0xFF && r != 0xAD:
			buf = append(buf, byte(r))
		default:
			c, ok := pdfDocReverse[r]
			if !ok {
				return nil, false
			}
			buf = append(buf, c)
		}
	}
	return buf, true
}

var pdfDocLow = [8]rune{
	'˘', 'ˇ', 'ˆ', '˙', '˝', '˛', '˚', '˜',
}

var pdfDocHigh = [33]rune{
	'•', '†', '‡', '…', '—', '–', 'ƒ', '⁄',
	'‹', '›', '−', '‰', '„', '“', '”', '‘',
	'’', '‚', '™', 'ﬁ', 'ﬂ', 'Ł', 'Œ', 'Š',
	'Ÿ', 'Ž', 'ı', 'ł', 'œ', 'š', 'ž', utf8.RuneError,
	'€',
}

var pdfDocReverse = func() map[rune]byte {
	m := make(map[rune]byte)
	for i, r := range pdfDocLow {
		m[r] = byte(0x18 + i)
	}
	for i, r := range pdfDocHigh {
		if r != utf8.RuneError {
			m[r] = byte(0x80 + i)
		}
	}
	return m
}()

// Date creates a PDF String object encoding the given date and time.
func Date(t time.Time) String {
	s := t.Format("D:20060102150405-0700")
	k := len(s) - 2
	s = s[:k] + "'" + s[k:]
	return String(s)
}

// AsDate converts a PDF date string to a time.Time object.
// If the string does not have the correct format, an error is returned.
func (x String) AsDate() (time.Time, error) {
	s := x.AsTextString()
	if s == "D:" || s == "" {
		return time.Time{}, nil
	}
	s = strings.ReplaceAll(s, "'", "")
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20") {
		s = "D:" + s
	}

	formats := []string{
		"D:20060102150405-0700",
		"D:20060102150405-07",
		"D:20060102150405Z0000",
		"D:20060102150405Z00",
		"D:20060102150405Z",
		"D:20060102150405",
		"D:200601021504",
		"D:2006010215",
		"D:20060102",
		"D:200601",
		"D:2006",
		time.ANSIC,
	}
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNoDate
}

var errNoDate = errors.New("not a valid date string")
