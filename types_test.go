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
	"testing"
	"time"
)

var formatCases = []struct {
	in  Object
	out string
}{
	{nil, "null"},
	{Bool(true), "true"},
	{Integer(-12), "-12"},
	{Real(1), "1."},
	{Real(0.5), "0.5"},
	{String("a"), "(a)"},
	{String("a (test version)"), "(a (test version))"},
	{String("a (test version"), "(a \\(test version)"},
	{String(""), "()"},
	{String("\000"), "<00>"},
	{String("x\ny"), "(x\\ny)"},
	{Name("Type"), "/Type"},
	{Name("A B"), "/A#20B"},
	{Name("a#b"), "/a#23b"},
	{Array{Integer(1), nil, Integer(3)}, "[1 null 3]"},
	{NewReference(5, 2), "5 2 R"},
	{Dict{"B": Integer(2), "A": Name("x"), "C": nil}, "<<\n/A /x\n/B 2\n>>"},
	{
		&Stream{Dict: Dict{"Length": Integer(99)}, Data: []byte("ab")},
		"<<\n/Length 2\n>>\nstream\nab\nendstream",
	},
}

func TestFormat(t *testing.T) {
	for _, test := range formatCases {
		out := Format(test.in)
		if out != test.out {
			t.Errorf("string wrongly formatted, expected %q but got %q",
				test.out, out)
		}
	}
}

// TestFormatParse checks that formatted objects are read back unchanged.
func TestFormatParse(t *testing.T) {
	for _, test := range formatCases {
		if _, isStream := test.in.(*Stream); isStream {
			continue
		}
		s := newScanner([]byte(test.out), 0, nil)
		obj, err := s.ReadObject()
		if err != nil {
			t.Errorf("%q: %v", test.out, err)
			continue
		}
		if !Equal(obj, test.in) {
			t.Errorf("%q: read back as %s", test.out, Format(obj))
		}
	}
}

func TestReferenceString(t *testing.T) {
	cases := []struct {
		ref  Reference
		want string
	}{
		{NewReference(5, 0), "obj_5"},
		{NewReference(5, 2), "obj_5@2"},
		{NewReference(0xFFFFFFFF, 0xFFFF), "obj_4294967295@65535"},
	}
	for _, test := range cases {
		if got := test.ref.String(); got != test.want {
			t.Errorf("%d: got %q, want %q", uint64(test.ref), got, test.want)
		}
		if test.ref.Number() == 0 {
			t.Error("wrong number")
		}
	}
}

func TestInvalidReference(t *testing.T) {
	ref := Reference(1 << 50)
	if err := ref.PDF(nil); err == nil {
		t.Error("invalid reference was written")
	}
}

func TestDictClone(t *testing.T) {
	a := Dict{"A": Integer(1)}
	b := a.Clone()
	b["B"] = Integer(2)
	if _, ok := a["B"]; ok {
		t.Error("Clone shares storage with the original")
	}
	if Dict(nil).Clone() != nil {
		t.Error("clone of nil dict is not nil")
	}
}

func TestTextString(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"\t\n\r",
		"ein Bär",
		"Ende…",
		"o țesătură",
		"中文",
		"日本語",
	}
	for _, test := range cases {
		enc := TextString(test)
		out := enc.AsTextString()
		if out != test {
			t.Errorf("wrong text: %q != %q", out, test)
		}
	}
}

func TestTextStringEncoding(t *testing.T) {
	if s := TextString("ein Bär"); len(s) != 7 || isUTF16(s) {
		t.Errorf("expected PDFDocEncoding, got % x", []byte(s))
	}
	if s := TextString("Ende…"); len(s) != 5 || s[4] != 0x83 {
		t.Errorf("expected PDFDocEncoding, got % x", []byte(s))
	}
	if s := TextString("中文"); !isUTF16(s) || len(s) != 6 {
		t.Errorf("expected UTF-16, got % x", []byte(s))
	}
}

func TestDateString(t *testing.T) {
	PST := time.FixedZone("PST", -8*60*60)
	cases := []time.Time{
		time.Date(1998, 12, 23, 19, 52, 0, 0, PST),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 12, 24, 16, 30, 12, 0, time.FixedZone("", 90*60)),
	}
	for _, test := range cases {
		enc := Date(test)
		out, err := enc.AsDate()
		if err != nil {
			t.Error(err)
		} else if !test.Equal(out) {
			t.Errorf("wrong time: %s != %s", out, test)
		}
	}
}

func TestDateFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"D:19981223195200-08'00'", time.Date(1998, 12, 23, 19, 52, 0, 0, time.FixedZone("", -8*60*60))},
		{"D:2020", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"20200315", time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"D:20200315101112Z", time.Date(2020, 3, 15, 10, 11, 12, 0, time.UTC)},
	}
	for _, test := range cases {
		got, err := String(test.in).AsDate()
		if err != nil {
			t.Errorf("%q: %v", test.in, err)
			continue
		}
		if !got.Equal(test.want) {
			t.Errorf("%q: got %s, want %s", test.in, got, test.want)
		}
	}

	if _, err := String("yesterday").AsDate(); err == nil {
		t.Error("invalid date was accepted")
	}
}
