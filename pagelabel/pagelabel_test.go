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

package pagelabel

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/numtree"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		label  Label
		offset int
		want   string
	}{
		{Label{Style: Decimal}, 0, "1"},
		{Label{Style: Decimal, Start: 10}, 5, "15"},
		{Label{Style: Decimal, Prefix: "A-"}, 7, "A-8"},
		{Label{Style: UpperRoman}, 3, "IV"},
		{Label{Style: LowerRoman}, 8, "ix"},
		{Label{Style: LowerRoman, Start: 1990}, 0, "mcmxc"},
		{Label{Style: UpperRoman}, 48, "XLIX"},
		{Label{Style: UpperLetters}, 0, "A"},
		{Label{Style: UpperLetters}, 25, "Z"},
		{Label{Style: UpperLetters}, 26, "AA"},
		{Label{Style: LowerLetters}, 27, "bb"},
		{Label{Style: LowerLetters}, 52, "aaa"},
		{Label{Prefix: "Cover"}, 2, "Cover"},
		{Label{Style: Decimal, Start: -4}, 0, "1"},
	}
	for _, c := range cases {
		got := c.label.Format(c.offset)
		if got != c.want {
			t.Errorf("%v.Format(%d) = %q, want %q", c.label, c.offset, got, c.want)
		}
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		in   pdf.Dict
		want *Label
	}{
		{pdf.Dict{}, &Label{Start: 1}},
		{pdf.Dict{"Type": pdf.Name("PageLabel"), "S": pdf.Name("r")}, &Label{Style: LowerRoman, Start: 1}},
		{pdf.Dict{"S": pdf.Name("D"), "P": pdf.String("p"), "St": pdf.Integer(4)}, &Label{Style: Decimal, Prefix: "p", Start: 4}},
		{pdf.Dict{"S": pdf.Name("X"), "St": pdf.Integer(0)}, &Label{Start: 1}},
		{pdf.Dict{"S": pdf.Integer(1), "P": pdf.Integer(2)}, &Label{Start: 1}},
	}
	for i, c := range cases {
		got, err := Decode(nil, c.in)
		if err != nil {
			t.Errorf("%d: %v", i, err)
			continue
		}
		if d := cmp.Diff(c.want, got); d != "" {
			t.Errorf("%d: (-want +got):\n%s", i, d)
		}

		// encoding and decoding again gives the same label
		again, err := Decode(nil, got.Encode())
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(got, again); d != "" {
			t.Errorf("%d: round trip (-want +got):\n%s", i, d)
		}
	}

	if _, err := Decode(nil, pdf.Integer(1)); !pdf.IsMalformed(err) {
		t.Errorf("Decode(1): %v", err)
	}
}

func TestLabels(t *testing.T) {
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}

	labels, err := Open(doc, false)
	if labels != nil || err != nil {
		t.Fatalf("Open() = %v, %v", labels, err)
	}
	labels, err = Open(doc, true)
	if err != nil {
		t.Fatal(err)
	}

	// pages without a range get decimal numbers
	if got, _ := labels.Label(4); got != "5" {
		t.Errorf("Label(4) = %q", got)
	}

	labels.Set(0, &Label{Style: LowerRoman})
	labels.Set(4, &Label{Style: Decimal})
	labels.Set(10, &Label{Style: UpperLetters, Prefix: "App-"})

	want := []string{
		"i", "ii", "iii", "iv",
		"1", "2", "3", "4", "5", "6",
		"App-A", "App-B",
	}
	for i, w := range want {
		got, err := labels.Label(i)
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("Label(%d) = %q, want %q", i, got, w)
		}
	}

	// removing a range extends the previous one
	found, err := labels.Remove(4)
	if !found || err != nil {
		t.Fatalf("Remove(4) = %t, %v", found, err)
	}
	if got, _ := labels.Label(5); got != "vi" {
		t.Errorf("Label(5) = %q, want %q", got, "vi")
	}

	if _, err := labels.Get(4); !errors.Is(err, numtree.ErrKeyNotFound) {
		t.Errorf("Get(4): %v", err)
	}
	l, err := labels.Get(10)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(&Label{Style: UpperLetters, Prefix: "App-", Start: 1}, l); d != "" {
		t.Errorf("Get(10) (-want +got):\n%s", d)
	}

	var starts []int
	for start := range labels.All() {
		starts = append(starts, start)
	}
	if d := cmp.Diff([]int{0, 10}, starts); d != "" {
		t.Errorf("All() (-want +got):\n%s", d)
	}

	if err := labels.Set(-1, &Label{}); err == nil {
		t.Error("negative page index accepted")
	}
}

func TestDirectTree(t *testing.T) {
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}
	cat, _ := doc.Catalog()
	cat.Set("PageLabels", pdf.Dict{
		"Nums": pdf.Array{
			pdf.Integer(0), pdf.Dict{"P": pdf.TextString("Title")},
			pdf.Integer(1), pdf.Dict{"S": pdf.Name("D")},
		},
	})

	labels, err := Open(doc, false)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"Title", "1", "2"} {
		got, err := labels.Label(i)
		if err != nil || got != want {
			t.Errorf("Label(%d) = %q, %v, want %q", i, got, err, want)
		}
	}

	entry, _ := cat.Get("PageLabels")
	if entry != labels.Tree().Ref() {
		t.Errorf("/PageLabels = %v", entry)
	}
}
