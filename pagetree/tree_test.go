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

package pagetree_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/pagetree"
)

func TestAppend(t *testing.T) {
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}

	var want []pdf.Reference
	for range 3 {
		p, err := pagetree.Append(doc, pagetree.A4)
		if err != nil {
			t.Fatal(err)
		}
		want = append(want, p.Ref())
	}

	got, err := pagetree.Pages(doc)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", d)
	}

	n, err := pagetree.NumPages(doc)
	if err != nil || n != 3 {
		t.Errorf("NumPages() = %d, %v", n, err)
	}
	for i, ref := range want {
		got, err := pagetree.GetPage(doc, i)
		if err != nil || got != ref {
			t.Errorf("GetPage(%d) = %s, %v, want %s", i, got, err, ref)
		}
	}
	if _, err := pagetree.GetPage(doc, 3); err == nil {
		t.Error("GetPage(3) succeeded")
	}
}

// buildTree creates a page tree with two levels:
//
//	root ── a ── p0, p1
//	     └─ p2
//
// The media box of p0 and p1 is inherited from a.
func buildTree(t *testing.T) (*pdf.Document, []pdf.Reference, pdf.Reference) {
	t.Helper()
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}
	cat, err := doc.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	root, err := cat.Pages()
	if err != nil {
		t.Fatal(err)
	}

	a := doc.Register(pdf.Dict{
		"Type":     pdf.Name("Pages"),
		"Parent":   root,
		"MediaBox": pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(100), pdf.Integer(200)},
		"Count":    pdf.Integer(2),
	})
	p0 := doc.Register(pdf.Dict{"Type": pdf.Name("Page"), "Parent": a})
	p1 := doc.Register(pdf.Dict{"Type": pdf.Name("Page"), "Parent": a})
	p2 := doc.Register(pdf.Dict{"Type": pdf.Name("Page"), "Parent": root})
	doc.SetDictEntry(a, "Kids", pdf.Array{p0, p1})
	doc.SetDictEntry(root, "Kids", pdf.Array{a, p2})
	doc.SetDictEntry(root, "Count", pdf.Integer(3))

	return doc, []pdf.Reference{p0, p1, p2}, a
}

func TestNested(t *testing.T) {
	doc, pages, _ := buildTree(t)

	got, err := pagetree.Pages(doc)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(pages, got); d != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", d)
	}
	for i, ref := range pages {
		got, err := pagetree.GetPage(doc, i)
		if err != nil || got != ref {
			t.Errorf("GetPage(%d) = %s, %v, want %s", i, got, err, ref)
		}
	}
}

func TestMediaBox(t *testing.T) {
	doc, pages, a := buildTree(t)

	p0, err := pagetree.Get(doc, pages[0])
	if err != nil {
		t.Fatal(err)
	}
	want := &rect.Rect{URx: 100, URy: 200}
	if d := cmp.Diff(want, p0.MediaBox()); d != "" {
		t.Errorf("inherited media box (-want +got):\n%s", d)
	}

	p2, err := pagetree.Get(doc, pages[2])
	if err != nil {
		t.Fatal(err)
	}
	if box := p2.MediaBox(); box != nil {
		t.Errorf("unexpected media box %v", box)
	}

	// the media box is cached until the facade is invalidated
	doc.SetDictEntry(a, "MediaBox", pdf.Rectangle(pagetree.Letter))
	if d := cmp.Diff(want, p0.MediaBox()); d != "" {
		t.Errorf("cached media box (-want +got):\n%s", d)
	}
	doc.Invalidate(pages[0])
	p0new, err := pagetree.Get(doc, pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if p0new == p0 {
		t.Error("Invalidate did not drop the facade")
	}
	if d := cmp.Diff(&pagetree.Letter, p0new.MediaBox()); d != "" {
		t.Errorf("recomputed media box (-want +got):\n%s", d)
	}

	// setting the media box on the page overrides the inherited value
	if err := p0new.SetMediaBox(pagetree.A4); err != nil {
		t.Fatal(err)
	}
	doc.Invalidate(pages[0])
	p0, _ = pagetree.Get(doc, pages[0])
	if d := cmp.Diff(&pagetree.A4, p0.MediaBox()); d != "" {
		t.Errorf("page media box (-want +got):\n%s", d)
	}
}

func TestNotAPage(t *testing.T) {
	doc, _, a := buildTree(t)
	if _, err := pagetree.Get(doc, a); !pdf.IsMalformed(err) {
		t.Errorf("Get(pages node) = %v", err)
	}
}

func TestCycle(t *testing.T) {
	doc, pages, a := buildTree(t)
	cat, _ := doc.Catalog()
	root, _ := cat.Pages()

	// a refers back to the root
	doc.SetDictEntry(a, "Kids", pdf.Array{pages[0], root, pages[1]})

	got, err := pagetree.Pages(doc)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(pages, got); d != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", d)
	}

	doc.SetDictEntry(a, "Count", pdf.Integer(5))
	doc.SetDictEntry(root, "Count", pdf.Integer(6))
	if _, err := pagetree.GetPage(doc, 1); !errors.Is(err, pdf.ErrCycle) {
		t.Errorf("GetPage(1) = %v", err)
	}
}

func TestBeads(t *testing.T) {
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}
	p, err := pagetree.Append(doc, pagetree.A4)
	if err != nil {
		t.Fatal(err)
	}
	b1 := doc.Register(pdf.Dict{"Type": pdf.Name("Bead")})
	b2 := doc.Register(pdf.Dict{"Type": pdf.Name("Bead")})

	p.AddBead(b1)
	p.AddBead(b2)
	beads, err := p.Beads()
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]pdf.Reference{b1, b2}, beads); d != "" {
		t.Errorf("Beads() mismatch (-want +got):\n%s", d)
	}

	found, err := p.RemoveBead(b1)
	if !found || err != nil {
		t.Errorf("RemoveBead() = %t, %v", found, err)
	}
	found, err = p.RemoveBead(b1)
	if found || err != nil {
		t.Errorf("second RemoveBead() = %t, %v", found, err)
	}
	p.RemoveBead(b2)

	dict, _ := pdf.GetDict(doc, p.Ref())
	if _, ok := dict["B"]; ok {
		t.Error("empty /B entry not removed")
	}
}
