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

package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/nametree"
	"github.com/alexandrvslv/pdf-clown-sub003/pagelabel"
	"github.com/alexandrvslv/pdf-clown-sub003/pagetree"
	"github.com/alexandrvslv/pdf-clown-sub003/thread"
)

// writeTestFile creates a PDF file with three pages, page labels, one
// article thread and numDests named destinations.
func writeTestFile(t *testing.T, numDests int) string {
	t.Helper()

	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}
	var pages []*pagetree.Page
	for range 3 {
		p, err := pagetree.Append(doc, pagetree.Letter)
		if err != nil {
			t.Fatal(err)
		}
		pages = append(pages, p)
	}

	labels, err := pagelabel.Open(doc, true)
	if err != nil {
		t.Fatal(err)
	}
	err = labels.Set(0, &pagelabel.Label{Style: pagelabel.LowerRoman, Start: 1})
	if err != nil {
		t.Fatal(err)
	}
	err = labels.Set(2, &pagelabel.Label{Style: pagelabel.Decimal, Prefix: "A-", Start: 1})
	if err != nil {
		t.Fatal(err)
	}

	th, err := thread.New(doc, "Article")
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pages[1:] {
		_, err := th.AppendBead(p, rect.Rect{LLx: 50, LLy: 50, URx: 200, URy: 400})
		if err != nil {
			t.Fatal(err)
		}
	}

	dests, err := nametree.FromNames(doc, "Dests", true)
	if err != nil {
		t.Fatal(err)
	}
	for i := range numDests {
		key := pdf.Name(fmt.Sprintf("dest%03d", i))
		val := pdf.Array{pages[i%3].Ref(), pdf.Name("Fit")}
		if err := dests.Insert(key, val); err != nil {
			t.Fatal(err)
		}
	}

	if err := doc.SaveIncremental(); err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(t.TempDir(), "test.pdf")
	if err := os.WriteFile(fname, doc.Store().Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return fname
}

func run(t *testing.T, cmd func(io.Writer, string, *Config) error, fname string, cfg *Config) string {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := cmd(buf, fname, cfg); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestListObjects(t *testing.T) {
	fname := writeTestFile(t, 1)
	out := run(t, listObjects, fname, &Config{})

	for _, want := range []string{"dict /Catalog", "dict /Pages", "dict /Page,", "dict /Thread", "dict /Bead"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "error") {
		t.Errorf("unexpected error in output:\n%s", out)
	}
}

func TestListLabels(t *testing.T) {
	fname := writeTestFile(t, 0)
	out := run(t, listLabels, fname, &Config{})

	want := "    1  i\n    2  ii\n    3  A-1\n"
	if d := cmp.Diff(want, out); d != "" {
		t.Errorf("labels (-want +got):\n%s", d)
	}
}

func TestListThreads(t *testing.T) {
	fname := writeTestFile(t, 0)
	out := run(t, listThreads, fname, &Config{})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got:\n%s", out)
	}
	if !strings.HasSuffix(lines[0], `"Article"`) {
		t.Errorf("wrong thread line %q", lines[0])
	}
	for i, page := range []string{"page 2", "page 3"} {
		if !strings.Contains(lines[i+1], page) {
			t.Errorf("bead %d: %q does not contain %q", i, lines[i+1], page)
		}
		if !strings.Contains(lines[i+1], "[50 50 200 400]") {
			t.Errorf("bead %d: wrong rectangle in %q", i, lines[i+1])
		}
	}
}

func TestListDests(t *testing.T) {
	fname := writeTestFile(t, 5)
	out := run(t, listDests, fname, &Config{})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got:\n%s", out)
	}
	for i, line := range lines {
		prefix := fmt.Sprintf("%q ", fmt.Sprintf("dest%03d", i))
		if !strings.HasPrefix(line, prefix) {
			t.Errorf("line %d: %q", i, line)
		}
	}
}

func TestListDestsMissing(t *testing.T) {
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.SaveIncremental(); err != nil {
		t.Fatal(err)
	}
	fname := filepath.Join(t.TempDir(), "empty.pdf")
	if err := os.WriteFile(fname, doc.Store().Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if out := run(t, listDests, fname, &Config{}); out != "" {
		t.Errorf("unexpected output %q", out)
	}
	if out := run(t, listLabels, fname, &Config{}); out != "" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestCompact(t *testing.T) {
	fname := writeTestFile(t, 40)
	cfg := &Config{MaxEntries: 4}

	before := run(t, listDests, fname, cfg)
	run(t, compact, fname, cfg)
	after := run(t, listDests, fname, cfg)
	if d := cmp.Diff(before, after); d != "" {
		t.Errorf("destinations changed (-before +after):\n%s", d)
	}

	doc, err := pdf.Open(fname, nil)
	if err != nil {
		t.Fatal(err)
	}
	dests, err := nametree.FromNames(doc, "Dests", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := dests.Check(); err != nil {
		t.Error(err)
	}
	n, err := dests.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 40 {
		t.Errorf("expected 40 destinations, got %d", n)
	}

	labels := run(t, listLabels, fname, cfg)
	if labels != "    1  i\n    2  ii\n    3  A-1\n" {
		t.Errorf("wrong labels after compact:\n%s", labels)
	}
}

func TestProcessFiles(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	a := writeTestFile(t, 0)
	b := writeTestFile(t, 0)
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	buf := &bytes.Buffer{}
	files := []string{a, missing, b}
	failed := processFiles(buf, files, &Config{Jobs: 2}, listLabels)
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}

	out := buf.String()
	ia := strings.Index(out, a+":\n")
	ib := strings.Index(out, b+":\n")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("file names missing or out of order:\n%s", out)
	}
	if strings.Contains(out, missing) {
		t.Errorf("output mentions the failed file:\n%s", out)
	}
	if strings.Count(out, "A-1") != 2 {
		t.Errorf("wrong output:\n%s", out)
	}
}
