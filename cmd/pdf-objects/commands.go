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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/nametree"
	"github.com/alexandrvslv/pdf-clown-sub003/numtree"
	"github.com/alexandrvslv/pdf-clown-sub003/pagelabel"
	"github.com/alexandrvslv/pdf-clown-sub003/pagetree"
	"github.com/alexandrvslv/pdf-clown-sub003/thread"
)

func openDoc(fname string, cfg *Config) (*pdf.Document, error) {
	return pdf.Open(fname, &pdf.ReaderOptions{Repair: cfg.Repair})
}

func listObjects(w io.Writer, fname string, cfg *Config) error {
	doc, err := openDoc(fname, cfg)
	if err != nil {
		return err
	}
	for _, ref := range doc.Store().Refs() {
		obj, err := doc.Resolve(ref)
		if err != nil {
			fmt.Fprintf(w, "%-12s  error: %v\n", ref, err)
			continue
		}
		fmt.Fprintf(w, "%-12s  %s\n", ref, describe(obj))
	}
	return nil
}

// describe returns a one-line summary of obj.
func describe(obj pdf.Object) string {
	switch obj := obj.(type) {
	case nil:
		return "null"
	case pdf.Dict:
		if tp, ok := obj["Type"].(pdf.Name); ok {
			return fmt.Sprintf("dict /%s, %d entries", tp, len(obj))
		}
		return fmt.Sprintf("dict, %d entries", len(obj))
	case *pdf.Stream:
		return obj.String()
	case pdf.Array:
		return fmt.Sprintf("array, %d elements", len(obj))
	default:
		s := pdf.Format(obj)
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		return s
	}
}

func listLabels(w io.Writer, fname string, cfg *Config) error {
	doc, err := openDoc(fname, cfg)
	if err != nil {
		return err
	}
	pages, err := pagetree.Pages(doc)
	if err != nil {
		return err
	}
	labels, err := pagelabel.Open(doc, false)
	if err != nil {
		return err
	}
	for i := range pages {
		label := fmt.Sprint(i + 1)
		if labels != nil {
			label, err = labels.Label(i)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%5d  %s\n", i+1, label)
	}
	return nil
}

func listThreads(w io.Writer, fname string, cfg *Config) error {
	doc, err := openDoc(fname, cfg)
	if err != nil {
		return err
	}
	pages, err := pagetree.Pages(doc)
	if err != nil {
		return err
	}
	pageNo := make(map[pdf.Reference]int, len(pages))
	for i, ref := range pages {
		pageNo[ref] = i + 1
	}

	threads, err := thread.All(doc)
	if err != nil {
		return err
	}
	for _, t := range threads {
		title, err := t.Title()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %q\n", t.Ref(), title)

		beads, err := t.Beads()
		if err != nil {
			fmt.Fprintf(w, "    error: %v\n", err)
			continue
		}
		for _, b := range beads {
			p, err := b.Page()
			if err != nil {
				fmt.Fprintf(w, "    %s  error: %v\n", b.Ref(), err)
				continue
			}
			r, _ := b.Rect()
			box := "-"
			if r != nil {
				box = fmt.Sprintf("[%g %g %g %g]", r.LLx, r.LLy, r.URx, r.URy)
			}
			fmt.Fprintf(w, "    %s  page %d  %s\n", b.Ref(), pageNo[p.Ref()], box)
		}
	}
	return nil
}

func listDests(w io.Writer, fname string, cfg *Config) error {
	doc, err := openDoc(fname, cfg)
	if err != nil {
		return err
	}
	tree, err := nametree.FromNames(doc, "Dests", false)
	if err != nil || tree == nil {
		return err
	}
	for name, dest := range tree.All() {
		fmt.Fprintf(w, "%q  %s\n", string(name), pdf.Format(dest))
	}
	return nil
}

// compact rebuilds the page label tree and all trees in the name
// dictionary, and then rewrites the file as a single revision.
func compact(w io.Writer, fname string, cfg *Config) error {
	doc, err := openDoc(fname, cfg)
	if err != nil {
		return err
	}
	before := doc.Store().Size()
	beforeBytes := len(doc.Store().Bytes())

	labels, err := numtree.FromCatalog(doc, "PageLabels", false)
	if err != nil {
		return err
	}
	if labels != nil {
		labels.MaxEntries = cfg.MaxEntries
		if err := labels.Rebuild(); err != nil {
			return pdf.Wrap(err, "PageLabels")
		}
	}

	cat, err := doc.Catalog()
	if err != nil {
		return err
	}
	namesObj, err := cat.Get("Names")
	if err != nil {
		return err
	}
	names, err := pdf.Optional(pdf.GetDict(doc, namesObj))
	if err != nil {
		return err
	}
	keys := make([]pdf.Name, 0, len(names))
	for key := range names {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		tree, err := nametree.FromNames(doc, key, false)
		if err != nil {
			return err
		} else if tree == nil {
			continue
		}
		tree.MaxEntries = cfg.MaxEntries
		if err := tree.Rebuild(); err != nil {
			return pdf.Wrap(err, string(key))
		}
	}

	if err := doc.SaveInPlace(); err != nil {
		return err
	}
	if err := writeFile(fname, doc); err != nil {
		return err
	}
	fmt.Fprintf(w, "xref size %d, %d bytes -> xref size %d, %d bytes\n",
		before, beforeBytes, doc.Store().Size(), len(doc.Store().Bytes()))
	return nil
}

// writeFile replaces the file fname with the image of doc.
func writeFile(fname string, doc *pdf.Document) error {
	tmp, err := os.CreateTemp(filepath.Dir(fname), ".pdf-objects-*")
	if err != nil {
		return err
	}
	_, err = doc.WriteTo(tmp)
	if err2 := tmp.Close(); err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fname)
}
