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

// Package pagelabel reads and writes the page labels of a document.
//
// Page labels are the numbers shown for pages in a viewer, for example
// "iii" for the third page of a preface.  They are stored in the
// /PageLabels number tree of the document catalog: each key is the index
// of the first page of a labelling range, and the value is a label
// dictionary describing the numbering style for that range.
package pagelabel

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/alexandrvslv/pdf-clown-sub003"
	"github.com/alexandrvslv/pdf-clown-sub003/numtree"
)

// Style is a numbering style.
type Style pdf.Name

// These are the numbering styles defined for PDF page labels.
const (
	None         Style = ""
	Decimal      Style = "D"
	UpperRoman   Style = "R"
	LowerRoman   Style = "r"
	UpperLetters Style = "A"
	LowerLetters Style = "a"
)

// Label describes the labels of one range of pages.
type Label struct {
	// Style is the numbering style.  If Style is None, the labels consist
	// of the prefix only.
	Style Style

	// Prefix is put in front of the number.
	Prefix string

	// Start is the number used for the first page of the range.
	// Values smaller than 1 are treated as 1.
	Start int
}

// Decode reads a page label dictionary.
func Decode(r pdf.Getter, obj pdf.Object) (*Label, error) {
	dict, err := pdf.GetDictTyped(r, obj, "PageLabel")
	if err != nil {
		return nil, err
	} else if dict == nil {
		return nil, pdf.Error("missing page label dictionary")
	}

	l := &Label{Start: 1}

	s, err := pdf.Optional(pdf.GetName(r, dict["S"]))
	if err != nil {
		return nil, err
	}
	switch Style(s) {
	case Decimal, UpperRoman, LowerRoman, UpperLetters, LowerLetters:
		l.Style = Style(s)
	}

	prefix, err := pdf.Optional(pdf.GetTextString(r, dict["P"]))
	if err != nil {
		return nil, err
	}
	l.Prefix = prefix

	start, err := pdf.Optional(pdf.GetInt(r, dict["St"]))
	if err != nil {
		return nil, err
	}
	if start >= 1 {
		l.Start = int(start)
	}

	return l, nil
}

// Encode returns the page label dictionary for l.
func (l *Label) Encode() pdf.Dict {
	dict := pdf.Dict{}
	if l.Style != None {
		dict["S"] = pdf.Name(l.Style)
	}
	if l.Prefix != "" {
		dict["P"] = pdf.TextString(l.Prefix)
	}
	if l.Start > 1 {
		dict["St"] = pdf.Integer(l.Start)
	}
	return dict
}

// Format returns the label of the page which is offset pages after the
// first page of the range.
func (l *Label) Format(offset int) string {
	n := max(l.Start, 1) + offset
	var num string
	switch l.Style {
	case Decimal:
		num = strconv.Itoa(n)
	case UpperRoman:
		num = roman(n)
	case LowerRoman:
		num = strings.ToLower(roman(n))
	case UpperLetters:
		num = letters(n)
	case LowerLetters:
		num = strings.ToLower(letters(n))
	}
	return l.Prefix + num
}

var romanDigits = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// roman formats n as an upper case roman numeral.
func roman(n int) string {
	var b strings.Builder
	for _, d := range romanDigits {
		for n >= d.value {
			b.WriteString(d.symbol)
			n -= d.value
		}
	}
	return b.String()
}

// letters formats n in the letter style used by page labels:
// A to Z, then AA to ZZ, then AAA to ZZZ, and so on.
func letters(n int) string {
	if n < 1 {
		return ""
	}
	letter := byte('A' + (n-1)%26)
	count := (n-1)/26 + 1
	return strings.Repeat(string(letter), count)
}

// Labels gives access to the page labels of a document.
type Labels struct {
	doc  *pdf.Document
	tree *numtree.Tree
}

// Open returns the page labels of the document.  If the document has no
// page labels and create is false, nil is returned.  Otherwise an empty
// /PageLabels tree is created.
func Open(doc *pdf.Document, create bool) (*Labels, error) {
	tree, err := numtree.FromCatalog(doc, "PageLabels", create)
	if err != nil {
		return nil, pdf.Wrap(err, "PageLabels")
	} else if tree == nil {
		return nil, nil
	}
	return &Labels{doc: doc, tree: tree}, nil
}

// Tree returns the number tree which stores the labels.
func (l *Labels) Tree() *numtree.Tree {
	return l.tree
}

// Set starts a new labelling range at the given page index.
func (l *Labels) Set(pageIndex int, label *Label) error {
	if pageIndex < 0 {
		return fmt.Errorf("invalid page index %d", pageIndex)
	}
	return l.tree.Insert(pdf.Integer(pageIndex), label.Encode())
}

// Remove removes the labelling range starting at the given page index.
// The pages of the range then continue the preceding range.
// The return value reports whether a range was removed.
func (l *Labels) Remove(pageIndex int) (bool, error) {
	return l.tree.Remove(pdf.Integer(pageIndex))
}

// Get returns the labelling range which starts at the given page index.
// If no range starts there, [numtree.ErrKeyNotFound] is returned.
func (l *Labels) Get(pageIndex int) (*Label, error) {
	obj, err := l.tree.Lookup(pdf.Integer(pageIndex))
	if err != nil {
		return nil, err
	}
	return Decode(l.doc, obj)
}

// Label returns the label of the page with the given index.
//
// The label is determined by the range with the largest start index not
// after pageIndex.  If no such range exists, the page number pageIndex+1
// is returned in decimal form.
func (l *Labels) Label(pageIndex int) (string, error) {
	start, obj, err := l.tree.Floor(pdf.Integer(pageIndex))
	if errors.Is(err, numtree.ErrKeyNotFound) {
		return strconv.Itoa(pageIndex + 1), nil
	} else if err != nil {
		return "", err
	}
	label, err := Decode(l.doc, obj)
	if err != nil {
		return "", pdf.Wrap(err, "page label "+strconv.Itoa(int(start)))
	}
	return label.Format(pageIndex - int(start)), nil
}

// All iterates over the labelling ranges, ordered by their start index.
// Malformed label dictionaries are skipped.
func (l *Labels) All() iter.Seq2[int, *Label] {
	return func(yield func(int, *Label) bool) {
		for start, obj := range l.tree.All() {
			if start < 0 {
				continue
			}
			label, err := Decode(l.doc, obj)
			if err != nil {
				continue
			}
			if !yield(int(start), label) {
				return
			}
		}
	}
}
