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

// Package pdf provides an editable object store for PDF files.
//
// A PDF file is a collection of indirect objects (dictionaries, arrays,
// streams, numbers, names and strings) which refer to each other by
// object number and generation.  This package keeps the complete byte
// image of a file in memory and parses objects only when they are first
// accessed.  Objects can be added, replaced and freed, and the changes
// are written back either as an incremental update, or by rewriting the
// file image in place.
//
// A [Document] is opened from a file and edited as follows:
//
//	doc, err := pdf.Open("in.pdf", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cat, err := doc.Catalog()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = cat.Set("Lang", pdf.TextString("en-GB"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = doc.SaveIncremental()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = os.WriteFile("out.pdf", doc.Store().Bytes(), 0o644)
//
// The following types implement the native PDF object types.
// All of these implement the [Object] interface:
//
//	Array
//	Bool
//	Dict
//	Integer
//	Name
//	Real
//	Reference
//	Stream
//	String
//
// Higher-level views of objects, for example pages or article threads,
// are implemented as facades in subpackages.  A facade is created using
// [GetFacade], which makes sure that at most one facade of a given type
// exists for every object.
package pdf
