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

// Package nametree implements PDF name trees.
//
// Name trees serve a similar purpose to dictionaries, associating keys and
// values, but using string keys that are ordered lexicographically. The data
// structure can represent an arbitrarily large collection of key-value pairs
// with efficient lookup without requiring the entire structure to be read
// from the PDF file.
//
// Nodes are read on demand and edited in place.  [FromNames] gives access
// to the trees in the name dictionary of the document catalog, for example
// the named destinations ("Dests") or renditions ("Renditions").
package nametree
