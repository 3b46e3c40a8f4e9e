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
	"regexp"
	"slices"
	"strconv"

	"github.com/alexandrvslv/pdf-clown-sub003/buffer"
)

// ReaderOptions controls how PDF files are loaded.
type ReaderOptions struct {
	// Repair allows to load files with a damaged or unsupported
	// cross-reference table.  If the table cannot be read, the file is
	// scanned for object headers instead.
	Repair bool
}

// xRefEntry is an entry of the cross-reference table, as found in the file.
type xRefEntry struct {
	pos   int64
	gen   uint16
	inUse bool
}

// LoadStore creates a store for the PDF file image data.
// The store takes ownership of data; the caller must not modify the slice
// afterwards.
//
// Only the cross-reference information is read at this point.  Objects are
// parsed when they are first accessed.
func LoadStore(data []byte, opt *ReaderOptions) (*Store, error) {
	if opt == nil {
		opt = &ReaderOptions{}
	}

	sc := newScanner(data, 0, nil)
	v, err := sc.readHeaderVersion()
	if err != nil {
		if !opt.Repair {
			return nil, err
		}
		v = V1_7
	}

	s := newStore(buffer.NewFromBytes(data), v)
	xref, superseded, err := s.readXRef()
	if err != nil {
		if !opt.Repair {
			return nil, err
		}
		xref, err = s.reconstructXRef()
		if err != nil {
			return nil, err
		}
		superseded = nil
	}
	s.setEntries(xref, superseded)

	if _, err := s.Root(); err != nil && opt.Repair {
		s.findCatalog()
	}
	return s, nil
}

func (s *Store) findStartXRef() (int64, error) {
	data := s.buf.Bytes()
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, &MalformedFileError{Err: errors.New("startxref not found")}
	}
	sc := newScanner(data, idx+9, nil)
	sc.SkipWhiteSpace()
	pos, err := sc.ReadInteger()
	if err != nil {
		return 0, err
	}
	if pos <= 0 || int(pos) >= len(data) {
		return 0, &MalformedFileError{
			Pos: int64(sc.pos),
			Err: errors.New("invalid xref position"),
		}
	}
	return int64(pos), nil
}

// readXRef reads the chain of cross-reference sections, starting with the
// newest one.  Entries from newer sections take precedence.  The second
// return value lists the positions of object copies which have been
// replaced by newer versions in later updates.
func (s *Store) readXRef() (map[uint32]xRefEntry, []int64, error) {
	start, err := s.findStartXRef()
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]xRefEntry)
	var superseded []int64
	size := 0
	first := true
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[start] {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: errors.New("loop in /Prev chain"),
			}
		}
		seen[start] = true

		dict, end, err := s.readXRefTable(start, xref, &superseded)
		if err != nil {
			return nil, nil, err
		}
		s.xrefSpans = append(s.xrefSpans, span{start, end})

		if first {
			for _, key := range []Name{"Root", "Info", "ID"} {
				if val, ok := dict[key]; ok {
					s.trailer[key] = val
				}
			}
			if sz, ok := dict["Size"].(Integer); ok {
				size = int(sz)
			}
			if _, encrypted := dict["Encrypt"]; encrypted {
				return nil, nil, &MalformedFileError{
					Err: errors.New("encrypted files are not supported"),
				}
			}
			first = false
		}

		prev := dict["Prev"]
		if prev == nil {
			break
		}
		prevStart, ok := prev.(Integer)
		if !ok || prevStart <= 0 || int(prevStart) >= s.buf.Len() {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %s", Format(prev)),
			}
		}
		start = int64(prevStart)
	}
	slices.Reverse(s.xrefSpans)
	s.startXRef = s.xrefSpans[len(s.xrefSpans)-1].start

	for num := range xref {
		if int(num) >= size {
			size = int(num) + 1
		}
	}
	if size > s.buf.Len() {
		return nil, nil, &MalformedFileError{
			Pos: start,
			Err: fmt.Errorf("xref size %d exceeds file length %d", size, s.buf.Len()),
		}
	}
	if size > 0 {
		if _, ok := xref[uint32(size-1)]; !ok {
			xref[uint32(size-1)] = xRefEntry{}
		}
	}
	return xref, superseded, nil
}

// readXRefTable reads one cross-reference section together with its
// trailer.  The end position returned covers the trailer and a following
// "startxref" line, if any.
func (s *Store) readXRefTable(pos int64, xref map[uint32]xRefEntry, superseded *[]int64) (Dict, int64, error) {
	sc := newScanner(s.buf.Bytes(), int(pos), nil)
	if !bytes.HasPrefix(sc.Peek(4), []byte("xref")) {
		return nil, 0, &MalformedFileError{
			Pos: pos,
			Err: errors.New("xref streams are not supported"),
		}
	}
	sc.pos += 4

	for {
		sc.SkipWhiteSpace()
		buf := sc.Peek(1)
		if len(buf) == 0 || buf[0] < '0' || buf[0] > '9' {
			break
		}

		start, err := sc.ReadInteger()
		if err != nil {
			return nil, 0, err
		}
		sc.SkipWhiteSpace()
		count, err := sc.ReadInteger()
		if err != nil {
			return nil, 0, err
		}
		if start < 0 || count < 0 || start+count > 1<<31 {
			return nil, 0, &MalformedFileError{
				Pos: int64(sc.pos),
				Err: fmt.Errorf("invalid xref subsection %d %d", start, count),
			}
		}

		for i := start; i < start+count; i++ {
			entry, err := readXRefEntry(sc)
			if err != nil {
				return nil, 0, err
			}
			num := uint32(i)
			if newer, ok := xref[num]; ok {
				if entry.inUse && entry.pos != newer.pos {
					*superseded = append(*superseded, entry.pos)
				}
				continue
			}
			xref[num] = entry
		}
	}

	err := sc.SkipString("trailer")
	if err != nil {
		return nil, 0, err
	}
	sc.SkipWhiteSpace()
	dict, err := sc.ReadDict()
	if err != nil {
		return nil, 0, err
	}

	end := sc.pos
	sc.SkipWhiteSpace()
	if bytes.HasPrefix(sc.Peek(9), []byte("startxref")) {
		sc.pos += 9
		sc.SkipWhiteSpace()
		if _, err := sc.ReadInteger(); err == nil {
			// this also skips the "%%EOF" marker, which is a comment
			sc.SkipWhiteSpace()
			end = sc.pos
		}
	}
	return dict, int64(end), nil
}

func readXRefEntry(sc *scanner) (xRefEntry, error) {
	sc.SkipWhiteSpace()
	start := sc.pos
	pos, err := sc.ReadInteger()
	if err != nil {
		return xRefEntry{}, err
	}
	sc.SkipWhiteSpace()
	gen, err := sc.ReadInteger()
	if err != nil {
		return xRefEntry{}, err
	}
	sc.SkipWhiteSpace()
	kw := sc.Peek(1)
	if len(kw) == 0 {
		return xRefEntry{}, sc.errorf("truncated xref table")
	}
	sc.pos++

	// fix a common error in some PDF files
	if gen == 65536 && pos == 0 {
		gen = 65535
		kw = []byte{'f'}
	}
	if gen < 0 || gen > 65535 || pos < 0 {
		return xRefEntry{}, &MalformedFileError{
			Pos: int64(start),
			Err: fmt.Errorf("invalid xref entry %d %d", pos, gen),
		}
	}
	switch kw[0] {
	case 'n':
		return xRefEntry{pos: int64(pos), gen: uint16(gen), inUse: true}, nil
	case 'f':
		return xRefEntry{gen: uint16(gen)}, nil
	default:
		return xRefEntry{}, &MalformedFileError{
			Pos: int64(start),
			Err: fmt.Errorf("invalid xref entry type %q", kw[0]),
		}
	}
}

// setEntries initialises the store entries from the cross-reference
// information.  Byte lengths of objects are derived from the start of the
// following object or xref section.
func (s *Store) setEntries(xref map[uint32]xRefEntry, superseded []int64) {
	size := 1
	for num := range xref {
		size = max(size, int(num)+1)
	}
	dataLen := int64(s.buf.Len())

	var bounds []int64
	live := make(map[int64]bool)
	for num, entry := range xref {
		if num != 0 && entry.inUse && entry.pos < dataLen {
			bounds = append(bounds, entry.pos)
			live[entry.pos] = true
		}
	}
	for _, pos := range superseded {
		bounds = append(bounds, pos)
	}
	for _, sp := range s.xrefSpans {
		bounds = append(bounds, sp.start)
	}
	bounds = append(bounds, dataLen)
	slices.Sort(bounds)
	bounds = slices.Compact(bounds)

	rangeFrom := func(pos int64) int64 {
		idx, _ := slices.BinarySearch(bounds, pos+1)
		if idx >= len(bounds) {
			return 0
		}
		return bounds[idx] - pos
	}

	version := s.buf.Version()
	s.entries = make([]entry, size)
	s.entries[0] = entry{state: stateFree, gen: 65535}
	s.freeNums = s.freeNums[:0]
	for num := 1; num < size; num++ {
		x := xref[uint32(num)]
		e := &s.entries[num]
		if !x.inUse {
			e.state = stateFree
			e.gen = x.gen
			if x.gen < 65535 {
				s.freeNums = append(s.freeNums, uint32(num))
			}
			continue
		}
		e.state = stateUnresolved
		e.gen = x.gen
		e.pos = x.pos
		e.version = version
		if x.pos < dataLen {
			e.length = rangeFrom(x.pos)
		}
	}

	for _, pos := range superseded {
		if !live[pos] && pos < dataLen {
			s.garbage = append(s.garbage, span{pos, pos + rangeFrom(pos)})
		}
	}
}

var objHeader = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// reconstructXRef scans the file image for "n g obj" headers.  If an object
// number is found more than once, the last occurrence wins.
func (s *Store) reconstructXRef() (map[uint32]xRefEntry, error) {
	data := s.buf.Bytes()
	s.xrefSpans = nil
	s.startXRef = 0

	// Old xref sections are not used, but their byte ranges delimit the
	// objects and are removed by SaveInPlace.
	for i := 0; ; {
		idx := bytes.Index(data[i:], []byte("xref"))
		if idx < 0 {
			break
		}
		pos := i + idx
		i = pos + 4
		if pos > 0 && !isSpace[data[pos-1]] {
			continue // "startxref"
		}
		_, end, err := s.readXRefTable(int64(pos), make(map[uint32]xRefEntry), new([]int64))
		if err == nil {
			s.xrefSpans = append(s.xrefSpans, span{int64(pos), end})
		}
	}

	xref := make(map[uint32]xRefEntry)
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		if m[0] > 0 && !isSpace[data[m[0]-1]] && !isDelimiter[data[m[0]-1]] {
			continue
		}
		num, err1 := strconv.ParseUint(string(data[m[2]:m[3]]), 10, 32)
		gen, err2 := strconv.ParseUint(string(data[m[4]:m[5]]), 10, 16)
		// every object needs at least one byte of the file
		if err1 != nil || err2 != nil || num == 0 || num >= uint64(len(data)) {
			continue
		}
		xref[uint32(num)] = xRefEntry{pos: int64(m[0]), gen: uint16(gen), inUse: true}
	}
	if len(xref) == 0 {
		return nil, &MalformedFileError{Err: errors.New("no objects found")}
	}

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		sc := newScanner(data, idx+7, nil)
		sc.SkipWhiteSpace()
		if dict, err := sc.ReadDict(); err == nil {
			for _, key := range []Name{"Root", "Info", "ID"} {
				if val, ok := dict[key]; ok {
					s.trailer[key] = val
				}
			}
		}
	}
	return xref, nil
}

// findCatalog sets the /Root entry of the trailer to the first object of
// type /Catalog.
func (s *Store) findCatalog() {
	for _, ref := range s.Refs() {
		dict, err := GetDict(s, ref)
		if err != nil {
			continue
		}
		if dict["Type"] == Name("Catalog") {
			s.trailer["Root"] = ref
			return
		}
	}
}
