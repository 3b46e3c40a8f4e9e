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
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"golang.org/x/exp/maps"
)

// SaveIncremental appends all changed objects to the file image, followed
// by a cross-reference section for the changed and freed object numbers
// and a trailer pointing to the previous section.  The existing bytes of
// the file image are not modified.
//
// If the file image does not yet contain a cross-reference table, a
// complete table is written.
func (s *Store) SaveIncremental() error {
	dirty := s.dirtyNums()
	if len(dirty) == 0 && len(s.freed) == 0 && s.startXRef != 0 {
		return nil
	}
	if err := s.checkTrailer(); err != nil {
		return err
	}

	// All objects are serialized before the file image is modified,
	// so that errors leave the store unchanged.
	data := make([][]byte, len(dirty))
	for i, num := range dirty {
		ref := NewReference(num, s.entries[num].gen)
		var err error
		data[i], err = formatIndirect(ref, s.entries[num].obj)
		if err != nil {
			return Wrap(err, "object "+ref.String())
		}
	}

	s.ensureEOL()
	version := s.buf.Version()
	for i, num := range dirty {
		e := &s.entries[num]
		if e.hasRange() {
			s.garbage = append(s.garbage, span{e.pos, e.pos + e.length})
		}
		e.pos = int64(s.buf.Len())
		e.length = int64(len(data[i]))
		e.version = version
		e.dirty = false
		s.buf.Append(data[i])
	}

	var nums []uint32
	if s.startXRef == 0 {
		nums = s.allNums()
	} else {
		nums = maps.Keys(s.freed)
		nums = append(nums, dirty...)
		slices.Sort(nums)
		nums = slices.Compact(nums)
	}
	s.writeXRef(nums, s.startXRef)
	clear(s.freed)
	return nil
}

// SaveInPlace rewrites the file image as a single revision.
//
// Changed objects are re-serialized over their old byte ranges, the bytes
// of freed objects and all old cross-reference sections are removed, new
// objects are appended, and a complete cross-reference table is written
// at the end.  Objects which have not been accessed are not parsed; their
// bytes are kept as they are and only their recorded positions change.
func (s *Store) SaveInPlace() error {
	type edit struct {
		span
		data []byte
		num  uint32 // 0 for deletions
	}

	if err := s.checkTrailer(); err != nil {
		return err
	}

	// All objects are serialized before the file image is modified,
	// so that errors leave the store unchanged.
	var edits, appends []edit
	for _, num := range s.dirtyNums() {
		e := &s.entries[num]
		ref := NewReference(num, e.gen)
		data, err := formatIndirect(ref, e.obj)
		if err != nil {
			return Wrap(err, "object "+ref.String())
		}
		if e.hasRange() {
			edits = append(edits, edit{span: span{e.pos, e.pos + e.length}, data: data, num: num})
		} else {
			appends = append(appends, edit{data: data, num: num})
		}
	}
	for _, sp := range s.garbage {
		edits = append(edits, edit{span: sp})
	}
	for _, sp := range s.xrefSpans {
		edits = append(edits, edit{span: sp})
	}
	slices.SortFunc(edits, func(a, b edit) int {
		return cmp.Compare(a.start, b.start)
	})
	for i := 1; i < len(edits); i++ {
		if edits[i].start < edits[i-1].end {
			return &MalformedFileError{
				Pos: edits[i].start,
				Err: errors.New("overlapping byte ranges"),
			}
		}
	}

	// Splice from the end of the buffer, so that the positions of earlier
	// edits stay valid.
	for i := len(edits) - 1; i >= 0; i-- {
		ed := edits[i]
		pos := int(ed.start)
		oldLen := int(ed.end - ed.start)
		var err error
		if len(ed.data) == oldLen {
			err = s.buf.Replace(pos, ed.data)
		} else {
			err = s.buf.Delete(pos, oldLen)
			if err == nil {
				err = s.buf.Insert(pos, ed.data)
			}
		}
		if err != nil {
			// The positions were checked above, this cannot happen.
			panic(err)
		}
	}

	// delta[i] is the total change in length caused by edits[:i].
	delta := make([]int64, len(edits)+1)
	for i, ed := range edits {
		delta[i+1] = delta[i] + int64(len(ed.data)) - (ed.end - ed.start)
	}
	shift := func(pos int64) int64 {
		k := sort.Search(len(edits), func(i int) bool {
			return edits[i].end > pos
		})
		return pos + delta[k]
	}

	version := s.buf.Version()
	for num := 1; num < len(s.entries); num++ {
		e := &s.entries[num]
		if e.state == stateFree || !e.hasRange() {
			continue
		}
		e.pos = shift(e.pos)
		e.version = version
	}
	for _, ed := range edits {
		if ed.num == 0 {
			continue
		}
		e := &s.entries[ed.num]
		e.length = int64(len(ed.data))
		e.dirty = false
	}

	s.ensureEOL()
	for _, ed := range appends {
		e := &s.entries[ed.num]
		e.pos = int64(s.buf.Len())
		e.length = int64(len(ed.data))
		e.version = version
		e.dirty = false
		s.buf.Append(ed.data)
	}

	s.garbage = nil
	s.xrefSpans = nil
	s.writeXRef(s.allNums(), 0)
	clear(s.freed)
	return nil
}

func (s *Store) checkTrailer() error {
	if err := s.trailer.PDF(io.Discard); err != nil {
		return Wrap(err, "trailer")
	}
	return nil
}

func (s *Store) dirtyNums() []uint32 {
	var res []uint32
	for num := 1; num < len(s.entries); num++ {
		e := &s.entries[num]
		if e.state != stateFree && e.dirty {
			res = append(res, uint32(num))
		}
	}
	return res
}

func (s *Store) allNums() []uint32 {
	res := make([]uint32, len(s.entries))
	for i := range res {
		res[i] = uint32(i)
	}
	return res
}

func (s *Store) ensureEOL() {
	data := s.buf.Bytes()
	if n := len(data); n > 0 && data[n-1] != '\n' && data[n-1] != '\r' {
		s.buf.AppendString("\n")
	}
}

func formatIndirect(ref Reference, obj Object) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := writeIndirect(buf, ref, obj)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeIndirect(w io.Writer, ref Reference, obj Object) error {
	_, err := fmt.Fprintf(w, "%d %d obj\n", ref.Number(), ref.Generation())
	if err != nil {
		return err
	}
	err = writeObject(w, obj)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\nendobj\n")
	return err
}

// writeXRef appends a cross-reference section for the given object
// numbers, the trailer, and the "startxref" line.  The numbers must be
// sorted.  If prev is non-zero, the trailer points to the previous
// section at this position.
func (s *Store) writeXRef(nums []uint32, prev int64) {
	xrefPos := int64(s.buf.Len())

	// The free entries form a linked list, starting at object 0.
	nextFree := make(map[uint32]uint32)
	last := uint32(0)
	for num := 1; num < len(s.entries); num++ {
		if s.entries[num].state == stateFree {
			nextFree[last] = uint32(num)
			last = uint32(num)
		}
	}
	nextFree[last] = 0

	s.buf.AppendString("xref\n")
	for i := 0; i < len(nums); {
		j := i + 1
		for j < len(nums) && nums[j] == nums[j-1]+1 {
			j++
		}
		fmt.Fprintf(s.buf, "%d %d\n", nums[i], j-i)
		for _, num := range nums[i:j] {
			e := &s.entries[num]
			if e.state == stateFree {
				fmt.Fprintf(s.buf, "%010d %05d f\r\n", nextFree[num], e.gen)
			} else {
				fmt.Fprintf(s.buf, "%010d %05d n\r\n", e.pos, e.gen)
			}
		}
		i = j
	}

	trailer := s.trailer.Clone()
	trailer["Size"] = Integer(len(s.entries))
	if prev > 0 {
		trailer["Prev"] = Integer(prev)
	}
	s.buf.AppendString("trailer\n")
	err := trailer.PDF(s.buf)
	if err != nil {
		// checked by checkTrailer
		panic(err)
	}
	fmt.Fprintf(s.buf, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	s.xrefSpans = append(s.xrefSpans, span{xrefPos, int64(s.buf.Len())})
	s.startXRef = xrefPos
}
