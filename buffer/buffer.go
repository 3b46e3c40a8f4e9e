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

// Package buffer implements an editable in-memory byte buffer.
//
// A [Buffer] holds the complete byte image of a PDF file.  In addition to
// sequential and random access, the buffer allows to insert, delete and
// overwrite arbitrary byte ranges in place.  This is used to splice
// re-serialized objects into an existing file image.
//
// Every operation which moves or overwrites bytes already present in the
// buffer increments the buffer's version, see [Buffer.Version].  Callers
// which remember byte offsets can use the version to detect that their
// offsets may no longer be valid.
package buffer

import (
	"errors"
	"io"
)

// Buffer is a growable byte buffer with a read cursor and an optional mark.
//
// The zero value is an empty buffer ready to use.
//
// Buffer implements the [io.Reader], [io.ReaderAt], [io.ByteReader],
// [io.Writer], [io.Seeker] and [io.WriterTo] interfaces.
type Buffer struct {
	// data[:len(data)] holds the contents, cap(data) is the capacity.
	data []byte

	pos     int
	mark    int
	hasMark bool

	version uint64
}

// New allocates an empty buffer with the given initial capacity.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, 0, capacity)}
}

// NewFromBytes creates a buffer holding the given contents.
// The buffer takes ownership of data; the caller must not use the slice
// afterwards.
func NewFromBytes(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len returns the number of bytes in use.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the size of the allocated storage.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Pos returns the current cursor position.
func (b *Buffer) Pos() int {
	return b.pos
}

// Version returns a counter which changes whenever bytes already stored in
// the buffer are moved or overwritten.  Appending does not change the
// version, since existing offsets stay valid.
func (b *Buffer) Version() uint64 {
	return b.version
}

// Bytes returns the buffer contents.  The returned slice aliases the
// buffer storage and is only valid until the next modification.
func (b *Buffer) Bytes() []byte {
	return b.data[:len(b.data):len(b.data)]
}

// grow makes sure there is room for n more bytes.
// The capacity is at least doubled, so that repeated appends take
// amortized constant time per byte.
func (b *Buffer) grow(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := 2 * cap(b.data)
	if newCap < need {
		newCap = need
	}
	if newCap < minCapacity {
		newCap = minCapacity
	}
	data := make([]byte, len(b.data), newCap)
	copy(data, b.data)
	b.data = data
}

const minCapacity = 64

// Append adds p at the end of the buffer.
func (b *Buffer) Append(p []byte) {
	b.grow(len(p))
	b.data = append(b.data, p...)
}

// AppendString adds s at the end of the buffer.
func (b *Buffer) AppendString(s string) {
	b.grow(len(s))
	b.data = append(b.data, s...)
}

// Write appends p to the buffer.  The cursor is not moved.
// This implements the [io.Writer] interface.
func (b *Buffer) Write(p []byte) (int, error) {
	b.Append(p)
	return len(p), nil
}

// WriteString appends s to the buffer.
// This implements the [io.StringWriter] interface.
func (b *Buffer) WriteString(s string) (int, error) {
	b.AppendString(s)
	return len(s), nil
}

// Read reads up to len(p) bytes from the cursor position and advances the
// cursor.  At the end of the buffer, Read returns [io.EOF].
// This implements the [io.Reader] interface.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

// Next returns up to n bytes from the cursor position and advances the
// cursor past them.  The result is a copy and stays valid when the buffer
// is modified.
func (b *Buffer) Next(n int) []byte {
	if n < 0 {
		n = 0
	}
	end := b.pos + min(n, len(b.data)-b.pos)
	res := make([]byte, end-b.pos)
	copy(res, b.data[b.pos:end])
	b.pos = end
	return res
}

// ReadByte reads the byte at the cursor position.
// This implements the [io.ByteReader] interface.
func (b *Buffer) ReadByte() (byte, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	c := b.data[b.pos]
	b.pos++
	return c, nil
}

// ReadAt copies bytes starting at offset off into p.  The cursor is not
// used.  If fewer than len(p) bytes are available, the error is [io.EOF].
// This implements the [io.ReaderAt] interface.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrOutOfRange
	}
	if off >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteTo writes the buffer contents to w.  The cursor is not used.
// This implements the [io.WriterTo] interface.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}

// Insert shifts the bytes from index onwards to the right and copies p
// into the gap.  Index may equal Len, in which case Insert appends.
//
// A cursor or mark positioned after index is moved along with the data,
// so that it keeps pointing at the same byte.
func (b *Buffer) Insert(index int, p []byte) error {
	if index < 0 || index > len(b.data) {
		return ErrOutOfRange
	}
	if len(p) == 0 {
		return nil
	}
	n := len(p)
	oldLen := len(b.data)
	b.grow(n)
	b.data = b.data[:oldLen+n]
	copy(b.data[index+n:], b.data[index:oldLen])
	copy(b.data[index:], p)

	if b.pos > index {
		b.pos += n
	}
	if b.hasMark && b.mark > index {
		b.mark += n
	}
	if index < oldLen {
		b.version++
	}
	return nil
}

// Delete removes count bytes starting at index.  The range is clipped to
// the end of the buffer.
//
// A cursor or mark inside the deleted range is moved to index, positions
// after the range move left by the number of removed bytes.
func (b *Buffer) Delete(index, count int) error {
	if index < 0 || index > len(b.data) || count < 0 {
		return ErrOutOfRange
	}
	n := min(count, len(b.data)-index)
	end := index + n
	if n == 0 {
		return nil
	}
	copy(b.data[index:], b.data[end:])
	b.data = b.data[:len(b.data)-n]

	b.pos = shiftDeleted(b.pos, index, end)
	if b.hasMark {
		b.mark = shiftDeleted(b.mark, index, end)
	}
	b.version++
	return nil
}

func shiftDeleted(pos, start, end int) int {
	switch {
	case pos <= start:
		return pos
	case pos < end:
		return start
	default:
		return pos - (end - start)
	}
}

// Replace overwrites the bytes starting at index with p.  The length of
// the buffer is not changed; if the range extends beyond the end of the
// buffer, [ErrOutOfRange] is returned and nothing is written.
func (b *Buffer) Replace(index int, p []byte) error {
	if index < 0 || index > len(b.data) || len(p) > len(b.data)-index {
		return ErrOutOfRange
	}
	if len(p) == 0 {
		return nil
	}
	copy(b.data[index:], p)
	b.version++
	return nil
}

// Truncate discards all but the first n bytes.
func (b *Buffer) Truncate(n int) error {
	if n < 0 || n > len(b.data) {
		return ErrOutOfRange
	}
	if n == len(b.data) {
		return nil
	}
	b.data = b.data[:n]
	b.pos = min(b.pos, n)
	if b.hasMark {
		b.mark = min(b.mark, n)
	}
	b.version++
	return nil
}

// Seek sets the cursor position.  The new position is clipped to the range
// from 0 to Len.
// This implements the [io.Seeker] interface.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		// base = 0
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return int64(b.pos), errInvalidWhence
	}
	b.pos = b.clip(base + offset)
	return int64(b.pos), nil
}

// Skip moves the cursor by delta bytes, clipped to the range from 0 to
// Len.  The new position is returned.
func (b *Buffer) Skip(delta int) int {
	b.pos = b.clip(int64(b.pos) + int64(delta))
	return b.pos
}

func (b *Buffer) clip(pos int64) int {
	if pos < 0 {
		return 0
	}
	if pos > int64(len(b.data)) {
		return len(b.data)
	}
	return int(pos)
}

// Mark records the current cursor position.
func (b *Buffer) Mark() {
	b.mark = b.pos
	b.hasMark = true
}

// ResetToMark moves the cursor back to the position recorded by the last
// call to [Buffer.Mark].  The mark stays in place.
func (b *Buffer) ResetToMark() error {
	if !b.hasMark {
		return ErrNoMark
	}
	b.pos = b.mark
	return nil
}

// Slice returns a read-only view of n bytes starting at index.  The
// returned slice shares storage with the buffer; it must not be modified
// and is only valid until the buffer is next changed.
func (b *Buffer) Slice(index, n int) ([]byte, error) {
	if index < 0 || n < 0 || index > len(b.data) || n > len(b.data)-index {
		return nil, ErrOutOfRange
	}
	return b.data[index : index+n : index+n], nil
}

var (
	// ErrOutOfRange is returned when a buffer operation refers to a
	// position outside the range from 0 to the buffer length.
	ErrOutOfRange = errors.New("buffer: position out of range")

	// ErrNoMark is returned by [Buffer.ResetToMark] if no mark is set.
	ErrNoMark = errors.New("buffer: no mark set")

	errInvalidWhence = errors.New("buffer: invalid whence")
)
