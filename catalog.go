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

	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"
)

// Catalog is a facade for the document catalog.
//
// The catalog is the root of the object graph.  It holds references to the
// page tree, and optionally to the page labels, the name dictionary, the
// article threads, and the document's page-piece dictionary.
//
// The Document Catalog is documented in section 7.7.2 of ISO 32000-2:2020.
type Catalog struct {
	doc *Document
	ref Reference
}

// Catalog returns the facade for the document catalog.
func (d *Document) Catalog() (*Catalog, error) {
	ref, err := d.Root()
	if err != nil {
		return nil, err
	}
	return GetFacade(d, ref, decodeCatalog)
}

func decodeCatalog(d *Document, ref Reference) (*Catalog, error) {
	dict, err := GetDictTyped(d, ref, "Catalog")
	if err != nil {
		return nil, Wrap(err, "catalog")
	}
	if dict == nil {
		return nil, &MalformedFileError{
			Err: errNotDict,
			Loc: []string{"catalog"},
		}
	}
	return &Catalog{doc: d, ref: ref}, nil
}

// Ref implements the [Facade] interface.
func (c *Catalog) Ref() Reference {
	return c.ref
}

// Get returns the value of a catalog entry, without resolving references.
func (c *Catalog) Get(key Name) (Object, error) {
	dict, err := GetDict(c.doc, c.ref)
	if err != nil {
		return nil, err
	}
	return dict[key], nil
}

// Set changes a catalog entry.  A nil value removes the entry.
func (c *Catalog) Set(key Name, val Object) error {
	return c.doc.SetDictEntry(c.ref, key, val)
}

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (Reference, error) {
	obj, err := c.Get("Pages")
	if err != nil {
		return 0, err
	}
	ref, err := GetReference(obj)
	if err != nil {
		return 0, Wrap(err, "Pages")
	}
	if ref == 0 {
		return 0, &MalformedFileError{Err: errNoPages, Loc: []string{"catalog"}}
	}
	return ref, nil
}

var errNoPages = errors.New("missing page tree")

// Version returns the PDF version of the document.  The /Version entry in
// the catalog overrides the file header, if it specifies a later version.
func (c *Catalog) Version() (Version, error) {
	v := c.doc.store.Version()
	obj, err := c.Get("Version")
	if err != nil {
		return 0, err
	}
	name, err := Optional(GetName(c.doc, obj))
	if err != nil {
		return 0, err
	}
	if cv, err := ParseVersion(string(name)); err == nil && cv > v {
		v = cv
	}
	return v, nil
}

// Lang returns the natural language of the document.
// If no language is set, or if the entry is malformed,
// [language.Und] is returned.
func (c *Catalog) Lang() (language.Tag, error) {
	obj, err := c.Get("Lang")
	if err != nil {
		return language.Und, err
	}
	s, err := Optional(GetTextString(c.doc, obj))
	if err != nil {
		return language.Und, err
	}
	if s == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, nil
	}
	return tag, nil
}

// SetLang sets the natural language of the document.
// Setting [language.Und] removes the entry.
func (c *Catalog) SetLang(tag language.Tag) error {
	if tag == language.Und {
		return c.Set("Lang", nil)
	}
	return c.Set("Lang", TextString(tag.String()))
}

// Metadata returns the XMP metadata of the document.  If the catalog has no
// /Metadata stream, nil is returned.
//
// Only unfiltered metadata streams can be read.
func (c *Catalog) Metadata() (*xmp.Packet, error) {
	obj, err := c.Get("Metadata")
	if err != nil {
		return nil, err
	}
	stm, err := GetStream(c.doc, obj)
	if err != nil {
		return nil, Wrap(err, "Metadata")
	} else if stm == nil {
		return nil, nil
	}
	if stm.Dict["Filter"] != nil {
		return nil, errFilteredMetadata
	}

	packet, err := xmp.Read(bytes.NewReader(stm.Data))
	if err != nil {
		return nil, &MalformedFileError{
			Err: err,
			Loc: []string{"Metadata"},
		}
	}
	return packet, nil
}

// SetMetadata stores packet as the XMP metadata stream of the document.
// An existing indirect metadata stream keeps its identity.  If packet is
// nil, the metadata stream is removed and freed.
func (c *Catalog) SetMetadata(packet *xmp.Packet) error {
	old, err := c.Get("Metadata")
	if err != nil {
		return err
	}
	oldRef, isRef := old.(Reference)
	isRef = isRef && c.doc.IsLive(oldRef)

	if packet == nil {
		if isRef {
			if err := c.doc.Free(oldRef); err != nil {
				return err
			}
		}
		return c.Set("Metadata", nil)
	}

	body := &bytes.Buffer{}
	if err := packet.Write(body, nil); err != nil {
		return err
	}
	stm := &Stream{
		Dict: Dict{
			"Type":    Name("Metadata"),
			"Subtype": Name("XML"),
		},
		Data: body.Bytes(),
	}
	if isRef {
		return c.doc.Update(oldRef, stm)
	}
	return c.Set("Metadata", c.doc.Register(stm))
}

var errFilteredMetadata = errors.New("filtered metadata streams are not supported")
