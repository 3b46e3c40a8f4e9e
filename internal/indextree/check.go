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

package indextree

import (
	"fmt"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

// Check verifies the structure of the tree:
//   - leaf keys are strictly increasing,
//   - every node except the root is non-empty and has a /Limits entry
//     which matches its subtree,
//   - the key ranges of the kids of a node are increasing and do not
//     overlap,
//   - no node is reachable twice.
//
// The first problem found is returned as a [*pdf.MalformedFileError].
func (t *Tree[K]) Check() error {
	_, _, _, err := t.check(t.ref, 0, pdf.NewCycleChecker())
	return err
}

func (t *Tree[K]) check(ref pdf.Reference, depth int, cc *pdf.CycleChecker) (lo, hi K, ok bool, err error) {
	fail := func(format string, args ...any) error {
		return &pdf.MalformedFileError{
			Err: fmt.Errorf(format, args...),
			Loc: []string{"tree node " + ref.String()},
		}
	}

	if err := cc.Check(ref); err != nil {
		return lo, hi, false, err
	}
	if depth > maxDepth {
		return lo, hi, false, errTooDeep
	}
	n, err := t.readNode(ref)
	if err != nil {
		return lo, hi, false, err
	}

	if n.leaf {
		entries, _ := pdf.GetArray(t.doc, n.dict[t.codec.Entries])
		if len(entries)%2 != 0 {
			return lo, hi, false, fail("odd number of elements in /%s", t.codec.Entries)
		}
		if len(n.keys) != len(entries)/2 {
			return lo, hi, false, fail("invalid keys, or keys not in increasing order")
		}
		if len(n.keys) > 0 {
			lo, hi, ok = n.keys[0], n.keys[len(n.keys)-1], true
		}
	} else {
		for i, kid := range n.kids {
			kidLo, kidHi, kidOK, err := t.check(kid, depth+1, cc)
			if err != nil {
				return lo, hi, false, pdf.Wrap(err, fmt.Sprintf("kid %d", i))
			}
			if !kidOK {
				continue
			}
			if ok && t.codec.Compare(kidLo, hi) <= 0 {
				return lo, hi, false, fail("kid %d overlaps its predecessor", i)
			}
			if !ok {
				lo = kidLo
			}
			hi = kidHi
			ok = true
		}
	}

	if depth == 0 {
		return lo, hi, ok, nil
	}
	if !ok {
		return lo, hi, false, fail("empty node")
	}
	limits, _ := pdf.GetArray(t.doc, n.dict["Limits"])
	if len(limits) != 2 {
		return lo, hi, false, fail("missing /Limits")
	}
	limLo, err1 := t.codec.Decode(t.doc, limits[0])
	limHi, err2 := t.codec.Decode(t.doc, limits[1])
	if err1 != nil || err2 != nil ||
		t.codec.Compare(limLo, lo) != 0 || t.codec.Compare(limHi, hi) != 0 {
		return lo, hi, false, fail("wrong /Limits %s", pdf.Format(limits))
	}
	return lo, hi, true, nil
}
