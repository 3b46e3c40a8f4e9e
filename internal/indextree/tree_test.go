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
	"bytes"
	"errors"
	"maps"
	"math/rand"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexandrvslv/pdf-clown-sub003"
)

var intCodec = &Codec[pdf.Integer]{
	Entries: "Nums",
	Compare: func(a, b pdf.Integer) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	},
	Decode: pdf.GetInt,
	Encode: func(k pdf.Integer) pdf.Object { return k },
}

func newDoc(t *testing.T) *pdf.Document {
	t.Helper()
	doc, err := pdf.NewDocument(pdf.V1_7)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func newTree(t *testing.T, doc *pdf.Document, maxEntries int) *Tree[pdf.Integer] {
	t.Helper()
	tree, err := New(doc, intCodec)
	if err != nil {
		t.Fatal(err)
	}
	tree.MaxEntries = maxEntries
	return tree
}

func keys(tree *Tree[pdf.Integer]) []pdf.Integer {
	var res []pdf.Integer
	for key := range tree.All() {
		res = append(res, key)
	}
	return res
}

func nodeRefs(t *testing.T, tree *Tree[pdf.Integer]) []pdf.Reference {
	t.Helper()
	var res []pdf.Reference
	err := tree.walk(func(n *node[pdf.Integer], depth int) error {
		if depth > 0 {
			res = append(res, n.ref)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestEmpty(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 0)

	if _, err := tree.Lookup(1); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Lookup: %v", err)
	}
	if _, _, err := tree.Floor(1); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Floor: %v", err)
	}
	if n, err := tree.Len(); n != 0 || err != nil {
		t.Errorf("Len: %d, %v", n, err)
	}
	if k := keys(tree); len(k) != 0 {
		t.Errorf("All: %v", k)
	}
	if found, err := tree.Remove(1); found || err != nil {
		t.Errorf("Remove: %t, %v", found, err)
	}
	if err := tree.Check(); err != nil {
		t.Error(err)
	}
}

func TestInsertLookup(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 0)

	for _, key := range []pdf.Integer{5, 1, 3} {
		if err := tree.Insert(key, pdf.Integer(10*key)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tree.Insert(3, pdf.Name("three")); err != nil {
		t.Fatal(err)
	}

	val, err := tree.Lookup(3)
	if err != nil || val != pdf.Name("three") {
		t.Errorf("Lookup(3) = %v, %v", val, err)
	}
	val, err = tree.Lookup(5)
	if err != nil || val != pdf.Integer(50) {
		t.Errorf("Lookup(5) = %v, %v", val, err)
	}
	if _, err := tree.Lookup(4); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Lookup(4): %v", err)
	}

	dict, err := pdf.GetDict(doc, tree.Ref())
	if err != nil {
		t.Fatal(err)
	}
	want := pdf.Array{pdf.Integer(1), pdf.Integer(10), pdf.Integer(3), pdf.Name("three"), pdf.Integer(5), pdf.Integer(50)}
	if d := cmp.Diff(want, dict["Nums"]); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
	if _, hasLimits := dict["Limits"]; hasLimits {
		t.Error("root has /Limits")
	}
}

func TestSplit(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 4)
	root := tree.Ref()
	for key := range pdf.Integer(5) {
		if err := tree.Insert(key+1, nil); err != nil {
			t.Fatal(err)
		}
	}
	if tree.Ref() != root {
		t.Fatal("root identity changed")
	}

	dict, _ := pdf.GetDict(doc, root)
	kids, _ := dict["Kids"].(pdf.Array)
	if len(kids) != 2 {
		t.Fatalf("root has %d kids, want 2", len(kids))
	}
	if _, ok := dict["Nums"]; ok {
		t.Error("intermediate root still has /Nums")
	}

	wantLimits := []pdf.Array{
		{pdf.Integer(1), pdf.Integer(2)},
		{pdf.Integer(3), pdf.Integer(5)},
	}
	for i, kid := range kids {
		kidDict, err := pdf.GetDict(doc, kid)
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(wantLimits[i], kidDict["Limits"]); d != "" {
			t.Errorf("kid %d: (-want +got):\n%s", i, d)
		}
	}
	if err := tree.Check(); err != nil {
		t.Error(err)
	}
}

func TestLimitsUpdated(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 4)
	for _, key := range []pdf.Integer{10, 20, 30, 40, 50, 60, 70} {
		if err := tree.Insert(key, nil); err != nil {
			t.Fatal(err)
		}
	}

	// new minimum and maximum
	if err := tree.Insert(5, nil); err != nil {
		t.Fatal(err)
	}
	if err := tree.Insert(75, nil); err != nil {
		t.Fatal(err)
	}
	if err := tree.Check(); err != nil {
		t.Fatal(err)
	}

	// remove boundary keys
	for _, key := range []pdf.Integer{5, 75, 30} {
		if found, err := tree.Remove(key); !found || err != nil {
			t.Fatalf("Remove(%d): %t, %v", key, found, err)
		}
		if err := tree.Check(); err != nil {
			t.Fatalf("after removing %d: %v", key, err)
		}
	}
}

func TestRandomOperations(t *testing.T) {
	for _, maxEntries := range []int{2, 3, 4, 16} {
		doc := newDoc(t)
		tree := newTree(t, doc, maxEntries)
		root := tree.Ref()
		rng := rand.New(rand.NewSource(int64(maxEntries)))

		ref := make(map[pdf.Integer]pdf.Object)
		for step := range 2000 {
			key := pdf.Integer(rng.Intn(300))
			if rng.Intn(3) > 0 {
				val := pdf.Integer(step)
				if err := tree.Insert(key, val); err != nil {
					t.Fatal(err)
				}
				ref[key] = val
			} else {
				_, present := ref[key]
				found, err := tree.Remove(key)
				if err != nil {
					t.Fatal(err)
				}
				if found != present {
					t.Fatalf("Remove(%d) = %t, want %t", key, found, present)
				}
				delete(ref, key)
			}

			if step%97 != 0 {
				continue
			}
			if err := tree.Check(); err != nil {
				t.Fatalf("max %d, step %d: %v", maxEntries, step, err)
			}
			want := slices.Sorted(maps.Keys(ref))
			if d := cmp.Diff(want, keys(tree)); d != "" {
				t.Fatalf("max %d, step %d: (-want +got):\n%s", maxEntries, step, d)
			}
		}

		if tree.Ref() != root {
			t.Error("root identity changed")
		}
		for key := range pdf.Integer(300) {
			val, err := tree.Lookup(key)
			want, present := ref[key]
			if present && (err != nil || val != want) {
				t.Errorf("Lookup(%d) = %v, %v, want %v", key, val, err, want)
			} else if !present && !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("Lookup(%d) = %v, %v, want not found", key, val, err)
			}
		}
		if n, _ := tree.Len(); n != len(ref) {
			t.Errorf("Len() = %d, want %d", n, len(ref))
		}
	}
}

func TestRemoveFreesNodes(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 4)
	for key := range pdf.Integer(40) {
		if err := tree.Insert(key, nil); err != nil {
			t.Fatal(err)
		}
	}
	nodes := nodeRefs(t, tree)
	if len(nodes) < 10 {
		t.Fatalf("only %d nodes", len(nodes))
	}

	for key := range pdf.Integer(40) {
		if _, err := tree.Remove(key); err != nil {
			t.Fatal(err)
		}
	}
	for _, ref := range nodes {
		if _, err := doc.Resolve(ref); !errors.Is(err, pdf.ErrBrokenReference) {
			t.Errorf("node %s not freed: %v", ref, err)
		}
	}

	dict, _ := pdf.GetDict(doc, tree.Ref())
	if d := cmp.Diff(pdf.Dict{"Nums": pdf.Array{}}, dict); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
}

func TestRootCollapse(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 4)
	for key := range pdf.Integer(5) {
		if err := tree.Insert(key+1, nil); err != nil {
			t.Fatal(err)
		}
	}
	nodes := nodeRefs(t, tree)

	for _, key := range []pdf.Integer{3, 4, 5} {
		if _, err := tree.Remove(key); err != nil {
			t.Fatal(err)
		}
	}

	dict, _ := pdf.GetDict(doc, tree.Ref())
	want := pdf.Dict{"Nums": pdf.Array{pdf.Integer(1), nil, pdf.Integer(2), nil}}
	if d := cmp.Diff(want, dict); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
	for _, ref := range nodes {
		if doc.IsLive(ref) {
			t.Errorf("node %s still live", ref)
		}
	}
}

func TestFloor(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 3)
	for _, key := range []pdf.Integer{0, 4, 10, 11, 20, 35, 36, 50} {
		if err := tree.Insert(key, pdf.Integer(key)); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		in, want pdf.Integer
	}{
		{0, 0}, {3, 0}, {4, 4}, {9, 4}, {10, 10}, {19, 11},
		{34, 20}, {35, 35}, {49, 36}, {50, 50}, {1000, 50},
	}
	for _, test := range cases {
		key, val, err := tree.Floor(test.in)
		if err != nil {
			t.Errorf("Floor(%d): %v", test.in, err)
			continue
		}
		if key != test.want || val != test.want {
			t.Errorf("Floor(%d) = %d, want %d", test.in, key, test.want)
		}
	}
	if _, _, err := tree.Floor(-1); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Floor(-1): %v", err)
	}
}

func TestAllRestartable(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 3)
	for key := range pdf.Integer(20) {
		tree.Insert(key, nil)
	}

	seq := tree.All()
	var first []pdf.Integer
	for key := range seq {
		first = append(first, key)
		if key == 7 {
			break
		}
	}
	var second []pdf.Integer
	for key := range seq {
		second = append(second, key)
	}
	if len(first) != 8 || len(second) != 20 {
		t.Errorf("got %d and %d entries", len(first), len(second))
	}
}

func TestBuild(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 9, 64, 65, 1000} {
		doc := newDoc(t)
		data := func(yield func(pdf.Integer, pdf.Object) bool) {
			for i := range n {
				if !yield(pdf.Integer(2*i), pdf.Integer(i)) {
					return
				}
			}
		}
		tree, err := Build(doc, intCodec, data, 8)
		if err != nil {
			t.Fatal(err)
		}
		if err := tree.Check(); err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		got := keys(tree)
		if len(got) != n {
			t.Fatalf("n=%d: got %d keys", n, len(got))
		}
		for i, key := range got {
			if key != pdf.Integer(2*i) {
				t.Fatalf("n=%d: wrong key %d at %d", n, key, i)
			}
		}
		err = tree.walk(func(nd *node[pdf.Integer], depth int) error {
			if nd.size() > 8 {
				t.Errorf("n=%d: node with %d entries", n, nd.size())
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestBuildUnsorted(t *testing.T) {
	doc := newDoc(t)
	data := func(yield func(pdf.Integer, pdf.Object) bool) {
		_ = yield(2, nil) && yield(1, nil)
	}
	if _, err := Build(doc, intCodec, data, 8); err == nil {
		t.Error("unsorted keys were accepted")
	}
}

func TestRebuild(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 4)
	for key := range pdf.Integer(200) {
		tree.Insert(key, pdf.Integer(key))
	}
	for key := pdf.Integer(0); key < 200; key++ {
		if key%10 != 0 {
			tree.Remove(key)
		}
	}
	before := nodeRefs(t, tree)

	if err := tree.Rebuild(); err != nil {
		t.Fatal(err)
	}
	if err := tree.Check(); err != nil {
		t.Fatal(err)
	}
	after := nodeRefs(t, tree)
	if len(after) >= len(before) {
		t.Errorf("rebuild: %d nodes before, %d after", len(before), len(after))
	}
	got := keys(tree)
	if len(got) != 20 || got[19] != 190 {
		t.Errorf("wrong keys %v", got)
	}
	val, err := tree.Lookup(150)
	if err != nil || val != pdf.Integer(150) {
		t.Errorf("Lookup(150) = %v, %v", val, err)
	}
}

func TestOpenIdentity(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 0)
	t2, err := Open(doc, tree.Ref(), intCodec)
	if err != nil {
		t.Fatal(err)
	}
	if t2 != tree {
		t.Error("Open returned a second facade")
	}

	if _, err := Open(doc, pdf.NewReference(999, 0), intCodec); !errors.Is(err, pdf.ErrBrokenReference) {
		t.Errorf("missing root: %v", err)
	}
	arr := doc.Register(pdf.Array{})
	if _, err := Open(doc, arr, intCodec); !pdf.IsMalformed(err) {
		t.Errorf("array root: %v", err)
	}
}

// TestDamagedTree reads a tree written by a different program: the root
// has no /Nums array, the kids have no /Limits, and one leaf has keys out
// of order.
func TestDamagedTree(t *testing.T) {
	doc := newDoc(t)
	leaf1 := doc.Register(pdf.Dict{"Nums": pdf.Array{pdf.Integer(1), pdf.Name("a"), pdf.Integer(3), pdf.Name("b")}})
	leaf2 := doc.Register(pdf.Dict{"Nums": pdf.Array{pdf.Integer(7), pdf.Name("c"), pdf.Integer(5), pdf.Name("x"), pdf.Integer(9), pdf.Name("d")}})
	root := doc.Register(pdf.Dict{"Kids": pdf.Array{leaf1, leaf2}})

	tree, err := Open(doc, root, intCodec)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Check(); !pdf.IsMalformed(err) {
		t.Errorf("Check: %v", err)
	}
	if d := cmp.Diff([]pdf.Integer{1, 3, 7, 9}, keys(tree)); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
	val, err := tree.Lookup(7)
	if err != nil || val != pdf.Name("c") {
		t.Errorf("Lookup(7) = %v, %v", val, err)
	}

	// writing to the tree adds the missing /Limits
	if err := tree.Insert(8, pdf.Name("e")); err != nil {
		t.Fatal(err)
	}
	if err := tree.Insert(2, pdf.Name("f")); err != nil {
		t.Fatal(err)
	}
	if err := tree.Check(); err != nil {
		t.Error(err)
	}
}

func TestCycle(t *testing.T) {
	doc := newDoc(t)
	root := doc.Register(pdf.Dict{})
	kid := doc.Register(pdf.Dict{"Kids": pdf.Array{root}, "Limits": pdf.Array{pdf.Integer(0), pdf.Integer(10)}})
	doc.Update(root, pdf.Dict{"Kids": pdf.Array{kid}})

	tree, err := Open(doc, root, intCodec)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree.Check(); !errors.Is(err, pdf.ErrCycle) {
		t.Errorf("Check: %v", err)
	}
	if _, err := tree.Lookup(5); !errors.Is(err, pdf.ErrCycle) {
		t.Errorf("Lookup: %v", err)
	}
	if k := keys(tree); len(k) != 0 {
		t.Errorf("All: %v", k)
	}
}

func TestNormalize(t *testing.T) {
	doc := newDoc(t)
	owner := doc.Register(pdf.Dict{
		"PageLabels": pdf.Dict{"Nums": pdf.Array{pdf.Integer(0), pdf.Dict{"S": pdf.Name("D")}}},
	})

	ref, err := Normalize(doc, owner, "PageLabels")
	if err != nil {
		t.Fatal(err)
	}
	if ref == 0 {
		t.Fatal("no tree root")
	}
	dict, _ := pdf.GetDict(doc, owner)
	if dict["PageLabels"] != ref {
		t.Errorf("owner not updated: %v", dict["PageLabels"])
	}
	ref2, err := Normalize(doc, owner, "PageLabels")
	if err != nil || ref2 != ref {
		t.Errorf("second call: %s, %v", ref2, err)
	}

	tree, err := Open(doc, ref, intCodec)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Lookup(0); err != nil {
		t.Error(err)
	}

	if ref, err := Normalize(doc, owner, "Missing"); ref != 0 || err != nil {
		t.Errorf("missing entry: %s, %v", ref, err)
	}
	doc.SetDictEntry(owner, "Bad", pdf.Integer(1))
	if _, err := Normalize(doc, owner, "Bad"); !pdf.IsMalformed(err) {
		t.Errorf("integer root: %v", err)
	}
}

func TestSaveReload(t *testing.T) {
	doc := newDoc(t)
	tree := newTree(t, doc, 4)
	for key := range pdf.Integer(50) {
		tree.Insert(key*3, pdf.String("x"))
	}
	cat, err := doc.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Set("PageLabels", tree.Ref()); err != nil {
		t.Fatal(err)
	}
	if err := doc.SaveIncremental(); err != nil {
		t.Fatal(err)
	}

	// a second revision with a few changes
	for key := range pdf.Integer(10) {
		tree.Remove(key * 3)
	}
	if err := doc.SaveIncremental(); err != nil {
		t.Fatal(err)
	}

	buf := &bytes.Buffer{}
	doc.WriteTo(buf)
	doc2, err := pdf.Load(buf.Bytes(), nil)
	if err != nil {
		t.Fatal(err)
	}
	tree2, err := Open(doc2, tree.Ref(), intCodec)
	if err != nil {
		t.Fatal(err)
	}
	if err := tree2.Check(); err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(keys(tree), keys(tree2)); d != "" {
		t.Errorf("(-want +got):\n%s", d)
	}
}
