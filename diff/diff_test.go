// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"errors"
	"testing"

	"github.com/Ibetz1/json-flow/node"
)

func obj(entries ...node.Entry) node.Node { return node.Object(entries) }
func entry(k string, v node.Node) node.Entry { return node.Entry{Key: k, Value: v} }
func num(n float64) node.Node { return node.Number(n) }
func str(s string) node.Node { return node.String(s) }
func arr(elems ...node.Node) node.Node { return node.Array(elems) }

// allStale reports whether every DiffNode reachable from head (via
// Next and Child) is Stale.
func allStale(t *DiffTree, head int) bool {
	for idx := head; idx != NoIndex; idx = t.Nodes[idx].Next {
		if t.Nodes[idx].Kind != Stale {
			return false
		}
		if t.Nodes[idx].Child != NoIndex && !allStale(t, t.Nodes[idx].Child) {
			return false
		}
	}
	return true
}

func TestDiffSelfIsAllStale(t *testing.T) {
	n := obj(
		entry("a", num(1)),
		entry("b", arr(num(1), num(2), obj(entry("k", str("v"))))),
	)
	tree, err := Diff(&n, &n)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Stale {
		t.Fatalf("root kind = %v, want Stale", tree.Nodes[tree.Root].Kind)
	}
	if !allStale(tree, tree.Root) && tree.Nodes[tree.Root].Child != NoIndex {
		if !allStale(tree, tree.Nodes[tree.Root].Child) {
			t.Errorf("diff(T, T) produced a non-Stale descendant")
		}
	}
}

func TestDiffRootStaleIffEqual(t *testing.T) {
	a := obj(entry("x", num(1)))
	b := obj(entry("x", num(1)))
	c := obj(entry("x", num(2)))

	treeEq, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if treeEq.Nodes[treeEq.Root].Kind != Stale {
		t.Errorf("equal docs: root kind = %v, want Stale", treeEq.Nodes[treeEq.Root].Kind)
	}

	treeNe, err := Diff(&a, &c)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if treeNe.Nodes[treeNe.Root].Kind == Stale {
		t.Errorf("unequal docs: root kind = Stale, want non-Stale")
	}
}

func TestRollUpInvariant(t *testing.T) {
	a := obj(entry("o", obj(entry("k", num(1)))))
	b := obj(entry("o", obj(entry("k", num(2)))))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	for _, dn := range tree.Nodes {
		if dn.Child == NoIndex {
			continue
		}
		childrenAllStale := allStale(tree, dn.Child)
		if (dn.Kind == Stale) != childrenAllStale {
			t.Errorf("roll-up violated: kind=%v but children-all-stale=%v", dn.Kind, childrenAllStale)
		}
	}
}

func TestObjectDiffKeyUniqueness(t *testing.T) {
	a := obj(entry("a", num(1)), entry("b", num(2)))
	b := obj(entry("b", num(3)), entry("c", num(4)))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	seen := map[string]bool{}
	for idx := tree.Nodes[tree.Root].Child; idx != NoIndex; idx = tree.Nodes[idx].Next {
		k := tree.Nodes[idx].Key.String()
		if seen[k] {
			t.Errorf("duplicate key %q in object_diff output", k)
		}
		seen[k] = true
	}
}

func TestArraySelfDiffAllStale(t *testing.T) {
	a := arr(num(1), num(2), num(3))
	tree, err := Diff(&a, &a)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !allStale(tree, tree.Root) {
		t.Errorf("diff(A, A) not all-Stale")
	}
}

func TestArrayGrowth(t *testing.T) {
	a := arr(num(1), num(2))
	b := arr(num(1), num(2), num(3))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	idxs := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	if len(idxs) != 3 {
		t.Fatalf("got %d children, want 3", len(idxs))
	}
	wantKinds := []DiffKind{Stale, Stale, Added}
	for i, idx := range idxs {
		if tree.Nodes[idx].Kind != wantKinds[i] {
			t.Errorf("child %d kind = %v, want %v", i, tree.Nodes[idx].Kind, wantKinds[i])
		}
		if tree.Nodes[idx].Key.String() != indexKey(i) {
			t.Errorf("child %d key = %q, want %q", i, tree.Nodes[idx].Key.String(), indexKey(i))
		}
	}
}

func TestArrayAppendSingleElement(t *testing.T) {
	a := arr(num(1), num(2), num(3))
	b := arr(num(1), num(2), num(3), num(4))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	idxs := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	if len(idxs) != 4 {
		t.Fatalf("got %d children, want 4", len(idxs))
	}
	for i := 0; i < 3; i++ {
		if tree.Nodes[idxs[i]].Kind != Stale {
			t.Errorf("child %d kind = %v, want Stale", i, tree.Nodes[idxs[i]].Kind)
		}
	}
	if tree.Nodes[idxs[3]].Kind != Added {
		t.Errorf("last child kind = %v, want Added", tree.Nodes[idxs[3]].Kind)
	}
}

// --- Concrete scenarios ---

func TestScenarioPrimitiveChange(t *testing.T) {
	a := obj(entry("x", num(1)))
	b := obj(entry("x", num(2)))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Changed {
		t.Fatalf("root kind = %v, want Changed", tree.Nodes[tree.Root].Kind)
	}
	children := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	if len(children) != 1 {
		t.Fatalf("got %d children, want 1", len(children))
	}
	dn := tree.Nodes[children[0]]
	if dn.Key.String() != "x" || dn.Kind != Changed || dn.A.Number() != 1 || dn.B.Number() != 2 {
		t.Errorf("child = %+v, want key=x kind=Changed a=1 b=2", dn)
	}
}

func TestScenarioTypeChange(t *testing.T) {
	a := obj(entry("x", num(1)))
	b := obj(entry("x", str("1")))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Changed {
		t.Fatalf("root kind = %v, want Changed", tree.Nodes[tree.Root].Kind)
	}
	children := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	if len(children) != 1 {
		t.Fatalf("got %d children, want 1", len(children))
	}
	dn := tree.Nodes[children[0]]
	if dn.Key.String() != "x" || dn.Kind != Changed {
		t.Errorf("child = %+v, want key=x kind=Changed", dn)
	}
	if dn.Child != NoIndex {
		t.Errorf("type-change child has grandchildren, want none")
	}
}

func TestScenarioAddAndRemove(t *testing.T) {
	a := obj(entry("a", num(1)), entry("b", num(2)))
	b := obj(entry("b", num(2)), entry("c", num(3)))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Changed {
		t.Fatalf("root kind = %v, want Changed", tree.Nodes[tree.Root].Kind)
	}
	children := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	if len(children) != 3 {
		t.Fatalf("got %d children, want 3", len(children))
	}
	want := map[string]DiffKind{"a": Removed, "b": Stale, "c": Added}
	for _, idx := range children {
		dn := tree.Nodes[idx]
		wantKind, ok := want[dn.Key.String()]
		if !ok {
			t.Errorf("unexpected key %q", dn.Key.String())
			continue
		}
		if dn.Kind != wantKind {
			t.Errorf("key %q kind = %v, want %v", dn.Key.String(), dn.Kind, wantKind)
		}
	}
}

func TestScenarioArrayGrow(t *testing.T) {
	a := arr(num(1), num(2))
	b := arr(num(1), num(2), num(3))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Changed {
		t.Fatalf("root kind = %v, want Changed", tree.Nodes[tree.Root].Kind)
	}
	idxs := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	want := []DiffKind{Stale, Stale, Added}
	for i, idx := range idxs {
		if tree.Nodes[idx].Key.String() != indexKey(i) {
			t.Errorf("child %d key = %q, want %q", i, tree.Nodes[idx].Key.String(), indexKey(i))
		}
		if tree.Nodes[idx].Kind != want[i] {
			t.Errorf("child %d kind = %v, want %v", i, tree.Nodes[idx].Kind, want[i])
		}
	}
}

func TestScenarioArrayPositionalChange(t *testing.T) {
	a := arr(num(1), num(2), num(3))
	b := arr(num(1), num(9), num(3))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	idxs := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	want := []DiffKind{Stale, Changed, Stale}
	for i, idx := range idxs {
		if tree.Nodes[idx].Kind != want[i] {
			t.Errorf("child %d kind = %v, want %v", i, tree.Nodes[idx].Kind, want[i])
		}
	}
}

func TestScenarioNestedRollUp(t *testing.T) {
	a := obj(entry("o", obj(entry("k", num(1)))))
	b := obj(entry("o", obj(entry("k", num(1)))))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Stale {
		t.Fatalf("root kind = %v, want Stale", tree.Nodes[tree.Root].Kind)
	}

	c := obj(entry("o", obj(entry("k", num(2)))))
	tree2, err := Diff(&a, &c)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree2.Nodes[tree2.Root].Kind != Changed {
		t.Fatalf("root kind = %v, want Changed", tree2.Nodes[tree2.Root].Kind)
	}
	oIdx := tree2.Nodes[tree2.Root].Child
	if tree2.Nodes[oIdx].Kind != Changed || tree2.Nodes[oIdx].Key.String() != "o" {
		t.Errorf("\"o\" node = %+v, want key=o kind=Changed", tree2.Nodes[oIdx])
	}
	kIdx := tree2.Nodes[oIdx].Child
	if tree2.Nodes[kIdx].Kind != Changed || tree2.Nodes[kIdx].Key.String() != "k" {
		t.Errorf("\"k\" node = %+v, want key=k kind=Changed", tree2.Nodes[kIdx])
	}
}

func TestOneSidedRemovalRecursesDescendants(t *testing.T) {
	a := obj(entry("a", obj(entry("x", num(1)), entry("y", arr(num(1), num(2))))))
	empty := obj()
	tree, err := Diff(&a, &empty)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if tree.Nodes[tree.Root].Kind != Changed {
		t.Fatalf("root kind = %v, want Changed", tree.Nodes[tree.Root].Kind)
	}
	aIdx := tree.Nodes[tree.Root].Child
	if tree.Nodes[aIdx].Kind != Removed {
		t.Fatalf("\"a\" kind = %v, want Removed", tree.Nodes[aIdx].Kind)
	}
	for _, idx := range IterSiblings(tree, tree.Nodes[aIdx].Child) {
		if tree.Nodes[idx].Kind != Removed {
			t.Errorf("descendant %q kind = %v, want Removed", tree.Nodes[idx].Key.String(), tree.Nodes[idx].Kind)
		}
	}
}

func TestRollUpKindMostFrequentNonStale(t *testing.T) {
	a := arr(num(1), num(2), num(3), num(4))
	b := arr(num(9), num(9), str("x"), num(4))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	idxs := IterSiblings(tree, tree.Nodes[tree.Root].Child)
	got := RollUpKind(tree, idxs...)
	if got != Changed {
		t.Errorf("RollUpKind = %v, want Changed", got)
	}
}

func TestFilterByKind(t *testing.T) {
	a := obj(entry("a", num(1)), entry("b", num(2)))
	b := obj(entry("b", num(2)), entry("c", num(3)))
	tree, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	head := tree.Nodes[tree.Root].Child
	added := FilterByKind(tree, head, Added)
	if len(added) != 1 || tree.Nodes[added[0]].Key.String() != "c" {
		t.Errorf("FilterByKind(Added) = %v, want single node keyed \"c\"", added)
	}
	removed := FilterByKind(tree, head, Removed)
	if len(removed) != 1 || tree.Nodes[removed[0]].Key.String() != "a" {
		t.Errorf("FilterByKind(Removed) = %v, want single node keyed \"a\"", removed)
	}
}

func TestObjectDiffWithIndexMatchesDefault(t *testing.T) {
	a := obj(entry("a", num(1)), entry("b", num(2)), entry("c", num(3)))
	b := obj(entry("b", num(20)), entry("c", num(3)), entry("d", num(4)))

	def, err := Diff(&a, &b)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	indexed, err := ObjectDiffWithIndex(a, b)
	if err != nil {
		t.Fatalf("ObjectDiffWithIndex: %v", err)
	}

	if def.Nodes[def.Root].Kind != indexed.Nodes[indexed.Root].Kind {
		t.Fatalf("root kind mismatch: default=%v indexed=%v", def.Nodes[def.Root].Kind, indexed.Nodes[indexed.Root].Kind)
	}
	defChildren := IterSiblings(def, def.Nodes[def.Root].Child)
	idxChildren := IterSiblings(indexed, indexed.Nodes[indexed.Root].Child)
	if len(defChildren) != len(idxChildren) {
		t.Fatalf("child count mismatch: default=%d indexed=%d", len(defChildren), len(idxChildren))
	}
	for i := range defChildren {
		dn, in := def.Nodes[defChildren[i]], indexed.Nodes[idxChildren[i]]
		if dn.Key.String() != in.Key.String() || dn.Kind != in.Kind {
			t.Errorf("child %d mismatch: default=%+v indexed=%+v", i, dn, in)
		}
	}
}

func TestObjectDiffWithIndexRejectsNonObjects(t *testing.T) {
	_, err := ObjectDiffWithIndex(num(1), obj())
	if err == nil {
		t.Fatalf("expected error comparing a non-object")
	}
}

func TestInvariantViolationIsDistinguishable(t *testing.T) {
	if !errors.Is(ErrInvariantViolation, ErrInvariantViolation) {
		t.Fatalf("ErrInvariantViolation should equal itself under errors.Is")
	}
}
