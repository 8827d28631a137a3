// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package diff produces structural diff trees between two node.Node
// document values.
//
// A DiffTree is an arena of DiffNode values (a []DiffNode) addressed by
// int index rather than pointer: child and next links are indices into
// the same slice, -1 meaning "none". This sidesteps the owned/borrowed
// pointer bookkeeping a pointer-linked list would need — a shallow view
// is never a copy of the nodes themselves: the kind filter is a second
// []int of indices over the same backing arena, and the path filter
// points a timeline version's Root at an index inside it.
//
// # Usage
//
//	tree, err := diff.Diff(&before, &after)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tree.Nodes[tree.Root].Kind) // Stale, Added, Removed, or Changed
package diff

import (
	"errors"
	"fmt"

	"github.com/Ibetz1/json-flow/node"
)

// NoIndex marks the absence of a child or sibling link in a DiffTree's arena.
const NoIndex = -1

// DiffKind classifies one DiffNode's relationship between its node_a and node_b.
type DiffKind uint8

const (
	// Stale means both sides are present and structurally equal, or a
	// compound node whose every descendant is Stale.
	Stale DiffKind = iota

	// Added means only the right-hand side (node_b) is present.
	Added

	// Removed means only the left-hand side (node_a) is present.
	Removed

	// Changed means both sides are present but not structurally equal,
	// or a compound node with at least one non-Stale descendant.
	Changed
)

// String returns the kind's name, e.g. "Changed".
func (k DiffKind) String() string {
	switch k {
	case Stale:
		return "Stale"
	case Added:
		return "Added"
	case Removed:
		return "Removed"
	case Changed:
		return "Changed"
	default:
		return fmt.Sprintf("DiffKind(%d)", uint8(k))
	}
}

// ErrInvariantViolation is returned by object diffing when the reverse
// pass's "key already present in A" branch fires. Under a correct
// forward pass this branch is unreachable (every A key was already
// considered); seeing it fire indicates a bug upstream in the entry
// lists, not a case to silently patch over.
var ErrInvariantViolation = errors.New("diff: invariant violation")

// Key is the tagged-union key a DiffNode is filed under: either
// borrowed (a pointer into a source document's own Entry.Key, no
// allocation) or owned (a decimal string synthesized for an array
// index). The zero Key is the absent key used by synthetic/root nodes.
type Key struct {
	borrowed *string
	owned    string
	isOwned  bool
	present  bool
}

// NoKey is the absent key carried by a whole-document comparison's root DiffNode.
func NoKey() Key { return Key{} }

// BorrowedKey wraps a pointer into a source document's own storage —
// used for object entry keys, which live on in the Node tree the
// DiffTree references.
func BorrowedKey(s *string) Key { return Key{borrowed: s, present: true} }

// OwnedKey wraps a string synthesized by the diff engine itself — used
// for array index keys (the decimal form of the position).
func OwnedKey(s string) Key { return Key{owned: s, isOwned: true, present: true} }

// Present reports whether this Key carries a value at all.
func (k Key) Present() bool { return k.present }

// IsOwned reports whether this Key's text was synthesized by the diff
// engine (true) or borrowed from a source document (false).
func (k Key) IsOwned() bool { return k.isOwned }

// String returns the key's text, or "" if Present() is false.
func (k Key) String() string {
	if !k.present {
		return ""
	}
	if k.isOwned {
		return k.owned
	}
	if k.borrowed != nil {
		return *k.borrowed
	}
	return ""
}

// DiffNode is one entry in a structural comparison at some level: a
// Kind, an optional Key, optional node_a/node_b values, a Child link
// (descend into structure) and a Next link (sibling at the same
// level). Child is non-NoIndex only for a non-empty compound: one whose
// A and B share a compound kind, or a one-sided compound whose
// descendants are all listed as Added or Removed.
type DiffNode struct {
	Kind  DiffKind
	Key   Key
	HasA  bool
	A     node.Node
	HasB  bool
	B     node.Node
	Child int
	Next  int
}

// DiffTree is the arena produced by Diff: Nodes[Root] is the
// whole-comparison root, and Child/Next indices elsewhere in Nodes
// describe the rest of the tree.
type DiffTree struct {
	Nodes []DiffNode
	Root  int
}

func newPairNode(key Key, hasA bool, a node.Node, hasB bool, b node.Node) DiffNode {
	return DiffNode{Key: key, HasA: hasA, A: a, HasB: hasB, B: b, Child: NoIndex, Next: NoIndex}
}

func (t *DiffTree) appendNode(n DiffNode) int {
	t.Nodes = append(t.Nodes, n)
	return len(t.Nodes) - 1
}

func (t *DiffTree) link(head, tail, idx int) (int, int) {
	if head == NoIndex {
		return idx, idx
	}
	t.Nodes[tail].Next = idx
	return head, idx
}

func isCompound(n node.Node) bool {
	return n.Kind() == node.KindObject || n.Kind() == node.KindArray
}

// Diff produces a DiffTree comparing a and b, either of which may be
// nil to represent an absent side: same-kind compounds descend and
// roll up, same-kind primitives compare by value, different kinds are
// Changed, and a wholly one-sided comparison marks every descendant
// Added or Removed.
func Diff(a, b *node.Node) (*DiffTree, error) {
	t := &DiffTree{}
	var hasA, hasB bool
	var av, bv node.Node
	if a != nil {
		hasA, av = true, *a
	}
	if b != nil {
		hasB, bv = true, *b
	}
	root := t.appendNode(DiffNode{Key: NoKey(), HasA: hasA, A: av, HasB: hasB, B: bv, Child: NoIndex, Next: NoIndex})
	if err := t.resolvePair(root); err != nil {
		return nil, err
	}
	t.Root = root
	return t, nil
}

// resolvePair resolves the Kind (and, for compounds, the Child list)
// of the DiffNode at idx from its already-populated A/B/HasA/HasB
// fields. It never holds a pointer into t.Nodes across a nested
// diff call, since those calls append to the same slice and may
// reallocate its backing array.
func (t *DiffTree) resolvePair(idx int) error {
	hasA, hasB := t.Nodes[idx].HasA, t.Nodes[idx].HasB
	a, b := t.Nodes[idx].A, t.Nodes[idx].B

	switch {
	case hasA && hasB:
		if a.Kind() != b.Kind() {
			t.Nodes[idx].Kind = Changed
			t.Nodes[idx].Child = NoIndex
			return nil
		}
		switch a.Kind() {
		case node.KindObject:
			head, _, err := t.objectDiff(a, b)
			if err != nil {
				return err
			}
			t.Nodes[idx].Child = head
			t.Nodes[idx].Kind = t.rollUp(head)
		case node.KindArray:
			head, _, err := t.arrayDiff(a, b)
			if err != nil {
				return err
			}
			t.Nodes[idx].Child = head
			t.Nodes[idx].Kind = t.rollUp(head)
		default:
			t.Nodes[idx].Child = NoIndex
			if node.Equal(a, b) {
				t.Nodes[idx].Kind = Stale
			} else {
				t.Nodes[idx].Kind = Changed
			}
		}
	case hasA:
		head := NoIndex
		if isCompound(a) {
			head, _ = t.oneSidedChild(a, Removed)
		}
		t.Nodes[idx].Kind = Removed
		t.Nodes[idx].Child = head
	case hasB:
		head := NoIndex
		if isCompound(b) {
			head, _ = t.oneSidedChild(b, Added)
		}
		t.Nodes[idx].Kind = Added
		t.Nodes[idx].Child = head
	default:
		// Neither side present: only reachable as the root of
		// Diff(nil, nil), which compares nothing and is Stale.
		t.Nodes[idx].Kind = Stale
		t.Nodes[idx].Child = NoIndex
	}
	return nil
}

// nodeLayerPass is the recursion kernel: given a sibling list already
// populated with (a, b) pairs, it resolves each node's Kind and Child
// in place.
func (t *DiffTree) nodeLayerPass(head int) error {
	for idx := head; idx != NoIndex; idx = t.Nodes[idx].Next {
		if err := t.resolvePair(idx); err != nil {
			return err
		}
	}
	return nil
}

// rollUp implements the any_changed predicate: a parent is Changed
// exactly when some sibling in the list is non-Stale. Each
// sibling's own Kind already reflects its own subtree's roll-up (set
// when it was resolved), so this need not recurse into Child itself.
func (t *DiffTree) rollUp(head int) DiffKind {
	for idx := head; idx != NoIndex; idx = t.Nodes[idx].Next {
		if t.Nodes[idx].Kind != Stale {
			return Changed
		}
	}
	return Stale
}

// oneSidedChild builds a child list covering every entry/element of a
// wholly one-sided compound node n, with every DiffNode (recursively,
// for nested compounds) forced to kind: every descendant is marked
// Added or Removed.
func (t *DiffTree) oneSidedChild(n node.Node, kind DiffKind) (head, tail int) {
	head, tail = NoIndex, NoIndex
	switch n.Kind() {
	case node.KindObject:
		entries := n.Entries()
		for i := range entries {
			var dn DiffNode
			if kind == Removed {
				dn = newPairNode(BorrowedKey(&entries[i].Key), true, entries[i].Value, false, node.Node{})
			} else {
				dn = newPairNode(BorrowedKey(&entries[i].Key), false, node.Node{}, true, entries[i].Value)
			}
			idx := t.appendNode(dn)
			t.Nodes[idx].Kind = kind
			if isCompound(entries[i].Value) {
				childHead, _ := t.oneSidedChild(entries[i].Value, kind)
				t.Nodes[idx].Child = childHead
			}
			head, tail = t.link(head, tail, idx)
		}
	case node.KindArray:
		elements := n.Elements()
		for i := range elements {
			key := OwnedKey(indexKey(i))
			var dn DiffNode
			if kind == Removed {
				dn = newPairNode(key, true, elements[i], false, node.Node{})
			} else {
				dn = newPairNode(key, false, node.Node{}, true, elements[i])
			}
			idx := t.appendNode(dn)
			t.Nodes[idx].Kind = kind
			if isCompound(elements[i]) {
				childHead, _ := t.oneSidedChild(elements[i], kind)
				t.Nodes[idx].Child = childHead
			}
			head, tail = t.link(head, tail, idx)
		}
	}
	return head, tail
}
