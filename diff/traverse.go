// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package diff

// IterSiblings returns the indices of every DiffNode in the sibling
// list starting at head, following Next, in list order.
func IterSiblings(t *DiffTree, head int) []int {
	var out []int
	for idx := head; idx != NoIndex; idx = t.Nodes[idx].Next {
		out = append(out, idx)
	}
	return out
}

// Child returns the Child index of the DiffNode at idx, and whether
// one is present.
func Child(t *DiffTree, idx int) (int, bool) {
	c := t.Nodes[idx].Child
	return c, c != NoIndex
}

// rollUpOrder is the tie-break order RollUpKind uses among non-Stale kinds.
var rollUpOrder = []DiffKind{Stale, Added, Removed, Changed}

// RollUpKind maps a sibling list (given as explicit indices, typically
// from IterSiblings) to its dominant kind: the most-frequent non-Stale
// kind among them, or Stale if every one of them is Stale (or the list
// is empty). Ties are broken by enum order (Added before Removed
// before Changed).
func RollUpKind(t *DiffTree, idxs ...int) DiffKind {
	counts := make(map[DiffKind]int, len(rollUpOrder))
	allStale := true
	for _, idx := range idxs {
		k := t.Nodes[idx].Kind
		counts[k]++
		if k != Stale {
			allStale = false
		}
	}
	if allStale {
		return Stale
	}
	best := Stale
	bestCount := -1
	for _, k := range rollUpOrder {
		if k == Stale {
			continue
		}
		if counts[k] > bestCount {
			bestCount = counts[k]
			best = k
		}
	}
	return best
}

// FilterByKind returns a shallow index slice: the indices, in list
// order, of siblings in the list starting at head whose Kind is one of
// allowed. Children are left unfiltered — this is a read-side view,
// not a new tree.
func FilterByKind(t *DiffTree, head int, allowed ...DiffKind) []int {
	allowedSet := make(map[DiffKind]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}
	var out []int
	for idx := head; idx != NoIndex; idx = t.Nodes[idx].Next {
		if allowedSet[t.Nodes[idx].Kind] {
			out = append(out, idx)
		}
	}
	return out
}
