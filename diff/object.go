// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"fmt"

	"github.com/Ibetz1/json-flow/node"
)

// IndexThreshold is the top-level key count above which
// timeline.BuildFromSnapshots switches a version comparison from
// objectDiff's quadratic scan to ObjectDiffWithIndex. Diff itself stays
// quadratic unconditionally — it matches the reference object_diff
// semantics exactly, so fixtures describing that behavior hold
// regardless of which path a caller takes.
const IndexThreshold = 256

func findEntry(entries []node.Entry, key string) (int, node.Node, bool) {
	for i := range entries {
		if entries[i].Key == key {
			return i, entries[i].Value, true
		}
	}
	return 0, node.Node{}, false
}

func (t *DiffTree) listContainsKey(head int, key string) bool {
	for idx := head; idx != NoIndex; idx = t.Nodes[idx].Next {
		if t.Nodes[idx].Key.String() == key {
			return true
		}
	}
	return false
}

// objectDiff implements a two-pass unordered-keyed comparison: a
// forward pass over A's entries (each either paired with a B entry
// of the same key, or left one-sided), then a reverse pass over B's
// entries contributing only the keys A didn't already cover. The
// "found in A" branch of the reverse pass is unreachable under a
// correct forward pass; seeing it fire is reported as
// ErrInvariantViolation rather than silently absorbed.
func (t *DiffTree) objectDiff(a, b node.Node) (head, tail int, err error) {
	aEntries, bEntries := a.Entries(), b.Entries()
	head, tail = NoIndex, NoIndex

	for i := range aEntries {
		key := aEntries[i].Key
		if j, bv, found := findEntry(bEntries, key); found {
			idx := t.appendNode(newPairNode(BorrowedKey(&bEntries[j].Key), true, aEntries[i].Value, true, bv))
			head, tail = t.link(head, tail, idx)
		} else {
			idx := t.appendNode(newPairNode(BorrowedKey(&aEntries[i].Key), true, aEntries[i].Value, false, node.Node{}))
			head, tail = t.link(head, tail, idx)
		}
	}

	for j := range bEntries {
		key := bEntries[j].Key
		if t.listContainsKey(head, key) {
			continue
		}
		if _, _, found := findEntry(aEntries, key); found {
			return head, tail, fmt.Errorf("object_diff: %w: key %q present in A but absent from the forward pass", ErrInvariantViolation, key)
		}
		idx := t.appendNode(newPairNode(BorrowedKey(&bEntries[j].Key), false, node.Node{}, true, bEntries[j].Value))
		head, tail = t.link(head, tail, idx)
	}

	if err := t.nodeLayerPass(head); err != nil {
		return head, tail, err
	}
	return head, tail, nil
}

// objectDiffIndexed is the hash-indexed alternate of objectDiff: it
// builds a map of B's keys once instead of linearly rescanning B (and
// the in-progress list) for every A key. Observable output is
// identical to objectDiff — same DiffNodes, same order (A's keys in
// A's order, then B-only keys in B's order) — only the asymptotic cost
// of finding matches differs.
func (t *DiffTree) objectDiffIndexed(a, b node.Node) (head, tail int, err error) {
	aEntries, bEntries := a.Entries(), b.Entries()
	bIndex := make(map[string]int, len(bEntries))
	for j := range bEntries {
		bIndex[bEntries[j].Key] = j
	}
	seen := make(map[string]struct{}, len(aEntries))
	head, tail = NoIndex, NoIndex

	for i := range aEntries {
		key := aEntries[i].Key
		seen[key] = struct{}{}
		if j, ok := bIndex[key]; ok {
			idx := t.appendNode(newPairNode(BorrowedKey(&bEntries[j].Key), true, aEntries[i].Value, true, bEntries[j].Value))
			head, tail = t.link(head, tail, idx)
		} else {
			idx := t.appendNode(newPairNode(BorrowedKey(&aEntries[i].Key), true, aEntries[i].Value, false, node.Node{}))
			head, tail = t.link(head, tail, idx)
		}
	}

	for j := range bEntries {
		key := bEntries[j].Key
		if _, dup := seen[key]; dup {
			continue
		}
		idx := t.appendNode(newPairNode(BorrowedKey(&bEntries[j].Key), false, node.Node{}, true, bEntries[j].Value))
		head, tail = t.link(head, tail, idx)
	}

	if err := t.nodeLayerPass(head); err != nil {
		return head, tail, err
	}
	return head, tail, nil
}

// ObjectDiffWithIndex is the opt-in, hash-indexed entry point for
// comparing two whole-document Objects: timeline.BuildFromSnapshots
// calls this instead of Diff when either side has more than
// IndexThreshold top-level keys. Both a and b must be Object nodes.
func ObjectDiffWithIndex(a, b node.Node) (*DiffTree, error) {
	if a.Kind() != node.KindObject || b.Kind() != node.KindObject {
		return nil, fmt.Errorf("diff: ObjectDiffWithIndex requires both sides to be objects, got %v/%v", a.Kind(), b.Kind())
	}
	t := &DiffTree{}
	root := t.appendNode(DiffNode{Key: NoKey(), HasA: true, A: a, HasB: true, B: b, Child: NoIndex, Next: NoIndex})
	head, _, err := t.objectDiffIndexed(a, b)
	if err != nil {
		return nil, err
	}
	t.Nodes[root].Child = head
	t.Nodes[root].Kind = t.rollUp(head)
	t.Root = root
	return t, nil
}
