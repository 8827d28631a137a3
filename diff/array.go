// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package diff

import (
	"strconv"

	"github.com/Ibetz1/json-flow/node"
)

func indexKey(i int) string { return strconv.Itoa(i) }

// arrayDiff implements positional comparison: shared indices are
// compared pairwise (type mismatch, compound recursion, or
// primitive equality), and the longer side's tail beyond the shorter
// side's length is emitted one-sided (Added if A is shorter, Removed
// otherwise). Each emitted node owns a synthesized decimal-index key.
func (t *DiffTree) arrayDiff(a, b node.Node) (head, tail int, err error) {
	ae, be := a.Elements(), b.Elements()
	n := len(ae)
	if len(be) < n {
		n = len(be)
	}
	head, tail = NoIndex, NoIndex

	for i := 0; i < n; i++ {
		idx := t.appendNode(newPairNode(OwnedKey(indexKey(i)), true, ae[i], true, be[i]))
		head, tail = t.link(head, tail, idx)
	}

	switch {
	case len(ae) > len(be):
		for i := n; i < len(ae); i++ {
			idx := t.appendNode(newPairNode(OwnedKey(indexKey(i)), true, ae[i], false, node.Node{}))
			head, tail = t.link(head, tail, idx)
		}
	case len(be) > len(ae):
		for i := n; i < len(be); i++ {
			idx := t.appendNode(newPairNode(OwnedKey(indexKey(i)), false, node.Node{}, true, be[i]))
			head, tail = t.link(head, tail, idx)
		}
	}

	if err := t.nodeLayerPass(head); err != nil {
		return head, tail, err
	}
	return head, tail, nil
}
