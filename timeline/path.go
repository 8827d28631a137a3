// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package timeline

import "github.com/Ibetz1/json-flow/diff"

// descend walks tree from the whole-document root along path,
// scanning each level's sibling list for a DiffNode whose key equals
// the current path component. It returns the index of the final
// matched node, or ok=false if any prefix key is missing.
func descend(tree *diff.DiffTree, path []string) (idx int, ok bool) {
	cur, hasChild := diff.Child(tree, tree.Root)
	for i, key := range path {
		if !hasChild {
			return NoIndex, false
		}
		match := NoIndex
		for _, sib := range diff.IterSiblings(tree, cur) {
			if tree.Nodes[sib].Key.String() == key {
				match = sib
				break
			}
		}
		if match == NoIndex {
			return NoIndex, false
		}
		if i == len(path)-1 {
			return match, true
		}
		cur, hasChild = diff.Child(tree, match)
	}
	return NoIndex, false
}

// FilterPath projects t onto key path (n >= 1 components), keeping
// exactly those versions for which the sub-tree at path exists and is
// updated (non-Stale somewhere in its own subtree — equivalently, its
// own Kind is non-Stale, since roll-up already folds descendant state
// upward). Kept versions are wrapped shallow: same underlying
// *diff.DiffTree, Root repointed at the matched sub-node, never
// copied. Filtered versions get a fresh 0-based order while each one's
// original Version field is preserved.
func FilterPath(t *Timeline, path []string) *Timeline {
	out := New()
	if len(path) == 0 {
		return out
	}
	for idx := t.Head; idx != NoIndex; idx = t.Versions[idx].Next {
		v := t.Versions[idx]
		match, ok := descend(v.Tree, path)
		if !ok {
			continue
		}
		if v.Tree.Nodes[match].Kind == diff.Stale {
			continue
		}
		out.append(v.Version, v.Tree, match)
	}
	return out
}
