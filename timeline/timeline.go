// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package timeline chains the diff trees of successive document
// snapshots into an ordered history, and projects that history onto a
// sub-tree at a given key path.
//
// Timeline, like diff.DiffTree, is arena-backed: a []TimelineVersion
// addressed by int index with explicit Prev/Next links (-1 = none),
// rather than a pointer-chased doubly linked list. A path-filtered
// timeline (FilterPath) borrows its DiffTree and Root from the
// original versions it keeps — it never copies diff nodes, only
// records which arena index each kept version's traversal should
// start from.
package timeline

import (
	"fmt"

	"github.com/Ibetz1/json-flow/diff"
	"github.com/Ibetz1/json-flow/node"
)

// NoIndex marks the absence of a Prev/Next link.
const NoIndex = -1

// TimelineVersion is one entry in a Timeline: a monotonically
// increasing Version number, the DiffTree comparing this snapshot to
// its predecessor, and the index within that tree this version's
// traversal starts from (Tree.Root for an unfiltered version, a
// borrowed sub-tree index for a path-filtered one).
type TimelineVersion struct {
	Version int
	Tree    *diff.DiffTree
	Root    int
	Prev    int
	Next    int
}

// Timeline is the doubly-linked (by index) list of versions.
type Timeline struct {
	Versions []TimelineVersion
	Head     int
	Tail     int
}

// New returns an empty Timeline.
func New() *Timeline {
	return &Timeline{Head: NoIndex, Tail: NoIndex}
}

func (t *Timeline) append(version int, tree *diff.DiffTree, root int) int {
	tv := TimelineVersion{Version: version, Tree: tree, Root: root, Prev: t.Tail, Next: NoIndex}
	t.Versions = append(t.Versions, tv)
	idx := len(t.Versions) - 1
	if t.Tail != NoIndex {
		t.Versions[t.Tail].Next = idx
	}
	t.Tail = idx
	if t.Head == NoIndex {
		t.Head = idx
	}
	return idx
}

// BuildFromSnapshots parses each snapshot file in order and chains
// them into a Timeline: version 0 compares the empty object against
// the first snapshot (everything Added relative to void), and version
// i>0 compares snapshot i-1 to snapshot i. If any snapshot fails to
// parse, the whole build fails and no partial timeline is returned.
//
// Each comparison goes through diffVersion, which switches from Diff's
// quadratic object scan to diff.ObjectDiffWithIndex once either side's
// top-level key count exceeds diff.IndexThreshold — the documents this
// build watches are plain top-level objects, so that's where a wide
// document's key count actually lands.
func BuildFromSnapshots(paths []string, opts ...node.Option) (*Timeline, error) {
	t := New()
	prev := node.Object(nil)
	for i, path := range paths {
		n, err := node.Parse(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("timeline: build from snapshots: version %d: %w", i, err)
		}
		tree, err := diffVersion(prev, n)
		if err != nil {
			return nil, fmt.Errorf("timeline: build from snapshots: version %d: %w", i, err)
		}
		t.append(i, tree, tree.Root)
		prev = n
	}
	return t, nil
}

// diffVersion compares one snapshot transition, dispatching to the
// hash-indexed object diff when it applies. ObjectDiffWithIndex only
// covers whole-object comparisons, so anything else (either side not
// an Object, e.g. the version-0 transition from an empty placeholder
// whose counterpart isn't an object) falls back to Diff.
func diffVersion(prev, n node.Node) (*diff.DiffTree, error) {
	if prev.Kind() == node.KindObject && n.Kind() == node.KindObject &&
		(prev.Len() > diff.IndexThreshold || n.Len() > diff.IndexThreshold) {
		return diff.ObjectDiffWithIndex(prev, n)
	}
	return diff.Diff(&prev, &n)
}

// Attach splices two timelines: left's rear links to right's front,
// with symmetric Prev/Next. Either side may be empty, in which case
// the other is returned unchanged.
func Attach(left, right *Timeline) *Timeline {
	if left == nil || len(left.Versions) == 0 {
		return right
	}
	if right == nil || len(right.Versions) == 0 {
		return left
	}

	offset := len(left.Versions)
	combined := make([]TimelineVersion, 0, len(left.Versions)+len(right.Versions))
	combined = append(combined, left.Versions...)
	for _, v := range right.Versions {
		if v.Prev != NoIndex {
			v.Prev += offset
		}
		if v.Next != NoIndex {
			v.Next += offset
		}
		combined = append(combined, v)
	}

	joined := &Timeline{Versions: combined, Head: left.Head, Tail: right.Tail + offset}
	joined.Versions[left.Tail].Next = offset + right.Head
	joined.Versions[offset+right.Head].Prev = left.Tail
	return joined
}

// IterVersions returns the indices of every version in forward order
// by walking Next links from Head to NoIndex.
func IterVersions(t *Timeline) []int {
	var out []int
	for idx := t.Head; idx != NoIndex; idx = t.Versions[idx].Next {
		out = append(out, idx)
	}
	return out
}

// VersionContentHash returns the BLAKE3-256 content hash of the
// document this version represents (its diff tree's node_b at Root),
// letting a caller cheaply recognize that a rebuilt timeline's head is
// identical to the previous one without a full equal() walk.
func VersionContentHash(v TimelineVersion) ([32]byte, error) {
	root := v.Tree.Nodes[v.Root]
	if !root.HasB {
		return [32]byte{}, fmt.Errorf("timeline: version %d has no node_b to hash", v.Version)
	}
	return node.ContentHash(root.B)
}
