// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package fstree

import (
	"sync"
	"time"
)

// Tracker is the per-tick state a Watcher holds for one OriginatingPath:
// the last Snapshot it captured, kept around so the next Tick can tell
// what changed instead of treating every file as new every time.
type Tracker struct {
	root string
	opts []Option

	mu           sync.RWMutex
	lastSnapshot *Snapshot
	lastMtime    map[string]time.Time // path -> mtime at last snapshot
}

// NewTracker builds a Tracker rooted at a project's OriginatingPath.
// A Watcher constructs one the first time it sees a project and keeps
// it for the project's lifetime, calling Snapshot once per Tick.
func NewTracker(root string, opts ...Option) *Tracker {
	return &Tracker{
		root:      root,
		opts:      opts,
		lastMtime: make(map[string]time.Time),
	}
}

// Snapshot re-captures root, records it as the Tracker's last capture,
// and reports whether its root hash differs from the previous one.
func (t *Tracker) Snapshot() (*Snapshot, bool, error) {
	snap, err := Capture(t.root, t.opts...)
	if err != nil {
		return nil, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	changed := t.lastSnapshot == nil || t.lastSnapshot.RootHash != snap.RootHash

	t.lastSnapshot = snap
	t.lastMtime = make(map[string]time.Time)

	return snap, changed, nil
}

// LastSnapshot returns the Tracker's most recent capture, or nil before
// the first Tick has run.
func (t *Tracker) LastSnapshot() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSnapshot
}

// SnapshotIfChanged captures root and returns (nil, false, nil) without
// doing any further work when the root hash hasn't moved since the
// last capture — the fast path for a Tick where nothing under
// OriginatingPath was touched.
func (t *Tracker) SnapshotIfChanged() (*Snapshot, bool, error) {
	snap, changed, err := t.Snapshot()
	if err != nil {
		return nil, false, err
	}

	if !changed {
		return nil, false, nil
	}

	return snap, true, nil
}

// DiffFromLast compares current against whatever the Tracker captured
// last. Paths in the result are relative to the Tracker's root.
func (t *Tracker) DiffFromLast(current *Snapshot) (*SnapshotDiff, error) {
	t.mu.RLock()
	last := t.lastSnapshot
	t.mu.RUnlock()

	return current.Diff(last)
}
