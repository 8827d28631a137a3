// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package fstree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// GetFile opens the document this hash refers to, reading straight
// from the FileRef.Path recorded at capture time rather than from any
// copy held in memory.
func (s *Snapshot) GetFile(hash [32]byte) (io.ReadCloser, error) {
	ref, ok := s.Files[hash]
	if !ok {
		return nil, fmt.Errorf("file not found: %x", hash[:8])
	}

	return os.Open(ref.Path)
}

// GetTree decodes the directory entries stored under hash.
func (s *Snapshot) GetTree(hash [32]byte) ([]TreeEntry, error) {
	data, ok := s.Trees[hash]
	if !ok {
		return nil, fmt.Errorf("tree not found: %x", hash[:8])
	}

	return DeserializeTree(data)
}

// GetRootEntries returns the top-level entries directly under
// OriginatingPath.
func (s *Snapshot) GetRootEntries() ([]TreeEntry, error) {
	return s.GetTree(s.RootHash)
}

// Walk visits every entry in the snapshot depth-first, calling fn with
// each entry's path relative to OriginatingPath. Returning an error
// from fn stops the walk and surfaces that error from Walk.
func (s *Snapshot) Walk(fn func(path string, entry TreeEntry) error) error {
	return s.walkTree(s.RootHash, "", fn)
}

func (s *Snapshot) walkTree(hash [32]byte, prefix string, fn func(string, TreeEntry) error) error {
	entries, err := s.GetTree(hash)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := entry.Name
		if prefix != "" {
			path = filepath.Join(prefix, entry.Name)
		}

		if err := fn(path, entry); err != nil {
			return err
		}

		if entry.Kind == EntryKindDirectory {
			if err := s.walkTree(entry.Hash, path, fn); err != nil {
				return err
			}
		}
	}

	return nil
}

// ListFiles returns the relative path of every document under
// OriginatingPath at capture time, directories and symlinks excluded.
func (s *Snapshot) ListFiles() ([]string, error) {
	var paths []string
	err := s.Walk(func(path string, entry TreeEntry) error {
		if entry.Kind == EntryKindFile {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

// GetFileAtPath resolves a relative document path component by
// component down the tree and, if it names a file, opens it.
func (s *Snapshot) GetFileAtPath(path string) (*TreeEntry, io.ReadCloser, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, nil, fmt.Errorf("empty path")
	}

	currentHash := s.RootHash

	for i, part := range parts {
		entries, err := s.GetTree(currentHash)
		if err != nil {
			return nil, nil, fmt.Errorf("get tree: %w", err)
		}

		var found *TreeEntry
		for _, entry := range entries {
			if entry.Name == part {
				found = &entry
				break
			}
		}

		if found == nil {
			return nil, nil, fmt.Errorf("path not found: %s", path)
		}

		if i == len(parts)-1 {
			if found.Kind == EntryKindFile {
				reader, err := s.GetFile(found.Hash)
				if err != nil {
					return nil, nil, err
				}
				return found, reader, nil
			}
			return found, nil, nil
		}

		if found.Kind != EntryKindDirectory {
			return nil, nil, fmt.Errorf("not a directory: %s", filepath.Join(parts[:i+1]...))
		}
		currentHash = found.Hash
	}

	return nil, nil, fmt.Errorf("path not found: %s", path)
}

// splitPath breaks a relative document path into its components,
// normalizing separators so a path built with filepath.Join on any
// platform resolves the same way against a captured tree.
func splitPath(path string) []string {
	path = filepath.ToSlash(filepath.Clean(path))
	if path == "." || path == "" {
		return nil
	}

	var parts []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				part := path[start:i]
				if part != "." {
					parts = append(parts, part)
				}
			}
			start = i + 1
		}
	}
	return parts
}

// Diff compares s against the Tracker's previous capture and reports
// which relative paths were added, removed, or modified — this is what
// Watcher.observeOriginatingPath calls each Tick to find newly
// observed documents. old may be nil for a project's first Tick, in
// which case every document in s counts as Added.
func (s *Snapshot) Diff(old *Snapshot) (*SnapshotDiff, error) {
	diff := &SnapshotDiff{
		NewRoot: s.RootHash,
	}

	if old != nil {
		diff.OldRoot = old.RootHash
	}

	if old != nil && s.RootHash == old.RootHash {
		return diff, nil
	}

	newPaths := make(map[string][32]byte)
	if err := s.Walk(func(path string, entry TreeEntry) error {
		if entry.Kind == EntryKindFile || entry.Kind == EntryKindSymlink {
			newPaths[path] = entry.Hash
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walk new snapshot: %w", err)
	}

	if old == nil {
		for path := range newPaths {
			diff.Added = append(diff.Added, path)
		}
		return diff, nil
	}

	oldPaths := make(map[string][32]byte)
	if err := old.Walk(func(path string, entry TreeEntry) error {
		if entry.Kind == EntryKindFile || entry.Kind == EntryKindSymlink {
			oldPaths[path] = entry.Hash
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walk old snapshot: %w", err)
	}

	for path, newHash := range newPaths {
		oldHash, exists := oldPaths[path]
		if !exists {
			diff.Added = append(diff.Added, path)
		} else if newHash != oldHash {
			diff.Modified = append(diff.Modified, path)
		}
	}

	for path := range oldPaths {
		if _, exists := newPaths[path]; !exists {
			diff.Removed = append(diff.Removed, path)
		}
	}

	return diff, nil
}

// IsEmpty reports whether a Tick's capture produced no change at all
// under OriginatingPath.
func (d *SnapshotDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// TotalChanges is the number of added, removed, and modified paths
// combined, handy for a one-line log summary of what a Tick observed.
func (d *SnapshotDiff) TotalChanges() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified)
}
