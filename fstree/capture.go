// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package fstree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// Common errors
var (
	ErrTooManyFiles = errors.New("fstree: too many files")
	ErrFileTooLarge = errors.New("fstree: file too large")
	ErrCyclicLink   = errors.New("fstree: cyclic symbolic link detected")
)

// Capture walks root (a Watcher's OriginatingPath, typically) and
// returns a Snapshot: the Merkle tree of every file and directory
// found there at this instant.
//
// The snapshot uses content-addressing:
//   - Unchanged files have the same hash across snapshots
//   - Unchanged directories have the same tree hash
//   - This lets Snapshot.Diff detect per-path add/remove/modify by comparing
//     hashes; Capture itself reads and hashes every file each time
func Capture(root string, opts ...Option) (*Snapshot, error) {
	start := time.Now()

	// Resolve to absolute path so a Snapshot's FileRef.Path is always
	// directly readable regardless of the watcher process's cwd.
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	b := &builder{
		root:     absRoot,
		opts:     o,
		trees:    make(map[[32]byte][]byte),
		files:    make(map[[32]byte]*FileRef),
		symlinks: make(map[[32]byte]string),
		visited:  make(map[string]bool), // for cycle detection with symlinks
	}

	rootHash, err := b.buildTree(absRoot, "")
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		RootHash:   rootHash,
		Trees:      b.trees,
		Files:      b.files,
		Symlinks:   b.symlinks,
		CapturedAt: start,
		Stats: SnapshotStats{
			FileCount:    b.fileCount,
			DirCount:     b.dirCount,
			SymlinkCount: b.symlinkCount,
			TotalBytes:   b.totalBytes,
			Duration:     time.Since(start),
		},
	}, nil
}

// builder accumulates state while Capture walks one directory tree.
type builder struct {
	root     string
	opts     *options
	trees    map[[32]byte][]byte
	files    map[[32]byte]*FileRef
	symlinks map[[32]byte]string // target path for symlinks
	visited  map[string]bool     // resolved paths for cycle detection

	fileCount    int
	dirCount     int
	symlinkCount int
	totalBytes   uint64
}

// buildTree recursively builds the TreeObject for one directory and
// returns its content hash.
func (b *builder) buildTree(absPath, relPath string) ([32]byte, error) {
	// A symlinked directory pointing back at an ancestor would recurse
	// forever without this check.
	realPath, err := filepath.EvalSymlinks(absPath)
	if err == nil {
		if b.visited[realPath] {
			return [32]byte{}, ErrCyclicLink
		}
		b.visited[realPath] = true
		defer delete(b.visited, realPath)
	}

	// Read directory entries
	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return [32]byte{}, fmt.Errorf("read dir %s: %w", relPath, err)
	}

	var entries []TreeEntry

	for _, de := range dirEntries {
		name := de.Name()
		childRelPath := filepath.Join(relPath, name)
		childAbsPath := filepath.Join(absPath, name)

		if b.opts.shouldExclude(childRelPath, de.IsDir()) {
			continue
		}

		var info fs.FileInfo
		if b.opts.followSymlinks {
			info, err = os.Stat(childAbsPath)
		} else {
			info, err = os.Lstat(childAbsPath)
		}
		if err != nil {
			// Skip files we can't stat (permission errors, etc.)
			continue
		}

		entry, err := b.buildEntry(childAbsPath, childRelPath, name, info)
		if err != nil {
			if errors.Is(err, ErrTooManyFiles) || errors.Is(err, ErrCyclicLink) {
				return [32]byte{}, err
			}
			// Skip individual files on error
			continue
		}

		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	treeBytes, err := serializeTree(entries)
	if err != nil {
		return [32]byte{}, fmt.Errorf("serialize tree %s: %w", relPath, err)
	}

	hash := blake3.Sum256(treeBytes)
	b.trees[hash] = treeBytes
	b.dirCount++

	return hash, nil
}

// buildEntry classifies one directory entry and builds its TreeEntry.
func (b *builder) buildEntry(absPath, relPath, name string, info fs.FileInfo) (TreeEntry, error) {
	mode := uint32(info.Mode().Perm())

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(absPath)
		if err != nil {
			return TreeEntry{}, fmt.Errorf("readlink %s: %w", relPath, err)
		}

		hash := blake3.Sum256([]byte(target))
		b.symlinkCount++

		// Keyed by the hash of the target string, not as a FileRef — a
		// symlink's content is the target path, not file bytes.
		b.symlinks[hash] = target

		return TreeEntry{
			Name: name,
			Kind: EntryKindSymlink,
			Mode: mode,
			Size: uint64(len(target)),
			Hash: hash,
		}, nil

	case info.IsDir():
		dirHash, err := b.buildTree(absPath, relPath)
		if err != nil {
			return TreeEntry{}, err
		}

		return TreeEntry{
			Name: name,
			Kind: EntryKindDirectory,
			Mode: mode,
			Size: 0,
			Hash: dirHash,
		}, nil

	default:
		if b.fileCount >= b.opts.maxFiles {
			return TreeEntry{}, ErrTooManyFiles
		}

		size := info.Size()
		if size > b.opts.maxFileSize {
			return TreeEntry{}, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, relPath, size)
		}

		hash, err := hashFile(absPath)
		if err != nil {
			return TreeEntry{}, fmt.Errorf("hash file %s: %w", relPath, err)
		}

		b.files[hash] = &FileRef{
			Path: absPath,
			Size: uint64(size),
			Hash: hash,
		}
		b.fileCount++
		b.totalBytes += uint64(size)

		return TreeEntry{
			Name: name,
			Kind: EntryKindFile,
			Mode: mode,
			Size: uint64(size),
			Hash: hash,
		}, nil
	}
}

// hashFile streams a file through BLAKE3 without buffering it whole.
func hashFile(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return [32]byte{}, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, nil
}

// serializeTree encodes a directory's entries to msgpack with sorted
// keys, using the numeric field tags on TreeEntry so the wire form
// stays compact and order-independent.
func serializeTree(entries []TreeEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)

	if err := enc.Encode(entries); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DeserializeTree decodes one directory's serialized entries back out
// of Snapshot.Trees, given the tree hash recorded on its parent
// TreeEntry.
func DeserializeTree(data []byte) ([]TreeEntry, error) {
	var entries []TreeEntry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
