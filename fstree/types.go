// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package fstree captures a directory as a content-addressed Merkle
// tree and diffs two such captures against each other. It answers one
// question cheaply, over and over: which files under this directory
// are new, gone, or changed since the last time someone looked?
//
// project.Watcher is the one caller in this module: each Tick hands
// its OriginatingPath to a Tracker, and the resulting Snapshot.Diff
// tells the watcher which files (by path relative to OriginatingPath)
// appeared since the previous tick. Every capture re-hashes every file;
// what content-addressing saves is the comparison, which stops at the
// root hash when nothing moved. The design is similar to Git's
// tree/blob model but optimized for portable snapshots (no uid/gid).
//
// # Usage
//
//	tracker := fstree.NewTracker("/path/to/watched/documents")
//	snap, changed, err := tracker.Snapshot()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if changed {
//	    fmt.Printf("files: %d\n", snap.Stats.FileCount)
//	}
//
// # Design
//
// The directory is represented as a Merkle tree:
//   - Files are content-addressed blobs (BLAKE3 hash of contents)
//   - Directories are tree objects containing sorted entries
//   - Tree objects are also content-addressed (BLAKE3 hash of serialized entries)
//   - Unchanged subtrees share the same hash across snapshots (dedup)
//
// # Wire Format
//
// Tree objects are msgpack-encoded arrays of TreeEntry, sorted by name.
// This ensures deterministic hashing regardless of filesystem enumeration order.
package fstree

import "time"

// EntryKind distinguishes a document from a directory or symlink
// inside a captured tree.
type EntryKind uint8

const (
	// EntryKindFile is a watched document.
	EntryKindFile EntryKind = 0

	// EntryKindDirectory holds further entries, each hashed into its
	// parent's TreeObject.
	EntryKindDirectory EntryKind = 1

	// EntryKindSymlink is a symbolic link; its Hash covers the target
	// path string, not the content it points at.
	EntryKindSymlink EntryKind = 2
)

// TreeEntry is one file, directory, or symlink inside a captured
// directory. Entries are sorted by name for deterministic tree
// hashing; a data file under OriginatingPath shows up here as an
// EntryKindFile entry named by its basename.
type TreeEntry struct {
	// Name is the filename (no path separators).
	Name string `msgpack:"1" json:"name"`

	// Kind indicates file, directory, or symlink.
	Kind EntryKind `msgpack:"2" json:"kind"`

	// Mode contains POSIX permission bits (e.g., 0755, 0644).
	// Only the lower 9 bits are used (no uid/gid for portability).
	Mode uint32 `msgpack:"3" json:"mode"`

	// Size is the uncompressed size in bytes for files, the length of
	// the target path for symlinks, and 0 for directories.
	Size uint64 `msgpack:"4" json:"size"`

	// Hash is the BLAKE3-256 hash:
	//   - For files: hash of file contents
	//   - For directories: hash of serialized TreeObject
	//   - For symlinks: hash of target path bytes
	Hash [32]byte `msgpack:"5" json:"hash"`
}

// TreeObject is the serialized form of one directory's entries, sorted
// by name before hashing so two captures of an unchanged directory
// always produce the same hash regardless of readdir order.
type TreeObject struct {
	Entries []TreeEntry
}

// Snapshot is one capture of OriginatingPath: every file and directory
// under it, content-addressed so Diff can tell which documents changed
// since the Watcher's previous tick without re-reading anything whose
// hash didn't move.
type Snapshot struct {
	// RootHash is the BLAKE3-256 hash of the root TreeObject.
	RootHash [32]byte

	// Trees maps tree hashes to their serialized TreeObject bytes.
	// Includes all directory tree objects in the snapshot.
	Trees map[[32]byte][]byte

	// Files maps file content hashes to FileRef: each file's path, not
	// its bytes, so a Snapshot never holds document content in memory.
	Files map[[32]byte]*FileRef

	// Symlinks maps symlink target hashes to their target path strings.
	// Stored separately from Files because the content is the target path, not file content.
	Symlinks map[[32]byte]string

	// Stats summarizes this capture: how many files, directories, and
	// symlinks it found under OriginatingPath, and how long it took.
	Stats SnapshotStats

	// CapturedAt is when this Tick's capture ran.
	CapturedAt time.Time
}

// FileRef locates one file inside a Snapshot by its absolute path,
// without holding its content in memory; GetFile opens it from Path.
type FileRef struct {
	// Path is the absolute path to the file.
	Path string

	// Size is the file size in bytes.
	Size uint64

	// Hash is the BLAKE3-256 hash of the file contents.
	Hash [32]byte
}

// SnapshotStats summarizes one capture under OriginatingPath.
type SnapshotStats struct {
	// FileCount is the number of regular files — what Watcher.Tick
	// compares against Project.LastFileCount to notice new documents.
	FileCount int

	// DirCount is the number of directories.
	DirCount int

	// SymlinkCount is the number of symbolic links.
	SymlinkCount int

	// TotalBytes is the total size of all files.
	TotalBytes uint64

	// Duration is how long the snapshot took.
	Duration time.Duration
}

// SnapshotDiff is what changed under OriginatingPath between two
// Snapshots. Watcher.observeOriginatingPath only reads Added — the
// newly observed documents it starts tracking — but Removed and
// Modified are populated the same way for any other caller walking a
// Tracker's history.
type SnapshotDiff struct {
	// Added contains paths that exist in New but not Old.
	Added []string

	// Removed contains paths that exist in Old but not New.
	Removed []string

	// Modified contains paths that exist in both but have different content.
	Modified []string

	// OldRoot is the root hash of the old snapshot (zero if none).
	OldRoot [32]byte

	// NewRoot is the root hash of the new snapshot.
	NewRoot [32]byte
}
