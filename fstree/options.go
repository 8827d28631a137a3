// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package fstree

import "path/filepath"

// Option configures how Capture walks a directory: what to skip,
// whether to dereference symlinks, and the size/count limits beyond
// which a capture gives up rather than building an unbounded tree.
type Option func(*options)

type options struct {
	excludePatterns []string
	excludeFn       func(path string, isDir bool) bool
	followSymlinks  bool
	maxFileSize     int64
	maxFiles        int
}

// defaultOptions are the limits a bare NewTracker capture runs under:
// generous enough for a directory of documents, small enough that a
// runaway OriginatingPath (a build output dumped alongside the real
// files, say) fails a Tick instead of hanging it.
func defaultOptions() *options {
	return &options{
		excludePatterns: nil,
		followSymlinks:  false,
		maxFileSize:     100 * 1024 * 1024, // 100MB default max file size
		maxFiles:        100000,            // 100k files max
	}
}

// WithExclude adds glob patterns for paths to exclude from a capture —
// useful for keeping build artifacts or VCS metadata under
// OriginatingPath from ever being mistaken for a watched document.
// Patterns are matched against the relative path from the root.
// Examples: "*.log", ".git/**", "node_modules/**"
func WithExclude(patterns ...string) Option {
	return func(o *options) {
		o.excludePatterns = append(o.excludePatterns, patterns...)
	}
}

// WithExcludeFunc sets a custom exclusion function, for exclusion rules
// a glob pattern can't express (e.g. skipping dotfiles under any
// directory name). Return true to exclude the path. Called for every
// file and directory under OriginatingPath.
func WithExcludeFunc(fn func(path string, isDir bool) bool) Option {
	return func(o *options) {
		o.excludeFn = fn
	}
}

// WithFollowSymlinks enables following symbolic links. By default a
// symlinked document is captured as a symlink entry (only its target
// path is stored, not its content) — with this option it's
// dereferenced and its target's content is captured as if it were an
// ordinary file, and a symlinked directory is walked; a symlink cycle
// met that way is detected and fails the capture.
func WithFollowSymlinks() Option {
	return func(o *options) {
		o.followSymlinks = true
	}
}

// WithMaxFileSize sets the largest a single document under
// OriginatingPath is allowed to be. A bigger file is left out of the
// capture (as if it were not there); the capture itself goes on.
// Default is 100MB.
func WithMaxFileSize(bytes int64) Option {
	return func(o *options) {
		o.maxFileSize = bytes
	}
}

// WithMaxFiles caps how many documents a single capture will walk
// before giving up with ErrTooManyFiles, so a misconfigured
// OriginatingPath can't turn one Tick into an unbounded scan.
// Default is 100,000.
func WithMaxFiles(n int) Option {
	return func(o *options) {
		o.maxFiles = n
	}
}

// shouldExclude reports whether buildTree should skip relPath entirely
// — it never becomes a TreeEntry and so is invisible to every later
// Diff, as if the document were never under OriginatingPath at all.
func (o *options) shouldExclude(relPath string, isDir bool) bool {
	if o.excludeFn != nil && o.excludeFn(relPath, isDir) {
		return true
	}

	for _, pattern := range o.excludePatterns {
		if matched, _ := filepath.Match(pattern, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(relPath)); matched {
			return true
		}
		// "dir/**" patterns also match the directory itself, not just
		// its contents, so excluding a directory doesn't require a
		// second pattern for the bare directory name.
		if isDir && len(pattern) > 3 && pattern[len(pattern)-3:] == "/**" {
			prefix := pattern[:len(pattern)-3]
			if matched, _ := filepath.Match(prefix, relPath); matched {
				return true
			}
		}
	}

	return false
}
