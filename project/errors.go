// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package project

import "errors"

// Sentinel errors: package-scope errors.New values, wrapped with
// fmt.Errorf("%w: ...") at call sites.
var (
	// ErrNotAProject is returned when a project metadata file exists but
	// doesn't decode to a recognizable map.
	ErrNotAProject = errors.New("project: not a project metadata file")

	// ErrNoOriginatingPath is returned by Tick when the project has no
	// OriginatingPath to scan and no already-tracked files, so there is
	// nothing a tick could possibly do.
	ErrNoOriginatingPath = errors.New("project: no originating path configured")

	// ErrUnknownTrackedFile is returned by Watcher.Timeline when asked
	// for a path that isn't (yet) tracked.
	ErrUnknownTrackedFile = errors.New("project: file is not tracked")
)
