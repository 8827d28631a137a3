// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/Ibetz1/json-flow/fstree"
	"github.com/Ibetz1/json-flow/node"
	"github.com/Ibetz1/json-flow/timeline"
)

// DefaultPollInterval is how often Watch re-ticks when fsnotify isn't
// available.
const DefaultPollInterval = 2 * time.Second

// Option configures a Watcher, in the same functional-options shape as
// fstree.Option and node.Option.
type Option func(*Watcher)

// WithLogger overrides the *slog.Logger a Watcher logs through.
// Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithPollInterval overrides the ticker interval Watch falls back to
// when fsnotify can't be established.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithParserOptions forwards options (e.g. node.WithMaxDepth) to every
// node.Parse call a Watcher makes.
func WithParserOptions(opts ...node.Option) Option {
	return func(w *Watcher) { w.parserOpts = opts }
}

// TickResult reports what one Tick observed: which files were newly
// discovered, which had new content snapshotted, and which were
// skipped this tick (a per-file failure never aborts the rest of
// the tick).
type TickResult struct {
	Dirty        bool
	NewFiles     []string
	ChangedFiles []string
	Skipped      map[string]error
}

// Watcher drives the tick state machine against one Project. Its
// mutable state (Project, cached per-file Timelines) is guarded by
// a single mutex, the same way fstree.Tracker guards lastSnapshot and
// lastMtime — so a background Watch goroutine and a caller invoking
// Tick directly never observe a half-updated Project.
type Watcher struct {
	mu           sync.Mutex
	project      *Project
	metadataPath string
	timelines    map[string]*timeline.Timeline

	// tracker detects structural change (new/removed/modified files)
	// under OriginatingPath via a content-addressed Merkle snapshot,
	// cheaper than re-walking and re-hashing the whole tree by hand on
	// every tick. trackerRoot records which path it was built for, so
	// a SetOriginatingPath call rebuilds it.
	tracker     *fstree.Tracker
	trackerRoot string

	logger       *slog.Logger
	instanceID   uuid.UUID
	pollInterval time.Duration
	parserOpts   []node.Option
}

// NewWatcher loads (or initializes) the project metadata file at
// metadataPath and returns a ready Watcher.
func NewWatcher(metadataPath string, opts ...Option) (*Watcher, error) {
	p, err := LoadProject(metadataPath)
	if err != nil {
		return nil, err
	}
	if p.ProjectPath == "" {
		p.ProjectPath = filepath.Dir(metadataPath)
	}
	w := &Watcher{
		project:      p,
		metadataPath: metadataPath,
		timelines:    map[string]*timeline.Timeline{},
		logger:       slog.Default(),
		instanceID:   uuid.New(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger.Info("[doctimeline] watcher initialized", "component_instance", w.instanceID, "metadata_path", metadataPath)
	return w, nil
}

// InstanceID returns the UUID minted for this Watcher, tagging its log
// records the way types/provenance.go's ServiceInstanceID tags cxdb's.
func (w *Watcher) InstanceID() uuid.UUID { return w.instanceID }

// Project returns a copy of the Watcher's current persisted state.
func (w *Watcher) Project() Project {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.project
}

// SetOriginatingPath updates the directory the Watcher enumerates for
// new files on each Tick. Call Tick (or persist explicitly) afterward
// to pick up files already present there.
func (w *Watcher) SetOriginatingPath(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.project.OriginatingPath = path
	w.tracker = nil
	w.trackerRoot = ""
}

// Timeline returns the cached in-memory Timeline for a tracked data
// file. It returns ErrUnknownTrackedFile if dataFilePath isn't (yet)
// tracked.
func (w *Watcher) Timeline(dataFilePath string) (*timeline.Timeline, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tl, ok := w.timelines[dataFilePath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrackedFile, dataFilePath)
	}
	return tl, nil
}

// Tick runs one pass of the watch loop: (1) enumerate OriginatingPath
// for newly observed files; (2) hash and snapshot every tracked file
// whose content fingerprint changed; (3) persist Project state if
// anything changed. A per-file parse failure is absorbed and recorded
// in Skipped rather than failing the tick — recovery stays local to
// the one file that failed. Tick returns ErrNoOriginatingPath if the
// project has neither an OriginatingPath to scan nor any files already
// tracked, since there would be nothing for it to do.
func (w *Watcher) Tick(ctx context.Context) (TickResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := TickResult{Skipped: map[string]error{}}

	if w.project.OriginatingPath == "" && len(w.project.TrackedFiles) == 0 {
		return result, ErrNoOriginatingPath
	}

	if w.project.OriginatingPath != "" {
		if _, err := os.Stat(w.project.OriginatingPath); err == nil {
			newPaths, fileCount, err := w.observeOriginatingPath()
			if err != nil {
				return result, fmt.Errorf("project: enumerate %s: %w", w.project.OriginatingPath, err)
			}
			if fileCount != w.project.LastFileCount || len(newPaths) > 0 {
				tracked := make(map[string]bool, len(w.project.TrackedFiles))
				for _, f := range w.project.TrackedFiles {
					tracked[f] = true
				}
				for _, f := range newPaths {
					if tracked[f] {
						continue
					}
					folderName := TimelineName(f)
					folderPath := filepath.Join(w.project.ProjectPath, folderName)
					if err := os.MkdirAll(folderPath, 0o755); err != nil {
						return result, fmt.Errorf("project: create timeline folder %s: %w", folderPath, err)
					}
					w.project.TrackedFiles = append(w.project.TrackedFiles, f)
					w.project.ProjectFolders[folderName] = folderPath
					result.NewFiles = append(result.NewFiles, f)
					result.Dirty = true
					w.logger.Info("[doctimeline] tracking new file", "path", f, "folder", folderPath)
				}
				w.project.LastFileCount = fileCount
			}
		}
	}

	parser := node.NewParser(w.parserOpts...)
	for _, f := range w.project.TrackedFiles {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		content, err := os.ReadFile(f)
		switch {
		case os.IsNotExist(err):
			content = []byte("{}")
		case err != nil:
			result.Skipped[f] = err
			w.logger.Error("[doctimeline] read failed", "path", f, "error", err)
			continue
		}

		if _, err := parser.Parse(bytes.NewReader(content)); err != nil {
			result.Skipped[f] = err
			w.logger.Error("[doctimeline] parse skipped", "path", f, "error", err)
			continue
		}

		sum := fmt.Sprintf("%016x", contentFingerprint(content))
		if w.project.TrackedHashes[f] == sum {
			continue
		}

		folderName := TimelineName(f)
		folderPath := w.project.ProjectFolders[folderName]
		snapshotPath, err := writeSnapshot(folderPath, f, content)
		if err != nil {
			return result, fmt.Errorf("project: write snapshot for %s: %w", f, err)
		}
		w.project.TrackedHashes[f] = sum
		result.ChangedFiles = append(result.ChangedFiles, f)
		result.Dirty = true
		w.logger.Info("[doctimeline] snapshot written", "path", f, "snapshot", snapshotPath)
	}

	if result.Dirty {
		if err := w.project.Save(w.metadataPath); err != nil {
			return result, fmt.Errorf("project: persist: %w", err)
		}
	}

	w.rebuildTimelines(append(append([]string{}, result.NewFiles...), result.ChangedFiles...))
	return result, nil
}

// rebuildTimelines invalidates and rebuilds the in-memory Timeline for
// every file in changed by rebuilding it from its updated snapshot
// folder on disk.
func (w *Watcher) rebuildTimelines(changed []string) {
	for _, f := range changed {
		folderName := TimelineName(f)
		folderPath := w.project.ProjectFolders[folderName]
		snaps, err := listSnapshotsSorted(folderPath)
		if err != nil {
			w.logger.Error("[doctimeline] list snapshots failed", "path", f, "error", err)
			continue
		}
		tl, err := timeline.BuildFromSnapshots(snaps, w.parserOpts...)
		if err != nil {
			w.logger.Error("[doctimeline] timeline rebuild failed", "path", f, "error", err)
			continue
		}
		w.timelines[f] = tl
	}
}

// Watch runs Tick in a loop until ctx is canceled, waking immediately
// on fsnotify events under OriginatingPath and otherwise falling back
// to a plain interval ticker (e.g. OriginatingPath doesn't exist yet,
// or the platform can't establish the watch). Every TickResult,
// changed or not, is sent on the returned channel. Tick itself remains
// independently callable without ever touching Watch.
func (w *Watcher) Watch(ctx context.Context) (<-chan TickResult, error) {
	out := make(chan TickResult)

	w.mu.Lock()
	origin := w.project.OriginatingPath
	w.mu.Unlock()

	var fsw *fsnotify.Watcher
	if origin != "" {
		if watcher, err := fsnotify.NewWatcher(); err != nil {
			w.logger.Error("[doctimeline] fsnotify unavailable, falling back to polling", "error", err)
		} else if err := watcher.Add(origin); err != nil {
			w.logger.Error("[doctimeline] fsnotify add failed, falling back to polling", "path", origin, "error", err)
			watcher.Close()
		} else {
			fsw = watcher
		}
	}

	go func() {
		defer close(out)
		if fsw != nil {
			defer fsw.Close()
		}
		var events chan fsnotify.Event
		var fsErrs chan error
		if fsw != nil {
			events = fsw.Events
			fsErrs = fsw.Errors
		}

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		runTick := func() {
			result, err := w.Tick(ctx)
			if err != nil {
				w.logger.Error("[doctimeline] tick failed", "error", err)
				return
			}
			select {
			case out <- result:
			case <-ctx.Done():
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runTick()
			case _, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				runTick()
			case err, ok := <-fsErrs:
				if !ok {
					fsErrs = nil
					continue
				}
				w.logger.Error("[doctimeline] fsnotify error", "error", err)
			}
		}
	}()

	return out, nil
}

// contentFingerprint is a 64-bit FNV-1a content fingerprint, used to
// cheaply decide whether a tracked file's content changed since the
// last tick. Go's hash/fnv package implements that exact algorithm and constant
// set (offset basis and prime), so there is no third-party library to
// reach for here — this is the canonical stdlib implementation of the
// named algorithm, not a generic substitute for one.
func contentFingerprint(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// writeSnapshot writes content under folder named by the current Unix
// timestamp, falling back to a "<timestamp>-<seq>" suffix on a
// same-second collision instead of silently overwriting — snapshots
// are append-only, so two snapshots landing in the same second must
// not clobber one another.
func writeSnapshot(folder, dataFilePath string, content []byte) (string, error) {
	ext := filepath.Ext(dataFilePath)
	ts := time.Now().Unix()
	path := filepath.Join(folder, fmt.Sprintf("%d%s", ts, ext))
	for seq := 1; ; seq++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(folder, fmt.Sprintf("%d-%d%s", ts, seq, ext))
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// observeOriginatingPath captures OriginatingPath with fstree (the same
// content-addressed Merkle capture the original CXDB client used to
// snapshot an agent's workspace) and reports the absolute paths of
// files added since the Watcher's last observation, plus the current
// total file count. The first call against a given root has no prior
// snapshot to diff against, so every file it sees counts as new.
func (w *Watcher) observeOriginatingPath() ([]string, int, error) {
	if w.tracker == nil || w.trackerRoot != w.project.OriginatingPath {
		w.tracker = fstree.NewTracker(w.project.OriginatingPath)
		w.trackerRoot = w.project.OriginatingPath
	}

	prev := w.tracker.LastSnapshot()
	snap, _, err := w.tracker.Snapshot()
	if err != nil {
		return nil, 0, err
	}

	d, err := snap.Diff(prev)
	if err != nil {
		return nil, 0, err
	}

	out := make([]string, 0, len(d.Added))
	for _, rel := range d.Added {
		out = append(out, filepath.Join(w.project.OriginatingPath, rel))
	}
	sort.Strings(out)
	return out, snap.Stats.FileCount, nil
}

// listSnapshotsSorted lists a timeline folder's snapshot files in
// chronological order: by the Unix timestamp each is named by, then by
// the "-<seq>" suffix writeSnapshot adds on a same-second collision.
func listSnapshotsSorted(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(folder, e.Name()))
	}
	sort.Strings(out)
	// "<ts>-<seq>" is written after "<ts>" in the same second but sorts
	// before it as a string, so order by (timestamp, seq) numerically.
	order := func(p string) (ts, seq int64) {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		t, s, _ := strings.Cut(base, "-")
		ts, _ = strconv.ParseInt(t, 10, 64)
		seq, _ = strconv.ParseInt(s, 10, 64)
		return ts, seq
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, si := order(out[i])
		tj, sj := order(out[j])
		return ti < tj || (ti == tj && si < sj)
	})
	return out, nil
}
