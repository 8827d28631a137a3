// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

// Package project persists a watched set of documents and drives the
// tick that detects new files and content changes and materializes
// snapshots for them.
//
// # Usage
//
//	w, err := project.NewWatcher("/path/to/project.msgpack")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := w.Tick(context.Background())
//
// # Design
//
// The metadata file is a single msgpack map, decoded first into a
// generic map[string]any so fields this build doesn't recognize round-
// trip unchanged through an extra passthrough bag rather than being
// silently dropped by a strict struct decode.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// TimelineSuffix is appended to a data file's stem to name its
// snapshot folder (e.g. "config.json" -> "config.tml").
const TimelineSuffix = ".tml"

// MetadataFileName is the project metadata file's name under
// ProjectPath.
const MetadataFileName = "project.msgpack"

// SessionFileName is the session file's name under the working
// directory.
const SessionFileName = "session.msgpack"

// TimelineName derives the timeline folder name for a data file path:
// its stem plus TimelineSuffix.
func TimelineName(dataFilePath string) string {
	base := filepath.Base(dataFilePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + TimelineSuffix
}

// Project is the persisted state of a watched set of files.
type Project struct {
	ProjectPath     string
	ProjectName     string
	SelectedName    string
	SelectedPath    string
	OriginatingPath string
	LastFileCount   int
	TrackedFiles    []string
	TrackedHashes   map[string]string
	ProjectFolders  map[string]string

	// extra preserves any metadata-file fields this build doesn't
	// recognize, so they round-trip unchanged on load/save.
	extra map[string]any
}

// NewProject returns an empty Project with its maps initialized.
func NewProject() *Project {
	return &Project{
		TrackedFiles:   []string{},
		TrackedHashes:  map[string]string{},
		ProjectFolders: map[string]string{},
		extra:          map[string]any{},
	}
}

// LoadProject reads the metadata file at path. A missing file is not
// an error: it yields an empty Project with every field at its zero
// value, as if this were the first tick of a brand-new project.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewProject(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("project: read %s: %w", path, err)
	}

	var raw map[string]any
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("project: decode %s: %w: %v", path, ErrNotAProject, err)
	}

	p := NewProject()
	for key, val := range raw {
		switch key {
		case "project_path":
			p.ProjectPath = asString(val)
		case "project_name":
			p.ProjectName = asString(val)
		case "selected_name":
			p.SelectedName = asString(val)
		case "selected_path":
			p.SelectedPath = asString(val)
		case "originating_path":
			p.OriginatingPath = asString(val)
		case "last_file_count":
			p.LastFileCount = asInt(val)
		case "tracked_files":
			p.TrackedFiles = asStringSlice(val)
		case "tracked_hashes":
			p.TrackedHashes = asStringMap(val)
		case "project_folders":
			p.ProjectFolders = asStringMap(val)
		default:
			p.extra[key] = val
		}
	}
	if p.TrackedFiles == nil {
		p.TrackedFiles = []string{}
	}
	if p.TrackedHashes == nil {
		p.TrackedHashes = map[string]string{}
	}
	if p.ProjectFolders == nil {
		p.ProjectFolders = map[string]string{}
	}
	return p, nil
}

// Save writes p's metadata file at path, sorted-key msgpack-encoded
// (mirroring encoding.go's EncodeMsgpack), preserving any unrecognized
// fields captured on load.
func (p *Project) Save(path string) error {
	raw := make(map[string]any, len(p.extra)+8)
	for k, v := range p.extra {
		raw[k] = v
	}
	raw["project_path"] = p.ProjectPath
	raw["project_name"] = p.ProjectName
	raw["selected_name"] = p.SelectedName
	raw["selected_path"] = p.SelectedPath
	raw["originating_path"] = p.OriginatingPath
	raw["last_file_count"] = p.LastFileCount
	raw["tracked_files"] = p.TrackedFiles
	raw["tracked_hashes"] = p.TrackedHashes
	raw["project_folders"] = p.ProjectFolders

	data, err := encodeMsgpack(raw)
	if err != nil {
		return fmt.Errorf("project: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("project: mkdir %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("project: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// encodeMsgpack encodes v with sorted map keys so two encodes of the
// same logical value always produce identical bytes.
func encodeMsgpack(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch t := v.(type) {
	case int8:
		return int(t)
	case int16:
		return int(t)
	case int32:
		return int(t)
	case int64:
		return int(t)
	case uint8:
		return int(t)
	case uint16:
		return int(t)
	case uint32:
		return int(t)
	case uint64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}
