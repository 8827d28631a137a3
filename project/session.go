// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Session records the last-opened project so a host app resumes to it.
type Session struct {
	ProjectPath string `msgpack:"project_path"`
}

// LoadSession reads the session file at path. A missing file yields a
// zero Session, not an error.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes s to path.
func (s *Session) Save(path string) error {
	data, err := encodeMsgpack(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
