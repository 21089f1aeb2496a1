// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the on-disk manager for the SSH config file: fresh
// reads before every write, a one-time backup of previously-unmanaged
// files, and temp-file-plus-rename writes so an interrupt never leaves a
// truncated config behind.
package sshconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/toeirei/gitswitch/internal/logging"
	"github.com/toeirei/gitswitch/internal/model"
)

// BackupSuffix is appended to the config filename for the one-time backup.
const BackupSuffix = ".gitswitch-backup"

// Manager reads and writes one SSH config file.
type Manager struct {
	Path string
}

// NewManager returns a Manager for the config file inside sshDir.
func NewManager(sshDir string) *Manager {
	return &Manager{Path: filepath.Join(sshDir, "config")}
}

// BackupPath returns the sibling backup file path.
func (m *Manager) BackupPath() string {
	return m.Path + BackupSuffix
}

// Load reads and parses the config file. A missing file parses as empty.
// The file is always re-read from disk; no content is cached between
// operations.
func (m *Manager) Load() (*File, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Parse(""), nil
		}
		return nil, fmt.Errorf("%w: %v", model.ErrConfigParse, err)
	}
	f := Parse(string(data))
	for _, w := range f.Warnings {
		logging.Warnf("%s", w)
	}
	return f, nil
}

// Save renders and atomically writes the file. Before the very first
// managed write to a pre-existing config, the original content is copied
// to the backup path; the backup is never overwritten afterwards.
func (m *Manager) Save(f *File) error {
	if err := m.backupOnce(); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}

	if err := os.MkdirAll(filepath.Dir(m.Path), 0700); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}

	mode := os.FileMode(0600)
	if runtime.GOOS == "windows" {
		mode = 0644
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.Path), ".config.gitswitch.*")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(f.Render()); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}
	if err := os.Rename(tmpPath, m.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrConfigWrite, err)
	}
	return nil
}

// backupOnce copies the current config to the backup path if the config
// exists and no backup has been taken yet.
func (m *Manager) backupOnce() error {
	if _, err := os.Stat(m.BackupPath()); err == nil {
		return nil
	}
	data, err := os.ReadFile(m.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	logging.Debugf("backing up %s to %s", m.Path, m.BackupPath())
	return os.WriteFile(m.BackupPath(), data, 0600)
}
