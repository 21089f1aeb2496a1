// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package store persists the profile records in a human-editable YAML
// file (profiles.yaml). Every save first refreshes a sibling backup and
// then writes through a temp-file-plus-rename sequence, so a crash never
// leaves a truncated store. Unknown fields found in the file are carried
// through a load/save round trip untouched, tolerating manual edits.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/toeirei/gitswitch/internal/model"
)

// SchemaVersion is written into the meta section of new store files.
const SchemaVersion = "1.0"

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail reports whether an address matches the basic grammar the
// store accepts.
func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// fileMeta mirrors the `meta:` section of profiles.yaml.
type fileMeta struct {
	Version       string                 `yaml:"version"`
	ActiveProfile string                 `yaml:"active_profile,omitempty"`
	Extra         map[string]interface{} `yaml:",inline"`
}

// fileProfile mirrors one record under `profiles:`. Timestamps are kept
// as ISO-8601 strings on disk.
type fileProfile struct {
	Name         string                 `yaml:"name"`
	Email        string                 `yaml:"email"`
	SSHKeyPath   string                 `yaml:"ssh_key_path"`
	SSHKeyPublic string                 `yaml:"ssh_key_public"`
	CreatedAt    string                 `yaml:"created_at"`
	LastUsed     string                 `yaml:"last_used,omitempty"`
	Fingerprint  string                 `yaml:"fingerprint,omitempty"`
	Encrypted    *bool                  `yaml:"encrypted,omitempty"`
	Extra        map[string]interface{} `yaml:",inline"`
}

// fileRoot is the full on-disk document.
type fileRoot struct {
	Meta     fileMeta               `yaml:"meta"`
	Profiles map[string]fileProfile `yaml:"profiles"`
	Extra    map[string]interface{} `yaml:",inline"`
}

// Data is the loaded, typed form of the profile store.
type Data struct {
	Version       string
	ActiveProfile string
	Profiles      map[string]model.Profile // keyed by canonical (lowercase) name

	metaExtra map[string]interface{}
	rootExtra map[string]interface{}
}

// Store reads and writes one profile store directory.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the store file path.
func (s *Store) Path() string {
	return filepath.Join(s.Dir, "profiles.yaml")
}

// BackupPath returns the sibling backup file path.
func (s *Store) BackupPath() string {
	return s.Path() + ".bak"
}

// Load reads the store from disk. A missing file yields an empty store.
// The file is re-read on every call; nothing is cached across operations.
func (s *Store) Load() (*Data, error) {
	d := &Data{
		Version:  SchemaVersion,
		Profiles: map[string]model.Profile{},
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return d, nil
		}
		return nil, err
	}

	var root fileRoot
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", s.Path(), err)
	}

	if root.Meta.Version != "" {
		d.Version = root.Meta.Version
	}
	d.ActiveProfile = root.Meta.ActiveProfile
	d.metaExtra = root.Meta.Extra
	d.rootExtra = root.Extra

	for key, fp := range root.Profiles {
		p := model.Profile{
			Name:         strings.ToLower(key),
			FullName:     fp.Name,
			Email:        fp.Email,
			SSHKeyPath:   fp.SSHKeyPath,
			SSHKeyPublic: fp.SSHKeyPublic,
			Fingerprint:  fp.Fingerprint,
			Encrypted:    fp.Encrypted,
			Extra:        fp.Extra,
		}
		if t, err := time.Parse(time.RFC3339, fp.CreatedAt); err == nil {
			p.CreatedAt = t
		}
		if fp.LastUsed != "" {
			if t, err := time.Parse(time.RFC3339, fp.LastUsed); err == nil {
				p.LastUsed = &t
			}
		}
		d.Profiles[p.Name] = p
	}

	return d, nil
}

// Save refreshes the backup and atomically writes the store file.
func (s *Store) Save(d *Data) error {
	root := fileRoot{
		Meta: fileMeta{
			Version:       d.Version,
			ActiveProfile: d.ActiveProfile,
			Extra:         d.metaExtra,
		},
		Profiles: map[string]fileProfile{},
		Extra:    d.rootExtra,
	}
	for name, p := range d.Profiles {
		fp := fileProfile{
			Name:         p.FullName,
			Email:        p.Email,
			SSHKeyPath:   p.SSHKeyPath,
			SSHKeyPublic: p.SSHKeyPublic,
			CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
			Fingerprint:  p.Fingerprint,
			Encrypted:    p.Encrypted,
			Extra:        p.Extra,
		}
		if p.LastUsed != nil {
			fp.LastUsed = p.LastUsed.UTC().Format(time.RFC3339)
		}
		root.Profiles[name] = fp
	}

	data, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}

	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}

	// Refresh the backup with the previous content before any change.
	if prev, err := os.ReadFile(s.Path()); err == nil {
		if err := os.WriteFile(s.BackupPath(), prev, 0600); err != nil {
			return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
		}
	}

	tmp, err := os.CreateTemp(s.Dir, ".profiles.yaml.*")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", model.ErrStoreWrite, err)
	}
	return nil
}

// Resolve looks a profile up case-insensitively and returns its canonical
// record.
func (d *Data) Resolve(name string) (model.Profile, bool) {
	p, ok := d.Profiles[strings.ToLower(name)]
	return p, ok
}

// Names returns all profile names, sorted.
func (d *Data) Names() []string {
	names := make([]string, 0, len(d.Profiles))
	for name := range d.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByFingerprint returns the profile that claims a fingerprint, if any.
func (d *Data) ByFingerprint(fp string) (model.Profile, bool) {
	if fp == "" {
		return model.Profile{}, false
	}
	for _, p := range d.Profiles {
		if p.Fingerprint == fp {
			return p, true
		}
	}
	return model.Profile{}, false
}

// Add validates and inserts a new profile. The name is case-folded; a
// name or fingerprint already claimed by another profile is rejected.
func (d *Data) Add(p model.Profile) error {
	p.Name = strings.ToLower(p.Name)
	if !model.ValidateProfileName(p.Name) {
		return fmt.Errorf("%w: %q (use lowercase letters, digits, '-' and '_')", model.ErrInvalidProfileName, p.Name)
	}
	if !ValidateEmail(p.Email) {
		return fmt.Errorf("%w: %q", model.ErrInvalidEmail, p.Email)
	}
	if _, exists := d.Profiles[p.Name]; exists {
		return fmt.Errorf("%w: %q", model.ErrDuplicateProfileName, p.Name)
	}
	if owner, ok := d.ByFingerprint(p.Fingerprint); ok {
		return fmt.Errorf("%w: %s (profile %q)", model.ErrDuplicateFingerprint, p.Fingerprint, owner.Name)
	}
	d.Profiles[p.Name] = p
	return nil
}

// Update replaces an existing profile record.
func (d *Data) Update(p model.Profile) error {
	p.Name = strings.ToLower(p.Name)
	if _, exists := d.Profiles[p.Name]; !exists {
		return fmt.Errorf("%w: %q", model.ErrProfileNotFound, p.Name)
	}
	if p.Email != "" && !ValidateEmail(p.Email) {
		return fmt.Errorf("%w: %q", model.ErrInvalidEmail, p.Email)
	}
	d.Profiles[p.Name] = p
	return nil
}

// Delete removes a profile record, clearing the active marker if it
// pointed at the deleted profile.
func (d *Data) Delete(name string) error {
	key := strings.ToLower(name)
	if _, exists := d.Profiles[key]; !exists {
		return fmt.Errorf("%w: %q", model.ErrProfileNotFound, name)
	}
	delete(d.Profiles, key)
	if d.ActiveProfile == key {
		d.ActiveProfile = ""
	}
	return nil
}
