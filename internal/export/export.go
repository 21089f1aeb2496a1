// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package export reads and writes zstd-compressed JSON snapshots of the
// profile store. Snapshots carry profile metadata only, never private
// key material; restoring one replays it through the store's atomic
// save, so a failed restore leaves the store untouched.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/toeirei/gitswitch/internal/model"
	"github.com/toeirei/gitswitch/internal/store"
)

// ProfileRecord is the snapshot form of one profile.
type ProfileRecord struct {
	Name         string                 `json:"name"`
	FullName     string                 `json:"full_name"`
	Email        string                 `json:"email"`
	SSHKeyPath   string                 `json:"ssh_key_path"`
	SSHKeyPublic string                 `json:"ssh_key_public"`
	CreatedAt    time.Time              `json:"created_at"`
	LastUsed     *time.Time             `json:"last_used,omitempty"`
	Fingerprint  string                 `json:"fingerprint,omitempty"`
	Encrypted    *bool                  `json:"encrypted,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// Snapshot is the full backup document.
type Snapshot struct {
	Version       string          `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	ActiveProfile string          `json:"active_profile,omitempty"`
	Profiles      []ProfileRecord `json:"profiles"`
}

// Write streams a compressed snapshot of the store data to path.
func Write(path string, d *store.Data) error {
	snap := Snapshot{
		Version:       d.Version,
		CreatedAt:     time.Now().UTC(),
		ActiveProfile: d.ActiveProfile,
	}
	for _, name := range d.Names() {
		p := d.Profiles[name]
		snap.Profiles = append(snap.Profiles, ProfileRecord{
			Name:         p.Name,
			FullName:     p.FullName,
			Email:        p.Email,
			SSHKeyPath:   p.SSHKeyPath,
			SSHKeyPublic: p.SSHKeyPublic,
			CreatedAt:    p.CreatedAt,
			LastUsed:     p.LastUsed,
			Fingerprint:  p.Fingerprint,
			Encrypted:    p.Encrypted,
			Extra:        p.Extra,
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer file.Close()

	zstdWriter, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	defer func() { _ = zstdWriter.Close() }()

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&snap); err != nil {
		return fmt.Errorf("could not encode backup: %w", err)
	}
	if err := zstdWriter.Close(); err != nil {
		return fmt.Errorf("could not finalize backup: %w", err)
	}
	return file.Sync()
}

// Read loads and decodes a compressed snapshot from path.
func Read(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open backup file: %w", err)
	}
	defer file.Close()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var snap Snapshot
	if err := json.NewDecoder(zstdReader).Decode(&snap); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &snap, nil
}

// Apply merges a snapshot into store data, replacing any records with
// the same name. The result still goes through the store's atomic save.
func Apply(snap *Snapshot, d *store.Data) {
	if snap.Version != "" {
		d.Version = snap.Version
	}
	for _, rec := range snap.Profiles {
		d.Profiles[rec.Name] = model.Profile{
			Name:         rec.Name,
			FullName:     rec.FullName,
			Email:        rec.Email,
			SSHKeyPath:   rec.SSHKeyPath,
			SSHKeyPublic: rec.SSHKeyPublic,
			CreatedAt:    rec.CreatedAt,
			LastUsed:     rec.LastUsed,
			Fingerprint:  rec.Fingerprint,
			Encrypted:    rec.Encrypted,
			Extra:        rec.Extra,
		}
	}
	if snap.ActiveProfile != "" {
		if _, ok := d.Profiles[snap.ActiveProfile]; ok {
			d.ActiveProfile = snap.ActiveProfile
		}
	}
}
