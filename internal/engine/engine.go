// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package engine is the identity/SSH-state reconciliation core. It
// combines the SSH directory scanner with the profile store to build
// detection reports, and drives the switch operation across the two
// externally-owned stores (global git config and SSH client config).
//
// Both mutations a switch performs are individually idempotent, so the
// overall operation is retry-safe without two-phase rollback: the git
// identity write is applied first, the SSH config upsert second, and the
// profile store is only persisted after both succeeded.
package engine

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/toeirei/gitswitch/internal/gitconfig"
	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/logging"
	"github.com/toeirei/gitswitch/internal/model"
	"github.com/toeirei/gitswitch/internal/sshagent"
	"github.com/toeirei/gitswitch/internal/sshconfig"
	"github.com/toeirei/gitswitch/internal/sshkey"
	"github.com/toeirei/gitswitch/internal/store"
)

// Engine wires the collaborators together. Every operation re-reads the
// store and the SSH config from disk immediately before use; nothing is
// cached across operations.
type Engine struct {
	Store  *store.Store
	SSHDir string
	Config *sshconfig.Manager
	Git    gitconfig.Writer
	Agent  sshagent.Client
	Prober Prober

	// Host is the code-hosting host managed blocks route to.
	Host string

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

// New returns an Engine with the default production collaborators.
func New(st *store.Store, sshDir, host string, probeTimeout time.Duration) *Engine {
	return &Engine{
		Store:  st,
		SSHDir: sshDir,
		Config: sshconfig.NewManager(sshDir),
		Git:    &gitconfig.ExecWriter{},
		Agent:  sshagent.SystemAgent{},
		Prober: &SSHProber{Timeout: probeTimeout, AgentSigners: sshagent.Signers},
		Host:   host,
		Now:    time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Detect scans the SSH directory and matches every discovered key
// against the configured profiles. Keys are matched by fingerprint, with
// a path-equality fallback for legacy records that never cached one.
// Detection never fails on individual bad files; problems surface as
// warnings in the report.
func (e *Engine) Detect(withProbe bool) (*model.DetectionReport, error) {
	scan, err := sshkey.Scan(e.SSHDir)
	if err != nil {
		return nil, err
	}
	data, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	report := &model.DetectionReport{
		ByAlgorithm: map[string]int{},
		Warnings:    scan.Warnings,
	}

	// A fingerprint claimed by more than one profile is impossible by
	// construction (creation refuses reuse); if it happens anyway, it is
	// a data-integrity warning, never a crash.
	seen := map[string]string{}
	for _, p := range data.Profiles {
		if p.Fingerprint == "" {
			continue
		}
		if other, dup := seen[p.Fingerprint]; dup {
			report.Warnings = append(report.Warnings,
				i18n.T("detect.warn_shared_fingerprint", p.Fingerprint, other, p.Name))
		}
		seen[p.Fingerprint] = p.Name
	}

	for _, key := range scan.Keys {
		report.TotalKeys++
		if key.Algorithm != "" {
			report.ByAlgorithm[key.Algorithm]++
		}
		if key.Encrypted {
			report.EncryptedCount++
		}

		owner := ""
		if p, ok := data.ByFingerprint(key.Fingerprint); ok {
			owner = p.Name
		} else {
			// Legacy fallback: profiles created before fingerprints were
			// cached are matched by key path.
			for _, p := range data.Profiles {
				if p.Fingerprint == "" && p.SSHKeyPath == key.PrivateKeyPath {
					owner = p.Name
					break
				}
			}
		}

		key.OwnedBy = owner
		if owner != "" {
			report.Used = append(report.Used, model.KeyAssociation{Key: key, Profile: owner})
		} else {
			report.Available = append(report.Available, key)
		}
	}

	if e.Agent != nil {
		fps, err := e.Agent.Fingerprints()
		if err != nil {
			report.Warnings = append(report.Warnings, i18n.T("detect.warn_agent", err))
		} else {
			report.AgentFingerprints = fps
		}
	}

	if withProbe && e.Prober != nil {
		report.Connectivity = e.Prober.Probe(e.Host, "", false)
	}

	return report, nil
}

// Switch makes the named profile the active identity. The name resolves
// case-insensitively. The git identity write happens first (trivially
// idempotent), the SSH config upsert second (re-upsert is safe), and the
// store is persisted only after both succeeded, so a failure at any point
// leaves the store unmodified. Switching to the already-active profile
// is a valid no-op that still refreshes last_used and re-validates the
// managed block.
func (e *Engine) Switch(name string) (*model.Profile, error) {
	data, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	profile, ok := data.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrProfileNotFound, name)
	}

	// 1. Identity config. Failure here aborts before the SSH config is
	// touched.
	if err := e.Git.Set(profile.FullName, profile.Email); err != nil {
		return nil, err
	}

	// 2. SSH config, re-read fresh and upserted.
	cfg, err := e.Config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Upsert(model.NewManagedBlock(profile))
	if err := e.Config.Save(cfg); err != nil {
		return nil, err
	}

	// 3. Store bookkeeping, last.
	now := e.now()
	profile.LastUsed = &now
	data.Profiles[profile.Name] = profile
	data.ActiveProfile = profile.Name
	if err := e.Store.Save(data); err != nil {
		return nil, err
	}

	logging.Debugf("switched active profile to %s", profile.Name)
	return &profile, nil
}

// Create generates a fresh key pair and registers a new profile around
// it. The key files are removed again if the store rejects the record.
func (e *Engine) Create(name, fullName, email, passphrase string) (*model.Profile, error) {
	name = strings.ToLower(name)
	data, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	// Validate before touching the filesystem.
	if !model.ValidateProfileName(name) {
		return nil, fmt.Errorf("%w: %q (use lowercase letters, digits, '-' and '_')", model.ErrInvalidProfileName, name)
	}
	if !store.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidEmail, email)
	}
	if _, exists := data.Resolve(name); exists {
		return nil, fmt.Errorf("%w: %q", model.ErrDuplicateProfileName, name)
	}

	pair, err := sshkey.Generate(e.SSHDir, name, email, passphrase)
	if err != nil {
		return nil, err
	}

	profile := e.profileFromPair(name, fullName, email, pair)
	if err := data.Add(profile); err != nil {
		sshkey.RemovePair(pair.PrivateKeyPath)
		return nil, err
	}
	if err := e.Store.Save(data); err != nil {
		sshkey.RemovePair(pair.PrivateKeyPath)
		return nil, err
	}
	return &profile, nil
}

// ImportKey registers a new profile around an existing key pair, copying
// it into the SSH directory under the profile naming convention. A
// fingerprint already claimed by another profile is rejected before
// anything is copied.
func (e *Engine) ImportKey(name, fullName, email, srcKeyPath string) (*model.Profile, error) {
	name = strings.ToLower(name)
	data, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	if !model.ValidateProfileName(name) {
		return nil, fmt.Errorf("%w: %q (use lowercase letters, digits, '-' and '_')", model.ErrInvalidProfileName, name)
	}
	if !store.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidEmail, email)
	}
	if _, exists := data.Resolve(name); exists {
		return nil, fmt.Errorf("%w: %q", model.ErrDuplicateProfileName, name)
	}

	// Dedup check against the source key before copying anything.
	pubData, err := readPublicKey(srcKeyPath)
	if err != nil {
		return nil, err
	}
	fp, err := sshkey.Fingerprint(pubData)
	if err != nil {
		return nil, err
	}
	if owner, ok := data.ByFingerprint(fp); ok {
		return nil, fmt.Errorf("%w: %s (profile %q)", model.ErrDuplicateFingerprint, fp, owner.Name)
	}

	pair, err := sshkey.Import(srcKeyPath, e.SSHDir, name)
	if err != nil {
		return nil, err
	}

	profile := e.profileFromPair(name, fullName, email, pair)
	if err := data.Add(profile); err != nil {
		sshkey.RemovePair(pair.PrivateKeyPath)
		return nil, err
	}
	if err := e.Store.Save(data); err != nil {
		sshkey.RemovePair(pair.PrivateKeyPath)
		return nil, err
	}
	return &profile, nil
}

// Regenerate replaces the key material of an existing profile, refreshes
// the cached fingerprint and encryption flag, and re-upserts the managed
// block so its IdentityFile stays correct.
func (e *Engine) Regenerate(name, passphrase string) (*model.Profile, error) {
	data, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	profile, ok := data.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrProfileNotFound, name)
	}

	pair, err := sshkey.Regenerate(e.SSHDir, profile.Name, profile.Email, passphrase)
	if err != nil {
		return nil, err
	}

	oldPath := profile.SSHKeyPath
	profile.SSHKeyPath = pair.PrivateKeyPath
	profile.SSHKeyPublic = pair.PublicKey
	profile.Fingerprint = pair.Fingerprint
	encrypted := pair.Encrypted
	profile.Encrypted = &encrypted

	cfg, err := e.Config.Load()
	if err != nil {
		return nil, err
	}
	if oldPath != pair.PrivateKeyPath {
		cfg.RewriteIdentityFile(oldPath, pair.PrivateKeyPath)
	}
	if cfg.Managed(profile.Name) != nil {
		cfg.Upsert(model.NewManagedBlock(profile))
	}
	if err := e.Config.Save(cfg); err != nil {
		return nil, err
	}

	if err := data.Update(profile); err != nil {
		return nil, err
	}
	if err := e.Store.Save(data); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Delete removes a profile, its managed SSH config block and its key
// files. The key files go last: everything before them is recoverable.
func (e *Engine) Delete(name string) error {
	data, err := e.Store.Load()
	if err != nil {
		return err
	}
	profile, ok := data.Resolve(name)
	if !ok {
		return fmt.Errorf("%w: %q", model.ErrProfileNotFound, name)
	}

	cfg, err := e.Config.Load()
	if err != nil {
		return err
	}
	cfg.Remove(profile.Name)
	if err := e.Config.Save(cfg); err != nil {
		return err
	}

	if err := data.Delete(profile.Name); err != nil {
		return err
	}
	if err := e.Store.Save(data); err != nil {
		return err
	}

	sshkey.RemovePair(profile.SSHKeyPath)
	return nil
}

// readPublicKey loads the .pub sibling of a private key path.
func readPublicKey(privPath string) (string, error) {
	data, err := os.ReadFile(privPath + ".pub")
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrKeyMissing, privPath+".pub")
	}
	return strings.TrimSpace(string(data)), nil
}

// profileFromPair assembles the profile record for freshly placed key
// material.
func (e *Engine) profileFromPair(name, fullName, email string, pair *sshkey.KeyPair) model.Profile {
	encrypted := pair.Encrypted
	return model.Profile{
		Name:         name,
		FullName:     fullName,
		Email:        email,
		SSHKeyPath:   pair.PrivateKeyPath,
		SSHKeyPublic: pair.PublicKey,
		CreatedAt:    e.now(),
		Fingerprint:  pair.Fingerprint,
		Encrypted:    &encrypted,
	}
}
