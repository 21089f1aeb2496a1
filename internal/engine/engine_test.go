// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/toeirei/gitswitch/internal/model"
	"github.com/toeirei/gitswitch/internal/sshconfig"
	"github.com/toeirei/gitswitch/internal/sshkey"
	"github.com/toeirei/gitswitch/internal/store"
)

// fakeGit records identity writes in memory.
type fakeGit struct {
	name, email string
	failSet     bool
	setCalls    int
}

func (g *fakeGit) Current() (string, string, error) {
	return g.name, g.email, nil
}

func (g *fakeGit) Set(name, email string) error {
	g.setCalls++
	if g.failSet {
		return errors.New("git is broken")
	}
	g.name, g.email = name, email
	return nil
}

// fakeAgent serves a fixed fingerprint list.
type fakeAgent struct {
	fingerprints []string
	err          error
}

func (a fakeAgent) Fingerprints() ([]string, error) {
	return a.fingerprints, a.err
}

// fakeProber returns a fixed status without touching the network.
type fakeProber struct {
	status model.ProbeStatus
	probes int
}

func (p *fakeProber) Probe(host, keyPath string, encrypted bool) model.ProbeStatus {
	p.probes++
	return p.status
}

func newTestEngine(t *testing.T) (*Engine, *fakeGit) {
	t.Helper()
	git := &fakeGit{}
	sshDir := t.TempDir()
	e := &Engine{
		Store:  store.New(t.TempDir()),
		SSHDir: sshDir,
		Config: sshconfig.NewManager(sshDir),
		Git:    git,
		Agent:  fakeAgent{},
		Prober: &fakeProber{status: model.ProbeSkipped},
		Host:   "github.com",
		Now:    func() time.Time { return time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC) },
	}
	return e, git
}

func mustCreate(t *testing.T, e *Engine, name string) *model.Profile {
	t.Helper()
	p, err := e.Create(name, "Test User", name+"@example.com", "")
	if err != nil {
		t.Fatalf("create %q failed: %v", name, err)
	}
	return p
}

func TestCreateRegistersProfileAndKeys(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")

	if p.SSHKeyPath != filepath.Join(e.SSHDir, "id_ed25519_work") {
		t.Errorf("unexpected key path %q", p.SSHKeyPath)
	}
	if p.Fingerprint == "" {
		t.Error("created profile should carry a fingerprint")
	}
	if _, err := os.Stat(p.SSHKeyPath); err != nil {
		t.Errorf("private key missing: %v", err)
	}

	data, err := e.Store.Load()
	if err != nil {
		t.Fatalf("store load failed: %v", err)
	}
	if _, ok := data.Resolve("work"); !ok {
		t.Error("profile not persisted")
	}
	// Creation alone does not activate.
	if data.ActiveProfile != "" {
		t.Errorf("create should not set the active profile, got %q", data.ActiveProfile)
	}
}

func TestCreateRejectsBadInputBeforeTouchingDisk(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.Create("Bad Name!", "X", "x@example.com", ""); !errors.Is(err, model.ErrInvalidProfileName) {
		t.Errorf("invalid name: got %v", err)
	}
	if _, err := e.Create("ok", "X", "nope", ""); !errors.Is(err, model.ErrInvalidEmail) {
		t.Errorf("invalid email: got %v", err)
	}

	entries, _ := os.ReadDir(e.SSHDir)
	if len(entries) != 0 {
		t.Errorf("rejected create left files behind: %v", entries)
	}
}

func TestCreateDuplicateNameIsCaseInsensitive(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")
	if _, err := e.Create("WORK", "X", "x@example.com", ""); !errors.Is(err, model.ErrDuplicateProfileName) {
		t.Errorf("expected duplicate-name error, got %v", err)
	}
}

func TestSwitchUpdatesAllThreeStores(t *testing.T) {
	e, git := newTestEngine(t)
	mustCreate(t, e, "work")

	p, err := e.Switch("work")
	if err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	if git.name != "Test User" || git.email != "work@example.com" {
		t.Errorf("git identity = %s <%s>", git.name, git.email)
	}

	cfg, err := e.Config.Load()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	mb := cfg.Managed("work")
	if mb == nil {
		t.Fatal("managed block missing after switch")
	}
	if mb.IdentityFile != p.SSHKeyPath || mb.HostAlias != "github-work" {
		t.Errorf("unexpected managed block %+v", mb)
	}

	data, err := e.Store.Load()
	if err != nil {
		t.Fatalf("store load failed: %v", err)
	}
	if data.ActiveProfile != "work" {
		t.Errorf("active profile = %q", data.ActiveProfile)
	}
	got, _ := data.Resolve("work")
	if got.LastUsed == nil {
		t.Error("last_used not set by switch")
	}
}

func TestSwitchResolvesCaseInsensitively(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")

	for _, name := range []string{"Work", "WORK"} {
		p, err := e.Switch(name)
		if err != nil {
			t.Fatalf("switch %q failed: %v", name, err)
		}
		if p.Name != "work" {
			t.Errorf("switch %q resolved to %q", name, p.Name)
		}
	}
}

func TestSwitchIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")

	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("first switch failed: %v", err)
	}
	configAfterFirst, err := os.ReadFile(e.Config.Path)
	if err != nil {
		t.Fatalf("could not read ssh config: %v", err)
	}
	storeAfterFirst, err := os.ReadFile(e.Store.Path())
	if err != nil {
		t.Fatalf("could not read store: %v", err)
	}

	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("second switch failed: %v", err)
	}
	configAfterSecond, _ := os.ReadFile(e.Config.Path)
	storeAfterSecond, _ := os.ReadFile(e.Store.Path())

	if string(configAfterFirst) != string(configAfterSecond) {
		t.Errorf("ssh config changed on repeat switch:\n1: %q\n2: %q", configAfterFirst, configAfterSecond)
	}
	if string(storeAfterFirst) != string(storeAfterSecond) {
		t.Errorf("store changed on repeat switch:\n1: %q\n2: %q", storeAfterFirst, storeAfterSecond)
	}
}

func TestSwitchPreservesForeignConfig(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")

	foreign := "Host myserver\n    HostName internal.example.com\n    User admin\n"
	if err := os.WriteFile(e.Config.Path, []byte(foreign), 0600); err != nil {
		t.Fatalf("failed to seed ssh config: %v", err)
	}

	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	content, err := os.ReadFile(e.Config.Path)
	if err != nil {
		t.Fatalf("could not read ssh config: %v", err)
	}
	if got := string(content); len(got) < len(foreign) || got[:len(foreign)] != foreign {
		t.Errorf("foreign content damaged:\n%q", got)
	}

	// The original file must have been backed up before the first write.
	backup, err := os.ReadFile(e.Config.BackupPath())
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != foreign {
		t.Errorf("backup = %q, want %q", backup, foreign)
	}
}

func TestSwitchUnknownProfile(t *testing.T) {
	e, git := newTestEngine(t)
	if _, err := e.Switch("nope"); !errors.Is(err, model.ErrProfileNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
	if git.setCalls != 0 {
		t.Error("git must not be touched for an unknown profile")
	}
}

func TestSwitchGitFailureLeavesEverythingUntouched(t *testing.T) {
	e, git := newTestEngine(t)
	mustCreate(t, e, "work")
	storeBefore, err := os.ReadFile(e.Store.Path())
	if err != nil {
		t.Fatalf("could not read store: %v", err)
	}

	git.failSet = true
	if _, err := e.Switch("work"); err == nil {
		t.Fatal("switch should fail when git does")
	}

	if _, err := os.Stat(e.Config.Path); !os.IsNotExist(err) {
		t.Error("ssh config must not be written when the git step fails")
	}
	storeAfter, err := os.ReadFile(e.Store.Path())
	if err != nil {
		t.Fatalf("could not read store: %v", err)
	}
	if string(storeBefore) != string(storeAfter) {
		t.Error("store changed despite a failed switch")
	}
}

func TestSwitchConfigFailureLeavesStoreUntouched(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")
	storeBefore, err := os.ReadFile(e.Store.Path())
	if err != nil {
		t.Fatalf("could not read store: %v", err)
	}

	// Point the config at a path whose parent is a regular file so the
	// save cannot succeed.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatalf("failed to write blocker: %v", err)
	}
	e.Config = &sshconfig.Manager{Path: filepath.Join(blocker, "config")}

	_, err = e.Switch("work")
	if !errors.Is(err, model.ErrConfigWrite) {
		t.Fatalf("expected ErrConfigWrite, got %v", err)
	}

	storeAfter, _ := os.ReadFile(e.Store.Path())
	if string(storeBefore) != string(storeAfter) {
		t.Error("store changed despite a failed config write")
	}
	data, _ := e.Store.Load()
	if data.ActiveProfile != "" {
		t.Errorf("active profile set despite failure: %q", data.ActiveProfile)
	}
}

func TestImportKeyRejectsDuplicateFingerprintBeforeCopying(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")

	// Stage a copy of the same key pair outside the SSH dir.
	srcDir := t.TempDir()
	srcPriv := filepath.Join(srcDir, "stray_key")
	privData, err := os.ReadFile(p.SSHKeyPath)
	if err != nil {
		t.Fatalf("could not read private key: %v", err)
	}
	pubData, err := os.ReadFile(p.SSHKeyPath + ".pub")
	if err != nil {
		t.Fatalf("could not read public key: %v", err)
	}
	os.WriteFile(srcPriv, privData, 0600)
	os.WriteFile(srcPriv+".pub", pubData, 0644)

	_, err = e.ImportKey("stray", "X", "x@example.com", srcPriv)
	if !errors.Is(err, model.ErrDuplicateFingerprint) {
		t.Fatalf("expected duplicate-fingerprint error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(e.SSHDir, "id_ed25519_stray")); !os.IsNotExist(err) {
		t.Error("rejected import must not copy key files")
	}
}

func TestImportKeyCreatesProfile(t *testing.T) {
	e, _ := newTestEngine(t)

	srcDir := t.TempDir()
	pair, err := sshkey.Generate(srcDir, "external", "old@example.com", "")
	if err != nil {
		t.Fatalf("could not stage source key: %v", err)
	}

	p, err := e.ImportKey("legacy", "Old Me", "old@example.com", pair.PrivateKeyPath)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if p.Fingerprint != pair.Fingerprint {
		t.Errorf("fingerprint changed on import: %q vs %q", p.Fingerprint, pair.Fingerprint)
	}
	data, _ := e.Store.Load()
	if _, ok := data.Resolve("legacy"); !ok {
		t.Error("imported profile not persisted")
	}
}

func TestRegenerateRefreshesManagedBlock(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")
	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	renewed, err := e.Regenerate("work", "newsecret")
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if renewed.Fingerprint == p.Fingerprint {
		t.Error("fingerprint should change on regenerate")
	}
	if !renewed.IsEncrypted() {
		t.Error("regenerated key with passphrase should be flagged encrypted")
	}

	cfg, err := e.Config.Load()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	mb := cfg.Managed("work")
	if mb == nil {
		t.Fatal("managed block disappeared")
	}
	if mb.IdentityFile != renewed.SSHKeyPath {
		t.Errorf("managed block identity file = %q, want %q", mb.IdentityFile, renewed.SSHKeyPath)
	}

	data, _ := e.Store.Load()
	got, _ := data.Resolve("work")
	if got.Fingerprint != renewed.Fingerprint {
		t.Error("store not updated with the new fingerprint")
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")
	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	if err := e.Delete("Work"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	data, _ := e.Store.Load()
	if _, ok := data.Resolve("work"); ok {
		t.Error("profile still in store")
	}
	if data.ActiveProfile != "" {
		t.Error("active marker not cleared")
	}
	cfg, _ := e.Config.Load()
	if cfg.Managed("work") != nil {
		t.Error("managed block still present")
	}
	if _, err := os.Stat(p.SSHKeyPath); !os.IsNotExist(err) {
		t.Error("key files still on disk")
	}
}

func TestDetectClassifiesKeys(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")

	// A second pair no profile claims.
	if _, err := sshkey.Generate(e.SSHDir, "orphan", "o@example.com", ""); err != nil {
		t.Fatalf("could not stage orphan key: %v", err)
	}

	report, err := e.Detect(false)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if report.TotalKeys != 2 {
		t.Fatalf("total keys = %d, want 2", report.TotalKeys)
	}
	if report.ByAlgorithm["ssh-ed25519"] != 2 {
		t.Errorf("algorithm histogram = %v", report.ByAlgorithm)
	}
	if len(report.Used) != 1 || report.Used[0].Profile != "work" {
		t.Errorf("used = %+v", report.Used)
	}
	if report.Used[0].Key.Fingerprint != p.Fingerprint {
		t.Error("used key matched by something other than fingerprint")
	}
	if len(report.Available) != 1 {
		t.Errorf("available = %+v", report.Available)
	}
	if report.Connectivity != model.ProbeSkipped {
		t.Errorf("probe ran without being requested: %v", report.Connectivity)
	}
}

func TestDetectMatchesLegacyProfilesByPath(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")

	// Simulate a record from before fingerprints were cached.
	data, _ := e.Store.Load()
	legacy, _ := data.Resolve("work")
	legacy.Fingerprint = ""
	if err := data.Update(legacy); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := e.Store.Save(data); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	report, err := e.Detect(false)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(report.Used) != 1 || report.Used[0].Key.PrivateKeyPath != p.SSHKeyPath {
		t.Errorf("legacy profile not matched by path: %+v", report.Used)
	}
}

func TestDetectRunsProbeOnRequest(t *testing.T) {
	e, _ := newTestEngine(t)
	prober := &fakeProber{status: model.ProbeAuthenticated}
	e.Prober = prober

	report, err := e.Detect(true)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if prober.probes != 1 {
		t.Errorf("probe calls = %d, want 1", prober.probes)
	}
	if report.Connectivity != model.ProbeAuthenticated {
		t.Errorf("connectivity = %v", report.Connectivity)
	}
}

func TestDetectReportsAgentFingerprints(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Agent = fakeAgent{fingerprints: []string{"SHA256:aaa", "SHA256:bbb"}}

	report, err := e.Detect(false)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if len(report.AgentFingerprints) != 2 {
		t.Errorf("agent fingerprints = %v", report.AgentFingerprints)
	}

	// Agent errors degrade to a warning, never a failure.
	e.Agent = fakeAgent{err: errors.New("no agent")}
	report, err = e.Detect(false)
	if err != nil {
		t.Fatalf("detect failed with broken agent: %v", err)
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning about the broken agent")
	}
}
