// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

package engine

import (
	"errors"
	"os"
	"testing"

	"github.com/toeirei/gitswitch/internal/model"
)

func stepByID(t *testing.T, diag *model.Diagnosis, id model.DiagStepID) model.DiagStep {
	t.Helper()
	for _, step := range diag.Steps {
		if step.ID == id {
			return step
		}
	}
	t.Fatalf("step %v missing from diagnosis: %+v", id, diag.Steps)
	return model.DiagStep{}
}

func TestDiagnoseHealthyProfile(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")
	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	e.Prober = &fakeProber{status: model.ProbeAuthenticated}

	diag, err := e.Diagnose("work")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if !diag.Healthy() {
		t.Fatalf("profile should be healthy: %+v", diag.Steps)
	}
	if !stepByID(t, diag, model.DiagKeyFiles).OK {
		t.Error("key files step should pass")
	}
	// Plain key, so the agent step is skipped, not failed.
	if !stepByID(t, diag, model.DiagAgent).Skipped {
		t.Error("agent step should be skipped for a plain key")
	}
	if !stepByID(t, diag, model.DiagProbe).OK {
		t.Error("probe step should pass")
	}
}

func TestDiagnoseUnknownProfile(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Diagnose("ghost"); !errors.Is(err, model.ErrProfileNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestDiagnoseMissingKeyFiles(t *testing.T) {
	e, _ := newTestEngine(t)
	p := mustCreate(t, e, "work")
	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	os.Remove(p.SSHKeyPath)
	os.Remove(p.SSHKeyPath + ".pub")

	diag, err := e.Diagnose("work")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if diag.Healthy() {
		t.Fatal("diagnosis should fail with the key files gone")
	}
	first := diag.Steps[diag.FirstFail]
	if first.ID != model.DiagKeyFiles || !errors.Is(first.Err, model.ErrKeyMissing) {
		t.Errorf("first failure = %+v, want missing key files", first)
	}
	// The probe is pointless without key files.
	if !stepByID(t, diag, model.DiagProbe).Skipped {
		t.Error("probe should be skipped when key files are missing")
	}
}

func TestDiagnoseMissingManagedBlock(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")
	// Never switched, so no managed block exists yet.
	e.Prober = &fakeProber{status: model.ProbeAuthenticated}

	diag, err := e.Diagnose("work")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	step := stepByID(t, diag, model.DiagConfig)
	if step.OK || step.Skipped {
		t.Fatalf("config step should fail, got %+v", step)
	}
	if !errors.Is(step.Err, model.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", step.Err)
	}
	if step.Detail == "" {
		t.Error("failing step should carry a remedy detail")
	}
}

func TestDiagnoseStaleManagedBlock(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")
	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	// Point the managed block at the wrong key behind the engine's back.
	cfg, err := e.Config.Load()
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	mb := *cfg.Managed("work")
	mb.IdentityFile = "/somewhere/else"
	cfg.Upsert(mb)
	if err := e.Config.Save(cfg); err != nil {
		t.Fatalf("config save failed: %v", err)
	}

	diag, err := e.Diagnose("work")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	step := stepByID(t, diag, model.DiagConfig)
	if !errors.Is(step.Err, model.ErrConfigMismatch) {
		t.Errorf("expected ErrConfigMismatch, got %+v", step)
	}
}

func TestDiagnoseEncryptedKeyNeedsAgent(t *testing.T) {
	e, _ := newTestEngine(t)
	p, err := e.Create("sealed", "Test User", "sealed@example.com", "secret")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := e.Switch("sealed"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	e.Prober = &fakeProber{status: model.ProbeAuthenticated}

	// Key not in the agent.
	e.Agent = fakeAgent{}
	diag, err := e.Diagnose("sealed")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	step := stepByID(t, diag, model.DiagAgent)
	if !errors.Is(step.Err, model.ErrKeyNotInAgent) {
		t.Errorf("expected ErrKeyNotInAgent, got %+v", step)
	}

	// Key loaded in the agent.
	e.Agent = fakeAgent{fingerprints: []string{p.Fingerprint}}
	diag, err = e.Diagnose("sealed")
	if err != nil {
		t.Fatalf("diagnose failed: %v", err)
	}
	if !stepByID(t, diag, model.DiagAgent).OK {
		t.Error("agent step should pass with the key loaded")
	}
	if !diag.Healthy() {
		t.Errorf("profile should be healthy: %+v", diag.Steps)
	}
}

func TestDiagnoseProbeFailures(t *testing.T) {
	e, _ := newTestEngine(t)
	mustCreate(t, e, "work")
	if _, err := e.Switch("work"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	cases := []struct {
		status model.ProbeStatus
		kind   error
	}{
		{model.ProbeAuthRejected, model.ErrAuthRejected},
		{model.ProbeTimeout, model.ErrTimeout},
		{model.ProbeNetworkUnreachable, model.ErrNetworkUnreachable},
	}
	for _, tc := range cases {
		e.Prober = &fakeProber{status: tc.status}
		diag, err := e.Diagnose("work")
		if err != nil {
			t.Fatalf("diagnose failed: %v", err)
		}
		step := stepByID(t, diag, model.DiagProbe)
		if !errors.Is(step.Err, tc.kind) {
			t.Errorf("probe status %v: expected %v, got %+v", tc.status, tc.kind, step)
		}
	}
}
