// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the connection diagnostics pipeline: a bounded,
// ordered sequence of checks whose first failing step is the diagnosis.
// Later steps still run where they can, so every step's result is
// independently observable; only the live probe is skipped when the key
// files themselves are missing.
package engine

import (
	"fmt"
	"os"

	"github.com/toeirei/gitswitch/internal/i18n"
	"github.com/toeirei/gitswitch/internal/model"
	"github.com/toeirei/gitswitch/internal/sshagent"
	"github.com/toeirei/gitswitch/internal/sshkey"
)

// Diagnose runs the diagnostics pipeline for one profile. Failing steps
// are results, not errors; the returned error only covers being unable
// to run at all (unknown profile, unreadable store).
func (e *Engine) Diagnose(name string) (*model.Diagnosis, error) {
	data, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	profile, ok := data.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrProfileNotFound, name)
	}

	diag := &model.Diagnosis{Profile: profile.Name, FirstFail: -1}
	fail := func(step model.DiagStep) {
		diag.Steps = append(diag.Steps, step)
		if diag.FirstFail < 0 {
			diag.FirstFail = len(diag.Steps) - 1
		}
	}
	pass := func(step model.DiagStep) {
		step.OK = true
		diag.Steps = append(diag.Steps, step)
	}
	skip := func(id model.DiagStepID, detail string) {
		diag.Steps = append(diag.Steps, model.DiagStep{ID: id, Skipped: true, Detail: detail})
	}

	// 1. Key files on disk.
	keyOK := true
	if _, err := os.Stat(profile.SSHKeyPath); err != nil {
		keyOK = false
		fail(model.DiagStep{
			ID:     model.DiagKeyFiles,
			Err:    model.ErrKeyMissing,
			Detail: i18n.T("doctor.key_missing", profile.SSHKeyPath),
		})
	} else {
		pass(model.DiagStep{ID: model.DiagKeyFiles, Detail: profile.SSHKeyPath})
	}

	// 2. Encryption status (informational).
	encrypted := profile.IsEncrypted()
	if keyOK {
		if privData, err := os.ReadFile(profile.SSHKeyPath); err == nil {
			if enc, err := sshkey.ClassifyPrivateKey(privData); err == nil {
				encrypted = enc
			}
		}
		detail := i18n.T("doctor.key_plain")
		if encrypted {
			detail = i18n.T("doctor.key_encrypted")
		}
		pass(model.DiagStep{ID: model.DiagEncryption, Detail: detail})
	} else {
		skip(model.DiagEncryption, i18n.T("doctor.skipped_no_key"))
	}

	// 3. Agent holds the key (only meaningful for encrypted keys).
	if encrypted && profile.Fingerprint != "" {
		inAgent, err := sshagent.Has(e.Agent, profile.Fingerprint)
		switch {
		case err != nil:
			fail(model.DiagStep{
				ID:     model.DiagAgent,
				Err:    model.ErrKeyNotInAgent,
				Detail: i18n.T("doctor.agent_error", err),
			})
		case !inAgent:
			fail(model.DiagStep{
				ID:     model.DiagAgent,
				Err:    model.ErrKeyNotInAgent,
				Detail: model.Remedy(model.ErrKeyNotInAgent, profile.SSHKeyPath),
			})
		default:
			pass(model.DiagStep{ID: model.DiagAgent, Detail: i18n.T("doctor.agent_loaded")})
		}
	} else {
		skip(model.DiagAgent, i18n.T("doctor.agent_not_needed"))
	}

	// 4. Managed config block present and correct.
	cfg, err := e.Config.Load()
	if err != nil {
		fail(model.DiagStep{ID: model.DiagConfig, Err: model.ErrConfigParse, Detail: err.Error()})
	} else if mb := cfg.Managed(profile.Name); mb == nil {
		fail(model.DiagStep{
			ID:     model.DiagConfig,
			Err:    model.ErrConfigMissing,
			Detail: model.Remedy(model.ErrConfigMissing, ""),
		})
	} else if mb.IdentityFile != profile.SSHKeyPath || mb.HostAlias != profile.HostAlias() {
		fail(model.DiagStep{
			ID:     model.DiagConfig,
			Err:    model.ErrConfigMismatch,
			Detail: model.Remedy(model.ErrConfigMismatch, ""),
		})
	} else {
		pass(model.DiagStep{ID: model.DiagConfig, Detail: mb.HostAlias})
	}

	// 5. Live probe; pointless when the key files are gone.
	if !keyOK {
		skip(model.DiagProbe, i18n.T("doctor.skipped_no_key"))
		return diag, nil
	}
	status := model.ProbeSkipped
	if e.Prober != nil {
		status = e.Prober.Probe(e.Host, profile.SSHKeyPath, encrypted)
	}
	switch status {
	case model.ProbeAuthenticated:
		pass(model.DiagStep{ID: model.DiagProbe, Detail: i18n.T("doctor.probe_authenticated", e.Host)})
	case model.ProbeAuthRejected:
		fail(model.DiagStep{ID: model.DiagProbe, Err: model.ErrAuthRejected, Detail: model.Remedy(model.ErrAuthRejected, "")})
	case model.ProbeTimeout:
		fail(model.DiagStep{ID: model.DiagProbe, Err: model.ErrTimeout, Detail: model.Remedy(model.ErrTimeout, "")})
	case model.ProbeNetworkUnreachable:
		fail(model.DiagStep{ID: model.DiagProbe, Err: model.ErrNetworkUnreachable, Detail: model.Remedy(model.ErrNetworkUnreachable, "")})
	default:
		skip(model.DiagProbe, i18n.T("doctor.probe_disabled"))
	}

	return diag, nil
}
