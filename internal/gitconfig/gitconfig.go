// Copyright (c) 2026 ToeiRei
// gitswitch - GitHub identity switcher
// This source code is licensed under the MIT license found in the LICENSE file.

// package gitconfig is the identity-config writer collaborator: it reads
// and sets the two global git identity settings (user.name, user.email)
// by shelling out to git, the same way git itself expects the global
// config to be manipulated. Setting the same values twice is harmless,
// which is what makes the switch operation retry-safe.
package gitconfig

import (
	"fmt"
	"os/exec"
	"strings"
)

// Writer is the identity-config collaborator consumed by the engine.
type Writer interface {
	// Current returns the global user.name and user.email; unset values
	// are returned as empty strings.
	Current() (name, email string, err error)
	// Set writes both global identity settings.
	Set(name, email string) error
}

// ExecWriter manipulates the global git config through the git binary.
type ExecWriter struct {
	// GitPath overrides the git binary location; empty means $PATH lookup.
	GitPath string
}

func (w *ExecWriter) git() string {
	if w.GitPath != "" {
		return w.GitPath
	}
	return "git"
}

// Current reads user.name and user.email from the global git config.
// An unset key is not an error; it yields an empty string.
func (w *ExecWriter) Current() (string, string, error) {
	name, err := w.get("user.name")
	if err != nil {
		return "", "", err
	}
	email, err := w.get("user.email")
	if err != nil {
		return "", "", err
	}
	return name, email, nil
}

func (w *ExecWriter) get(key string) (string, error) {
	out, err := exec.Command(w.git(), "config", "--global", key).Output()
	if err != nil {
		// git exits non-zero for an unset key; treat that as empty.
		if _, ok := err.(*exec.ExitError); ok {
			return "", nil
		}
		return "", fmt.Errorf("failed to run git config: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Set writes both identity keys. Either both succeed or an error is
// returned before the SSH config is ever touched by the caller.
func (w *ExecWriter) Set(name, email string) error {
	if err := exec.Command(w.git(), "config", "--global", "user.name", name).Run(); err != nil {
		return fmt.Errorf("failed to set git user.name: %w", err)
	}
	if err := exec.Command(w.git(), "config", "--global", "user.email", email).Run(); err != nil {
		return fmt.Errorf("failed to set git user.email: %w", err)
	}
	return nil
}
